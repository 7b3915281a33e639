package repository

import (
	"context"

	"github.com/personahub/chat-backend/internal/domain"
)

type deviceRepository struct {
	db DBTX
}

// NewDeviceRepository returns a Postgres-backed implementation.
func NewDeviceRepository(db DBTX) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) Create(ctx context.Context, d *domain.Device) error {
	const query = `
        INSERT INTO devices (id, user_id, platform, push_token, created_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (push_token) DO UPDATE SET user_id=EXCLUDED.user_id, platform=EXCLUDED.platform
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, d.ID, d.UserID, d.Platform, d.PushToken, d.CreatedAt).Scan(&d.ID, &d.CreatedAt)
	return mapUnique(err)
}

func (r *deviceRepository) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	var d domain.Device
	err := r.db.QueryRow(ctx, `SELECT id, user_id, platform, push_token, created_at FROM devices WHERE id=$1`, id).
		Scan(&d.ID, &d.UserID, &d.Platform, &d.PushToken, &d.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &d, nil
}

func (r *deviceRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM devices WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *deviceRepository) ListByUser(ctx context.Context, userID string) ([]domain.Device, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, platform, push_token, created_at FROM devices WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.Platform, &d.PushToken, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
