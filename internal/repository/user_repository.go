package repository

import (
	"context"
	"time"

	"github.com/personahub/chat-backend/internal/domain"
)

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, display_name, password_hash, google_id, is_admin, roles, tier, daily_quota,
               is_suspended, suspended_until, suspension_reason, created_at, updated_at, version`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, email, display_name, password_hash, google_id, is_admin, roles, tier, daily_quota,
            created_at, updated_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,1)`

	if _, err := r.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		user.GoogleID,
		user.IsAdmin,
		user.Roles,
		user.Tier,
		user.DailyQuota,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		return mapUnique(err)
	}
	user.Version = 1
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET email=$1, display_name=$2, password_hash=$3, google_id=$4, is_suspended=$5,
            suspended_until=$6, suspension_reason=$7, updated_at=$8, version=version+1
        WHERE id=$9 AND version=$10`

	cmd, err := r.db.Exec(ctx, query,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		user.GoogleID,
		user.IsSuspended,
		user.SuspendedUntil,
		user.SuspensionReason,
		user.UpdatedAt,
		user.ID,
		user.Version,
	)
	if err != nil {
		return mapUnique(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrStale
	}
	user.Version++
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email)
}

func (r *userRepository) ListElapsedSuspensions(ctx context.Context, now time.Time, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT ` + userColumns + ` FROM users
        WHERE is_suspended AND suspended_until IS NOT NULL AND suspended_until <= $1
        ORDER BY suspended_until LIMIT $2`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(userDest(&user)...); err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.db.QueryRow(ctx, query, arg).Scan(userDest(&user)...); err != nil {
		return nil, mapNoRows(err)
	}
	return &user, nil
}

func userDest(user *domain.User) []any {
	return []any{
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.GoogleID,
		&user.IsAdmin,
		&user.Roles,
		&user.Tier,
		&user.DailyQuota,
		&user.IsSuspended,
		&user.SuspendedUntil,
		&user.SuspensionReason,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	}
}
