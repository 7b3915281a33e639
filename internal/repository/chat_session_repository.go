package repository

import (
	"context"
	"time"

	"github.com/personahub/chat-backend/internal/domain"
)

type chatSessionRepository struct {
	db DBTX
}

// NewChatSessionRepository returns a Postgres-backed implementation.
func NewChatSessionRepository(db DBTX) ChatSessionRepository {
	return &chatSessionRepository{db: db}
}

const sessionColumns = `id, user_id, persona_id, title, persona_snapshot_name, persona_snapshot_image,
               persona_deleted_at, created_at, updated_at`

func (r *chatSessionRepository) Create(ctx context.Context, s *domain.ChatSession) error {
	const query = `
        INSERT INTO chat_sessions (id, user_id, persona_id, title, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.db.Exec(ctx, query, s.ID, s.UserID, s.PersonaID, s.Title, s.CreatedAt, s.UpdatedAt)
	return err
}

// Update never overwrites an existing snapshot; the COALESCE keeps the
// first one written.
func (r *chatSessionRepository) Update(ctx context.Context, s *domain.ChatSession) error {
	const query = `
        UPDATE chat_sessions SET title=$1,
            persona_snapshot_name=COALESCE(persona_snapshot_name, $2),
            persona_snapshot_image=COALESCE(persona_snapshot_image, $3),
            persona_deleted_at=COALESCE(persona_deleted_at, $4),
            updated_at=$5
        WHERE id=$6`
	name, image, at := snapshotColumns(s.PersonaSnapshot)
	cmd, err := r.db.Exec(ctx, query, s.Title, name, image, at, s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *chatSessionRepository) GetByID(ctx context.Context, id string) (*domain.ChatSession, error) {
	s, err := scanSession(r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM chat_sessions WHERE id=$1`, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return s, nil
}

func (r *chatSessionRepository) ListByPersona(ctx context.Context, personaID string) ([]domain.ChatSession, error) {
	rows, err := r.db.Query(ctx, `SELECT `+sessionColumns+` FROM chat_sessions WHERE persona_id=$1 ORDER BY created_at`, personaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ChatSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.ChatSession, error) {
	var (
		s         domain.ChatSession
		snapName  *string
		snapImage *string
		snapAt    *time.Time
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.PersonaID, &s.Title, &snapName, &snapImage, &snapAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.PersonaSnapshot = snapshotFromColumns(snapName, snapImage, snapAt)
	return &s, nil
}
