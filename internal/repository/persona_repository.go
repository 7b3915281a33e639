package repository

import (
	"context"

	"github.com/personahub/chat-backend/internal/domain"
)

type personaRepository struct {
	db DBTX
}

// NewPersonaRepository returns a Postgres-backed implementation.
func NewPersonaRepository(db DBTX) PersonaRepository {
	return &personaRepository{db: db}
}

const personaColumns = `id, creator_id, name, description, image_path, is_public, status, archived_at,
               created_at, updated_at, version`

func (r *personaRepository) Create(ctx context.Context, p *domain.Persona) error {
	const query = `
        INSERT INTO personas (id, creator_id, name, description, image_path, is_public, status, created_at, updated_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,1)`
	if _, err := r.db.Exec(ctx, query,
		p.ID, p.CreatorID, p.Name, p.Description, p.ImagePath, p.IsPublic, p.Status, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return err
	}
	p.Version = 1
	return nil
}

func (r *personaRepository) Update(ctx context.Context, p *domain.Persona) error {
	const query = `
        UPDATE personas SET name=$1, description=$2, image_path=$3, is_public=$4, status=$5, archived_at=$6,
            updated_at=$7, version=version+1
        WHERE id=$8 AND version=$9`
	cmd, err := r.db.Exec(ctx, query,
		p.Name, p.Description, p.ImagePath, p.IsPublic, p.Status, p.ArchivedAt, p.UpdatedAt, p.ID, p.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStale
	}
	p.Version++
	return nil
}

func (r *personaRepository) GetByID(ctx context.Context, id string) (*domain.Persona, error) {
	var p domain.Persona
	err := r.db.QueryRow(ctx, `SELECT `+personaColumns+` FROM personas WHERE id=$1`, id).Scan(personaDest(&p)...)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

func (r *personaRepository) ListPublic(ctx context.Context, limit, offset int) ([]domain.Persona, int, error) {
	limit, offset = NormalizePage(limit, offset)
	query := `SELECT ` + personaColumns + `, COUNT(*) OVER() FROM personas
        WHERE is_public AND status=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, domain.PersonaStatusActive, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var (
		out   []domain.Persona
		total int
	)
	for rows.Next() {
		var p domain.Persona
		if err := rows.Scan(append(personaDest(&p), &total)...); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func personaDest(p *domain.Persona) []any {
	return []any{
		&p.ID, &p.CreatorID, &p.Name, &p.Description, &p.ImagePath, &p.IsPublic, &p.Status, &p.ArchivedAt,
		&p.CreatedAt, &p.UpdatedAt, &p.Version,
	}
}
