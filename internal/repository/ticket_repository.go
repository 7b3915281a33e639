package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/personahub/chat-backend/internal/domain"
)

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, owner_id, assignee_id, persona_id, subject, description, status, priority,
               resolution, persona_snapshot_name, persona_snapshot_image, persona_deleted_at,
               resolved_at, created_at, updated_at, version`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, owner_id, assignee_id, persona_id, subject, description, status, priority,
            resolution, resolved_at, created_at, updated_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,1)`
	if _, err := r.db.Exec(ctx, query,
		ticket.ID,
		ticket.OwnerID,
		ticket.AssigneeID,
		ticket.PersonaID,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Resolution,
		ticket.ResolvedAt,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	); err != nil {
		return err
	}
	ticket.Version = 1
	return nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET assignee_id=$1, subject=$2, description=$3, status=$4, priority=$5,
            resolution=$6, persona_snapshot_name=$7, persona_snapshot_image=$8, persona_deleted_at=$9,
            resolved_at=$10, updated_at=$11, version=version+1
        WHERE id=$12 AND version=$13`
	snapName, snapImage, snapAt := snapshotColumns(ticket.PersonaSnapshot)
	cmd, err := r.db.Exec(ctx, query,
		ticket.AssigneeID,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Resolution,
		snapName,
		snapImage,
		snapAt,
		ticket.ResolvedAt,
		ticket.UpdatedAt,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStale
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return ticket, nil
}

func (r *ticketRepository) ListByPersona(ctx context.Context, personaID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE persona_id=$1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, personaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ticket)
	}
	return out, rows.Err()
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s, COUNT(*) OVER() FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		result []domain.Ticket
		total  int
	)
	for rows.Next() {
		ticket, err := scanTicket(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *ticket)
	}
	return result, total, rows.Err()
}

func scanTicket(row pgx.Row, extra ...any) (*domain.Ticket, error) {
	var (
		ticket    domain.Ticket
		snapName  *string
		snapImage *string
		snapAt    *time.Time
	)
	dest := []any{
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.AssigneeID,
		&ticket.PersonaID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Resolution,
		&snapName,
		&snapImage,
		&snapAt,
		&ticket.ResolvedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.Version,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	ticket.PersonaSnapshot = snapshotFromColumns(snapName, snapImage, snapAt)
	return &ticket, nil
}

func snapshotColumns(s *domain.PersonaSnapshot) (*string, *string, *time.Time) {
	if s == nil {
		return nil, nil, nil
	}
	name, image, at := s.Name, s.ImagePath, s.DeletedAt
	return &name, &image, &at
}

func snapshotFromColumns(name, image *string, at *time.Time) *domain.PersonaSnapshot {
	if at == nil {
		return nil
	}
	snap := &domain.PersonaSnapshot{DeletedAt: *at}
	if name != nil {
		snap.Name = *name
	}
	if image != nil {
		snap.ImagePath = *image
	}
	return snap
}
