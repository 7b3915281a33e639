package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/personahub/chat-backend/internal/domain"
)

type ticketHistoryRepository struct {
	db DBTX
}

// NewTicketHistoryRepository returns a Postgres-backed audit trail.
func NewTicketHistoryRepository(db DBTX) TicketHistoryRepository {
	return &ticketHistoryRepository{db: db}
}

// Create appends an entry. old_value and new_value are stored as jsonb; seq
// comes from the table's sequence.
func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (id, ticket_id, changed_by_id, change_type, old_value, new_value, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING seq`
	return r.db.QueryRow(ctx, query,
		entry.ID, entry.TicketID, entry.ChangedByID, entry.ChangeType,
		entry.OldValue, entry.NewValue, entry.CreatedAt,
	).Scan(&entry.Seq)
}

// ListByTicket returns the trail oldest first. Entries written by one
// change share a timestamp, so seq breaks the tie.
func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	rows, err := r.db.Query(ctx, `
        SELECT seq, id, ticket_id, changed_by_id, change_type, old_value, new_value, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at, seq`, ticketID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TicketHistory, error) {
		var e domain.TicketHistory
		err := row.Scan(&e.Seq, &e.ID, &e.TicketID, &e.ChangedByID, &e.ChangeType, &e.OldValue, &e.NewValue, &e.CreatedAt)
		return e, err
	})
}
