package memory

import (
	"context"
	"strings"
	"time"

	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/repository"
)

type ticketRepo struct{ tx *txn }

func (r ticketRepo) Create(_ context.Context, t *domain.Ticket) error {
	return create(r.tx, r.tx.tickets, t)
}

func (r ticketRepo) Update(_ context.Context, t *domain.Ticket) error {
	return update(r.tx, r.tx.tickets, t)
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	return get(r.tx, r.tx.tickets, id)
}

func (r ticketRepo) List(_ context.Context, f repository.TicketFilter) ([]domain.Ticket, int, error) {
	rows := all(r.tx, r.tx.tickets, func(t *domain.Ticket) bool {
		if f.OwnerID != nil && t.OwnerID != *f.OwnerID {
			return false
		}
		if f.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID) {
			return false
		}
		if len(f.Statuses) > 0 && !containsValue(f.Statuses, t.Status) {
			return false
		}
		if len(f.Priorities) > 0 && !containsValue(f.Priorities, t.Priority) {
			return false
		}
		return true
	})
	sortBy(rows, func(a, b *domain.Ticket) bool {
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
	items, total := page(rows, f.Limit, f.Offset)
	return items, total, nil
}

func (r ticketRepo) ListByPersona(_ context.Context, personaID string) ([]domain.Ticket, error) {
	rows := all(r.tx, r.tx.tickets, func(t *domain.Ticket) bool {
		return t.PersonaID != nil && *t.PersonaID == personaID
	})
	sortBy(rows, func(a, b *domain.Ticket) bool { return a.CreatedAt.Before(b.CreatedAt) })
	return rows, nil
}

type historyRepo struct{ tx *txn }

func (r historyRepo) Create(_ context.Context, h *domain.TicketHistory) error {
	h.Seq = r.tx.store.historySeq.Add(1)
	return create(r.tx, r.tx.history, h)
}

func (r historyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	rows := all(r.tx, r.tx.history, func(h *domain.TicketHistory) bool { return h.TicketID == ticketID })
	sortBy(rows, func(a, b *domain.TicketHistory) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Seq < b.Seq
	})
	return rows, nil
}

type userRepo struct{ tx *txn }

func (r userRepo) Create(_ context.Context, u *domain.User) error {
	return create(r.tx, r.tx.users, u)
}

func (r userRepo) Update(_ context.Context, u *domain.User) error {
	return update(r.tx, r.tx.users, u)
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	return get(r.tx, r.tx.users, id)
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	rows := all(r.tx, r.tx.users, func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return &rows[0], nil
}

func (r userRepo) ListElapsedSuspensions(_ context.Context, now time.Time, limit int) ([]domain.User, error) {
	rows := all(r.tx, r.tx.users, func(u *domain.User) bool { return u.SuspensionElapsed(now) })
	sortBy(rows, func(a, b *domain.User) bool { return a.SuspendedUntil.Before(*b.SuspendedUntil) })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type personaRepo struct{ tx *txn }

func (r personaRepo) Create(_ context.Context, p *domain.Persona) error {
	return create(r.tx, r.tx.personas, p)
}

func (r personaRepo) Update(_ context.Context, p *domain.Persona) error {
	return update(r.tx, r.tx.personas, p)
}

func (r personaRepo) GetByID(_ context.Context, id string) (*domain.Persona, error) {
	return get(r.tx, r.tx.personas, id)
}

func (r personaRepo) ListPublic(_ context.Context, limit, offset int) ([]domain.Persona, int, error) {
	rows := all(r.tx, r.tx.personas, func(p *domain.Persona) bool { return p.IsPubliclyVisible() })
	sortBy(rows, func(a, b *domain.Persona) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	items, total := page(rows, limit, offset)
	return items, total, nil
}

type sessionRepo struct{ tx *txn }

func (r sessionRepo) Create(_ context.Context, s *domain.ChatSession) error {
	return create(r.tx, r.tx.sessions, s)
}

// Update keeps an already stored persona snapshot, matching the SQL
// implementation's COALESCE.
func (r sessionRepo) Update(_ context.Context, s *domain.ChatSession) error {
	current, err := get(r.tx, r.tx.sessions, s.ID)
	if err != nil {
		return err
	}
	next := *s
	if current.PersonaSnapshot != nil {
		next.PersonaSnapshot = current.PersonaSnapshot
	}
	return update(r.tx, r.tx.sessions, &next)
}

func (r sessionRepo) GetByID(_ context.Context, id string) (*domain.ChatSession, error) {
	return get(r.tx, r.tx.sessions, id)
}

func (r sessionRepo) ListByPersona(_ context.Context, personaID string) ([]domain.ChatSession, error) {
	rows := all(r.tx, r.tx.sessions, func(s *domain.ChatSession) bool { return s.PersonaID == personaID })
	sortBy(rows, func(a, b *domain.ChatSession) bool { return a.CreatedAt.Before(b.CreatedAt) })
	return rows, nil
}

type reportRepo struct{ tx *txn }

func (r reportRepo) Create(_ context.Context, rep *domain.Report) error {
	return create(r.tx, r.tx.reports, rep)
}

func (r reportRepo) Update(_ context.Context, rep *domain.Report) error {
	return update(r.tx, r.tx.reports, rep)
}

func (r reportRepo) GetByID(_ context.Context, id string) (*domain.Report, error) {
	return get(r.tx, r.tx.reports, id)
}

func (r reportRepo) List(_ context.Context, f repository.ReportFilter) ([]domain.Report, int, error) {
	rows := all(r.tx, r.tx.reports, func(rep *domain.Report) bool {
		return len(f.Statuses) == 0 || containsValue(f.Statuses, rep.Status)
	})
	sortBy(rows, func(a, b *domain.Report) bool { return a.CreatedAt.Before(b.CreatedAt) })
	items, total := page(rows, f.Limit, f.Offset)
	return items, total, nil
}

type deviceRepo struct{ tx *txn }

// Create moves an already registered push token to d's owner, keeping the
// existing row's id, the way the Postgres upsert does.
func (r deviceRepo) Create(_ context.Context, d *domain.Device) error {
	holders := all(r.tx, r.tx.devices, func(row *domain.Device) bool { return row.PushToken == d.PushToken })
	if len(holders) == 0 {
		return create(r.tx, r.tx.devices, d)
	}
	existing := holders[0]
	existing.UserID = d.UserID
	existing.Platform = d.Platform
	if err := update(r.tx, r.tx.devices, &existing); err != nil {
		return err
	}
	d.ID, d.CreatedAt = existing.ID, existing.CreatedAt
	return nil
}

func (r deviceRepo) GetByID(_ context.Context, id string) (*domain.Device, error) {
	return get(r.tx, r.tx.devices, id)
}

func (r deviceRepo) Delete(_ context.Context, id string) error {
	return remove(r.tx, r.tx.devices, id)
}

func (r deviceRepo) ListByUser(_ context.Context, userID string) ([]domain.Device, error) {
	rows := all(r.tx, r.tx.devices, func(d *domain.Device) bool { return d.UserID == userID })
	sortBy(rows, func(a, b *domain.Device) bool { return a.CreatedAt.Before(b.CreatedAt) })
	return rows, nil
}

func containsValue[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
