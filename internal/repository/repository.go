package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/personahub/chat-backend/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrStale is returned when an update lost an optimistic-concurrency race.
	ErrStale = errors.New("record was modified concurrently")
	// ErrDuplicate is returned when a write collides with a unique key.
	ErrDuplicate = errors.New("record already exists")
)

const uniqueViolation = "23505"

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TicketFilter captures listing parameters.
type TicketFilter struct {
	OwnerID    *string
	AssigneeID *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// ReportFilter captures moderation queue parameters.
type ReportFilter struct {
	Statuses []domain.ReportStatus
	Limit    int
	Offset   int
}

type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update persists the ticket if its Version still matches storage and
	// increments Version on success.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	ListByPersona(ctx context.Context, personaID string) ([]domain.Ticket, error)
}

type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListElapsedSuspensions(ctx context.Context, now time.Time, limit int) ([]domain.User, error)
}

type PersonaRepository interface {
	Create(ctx context.Context, persona *domain.Persona) error
	Update(ctx context.Context, persona *domain.Persona) error
	GetByID(ctx context.Context, id string) (*domain.Persona, error)
	ListPublic(ctx context.Context, limit, offset int) ([]domain.Persona, int, error)
}

type ChatSessionRepository interface {
	Create(ctx context.Context, session *domain.ChatSession) error
	Update(ctx context.Context, session *domain.ChatSession) error
	GetByID(ctx context.Context, id string) (*domain.ChatSession, error)
	ListByPersona(ctx context.Context, personaID string) ([]domain.ChatSession, error)
}

type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	Update(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]domain.Report, int, error)
}

type DeviceRepository interface {
	Create(ctx context.Context, device *domain.Device) error
	GetByID(ctx context.Context, id string) (*domain.Device, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Device, error)
}

// Repositories bundles every repository bound to one connection or
// transaction.
type Repositories struct {
	Tickets  TicketRepository
	History  TicketHistoryRepository
	Users    UserRepository
	Personas PersonaRepository
	Sessions ChatSessionRepository
	Reports  ReportRepository
	Devices  DeviceRepository
}

// Store is the persistence collaborator. Reads outside a transaction go
// through Repos; every mutation goes through WithinTx, which commits all
// writes made by fn atomically or none of them.
type Store interface {
	Repos() Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}

// NormalizePage applies the default and maximum page size.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// mapUnique turns a unique index violation into ErrDuplicate, keeping the
// constraint name in the message.
func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
