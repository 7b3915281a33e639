package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore binds repositories to a pgx pool and runs mutations inside
// a single pgx transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Repos returns repositories bound to the pool.
func (s *PostgresStore) Repos() Repositories {
	return bind(s.pool)
}

// WithinTx runs fn in a read-committed transaction. Any error from fn rolls
// back; a cancelled context before commit also rolls back.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err = fn(ctx, bind(tx)); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func bind(db DBTX) Repositories {
	return Repositories{
		Tickets:  NewTicketRepository(db),
		History:  NewTicketHistoryRepository(db),
		Users:    NewUserRepository(db),
		Personas: NewPersonaRepository(db),
		Sessions: NewChatSessionRepository(db),
		Reports:  NewReportRepository(db),
		Devices:  NewDeviceRepository(db),
	}
}
