package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/personahub/chat-backend/internal/clock"
	"github.com/personahub/chat-backend/internal/repository"
)

// DefaultSweepSchedule runs the sweep every fifteen minutes.
const DefaultSweepSchedule = "*/15 * * * *"

const sweepBatch = 100

// SuspensionSweeper clears stored suspension flags whose window has ended.
// Reads already treat such accounts as active; the sweep only brings the
// stored rows in line.
type SuspensionSweeper struct {
	store  repository.Store
	clock  clock.Clock
	logger *zap.Logger
}

// NewSuspensionSweeper builds a sweeper.
func NewSuspensionSweeper(store repository.Store, clk clock.Clock, logger *zap.Logger) *SuspensionSweeper {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuspensionSweeper{store: store, clock: clk, logger: logger}
}

// Sweep clears every elapsed suspension and returns how many rows changed.
// A row modified concurrently is skipped and picked up by the next run.
func (s *SuspensionSweeper) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cleared := 0
	skipped := map[string]bool{}
	for {
		users, err := s.store.Repos().Users.ListElapsedSuspensions(ctx, now, sweepBatch+len(skipped))
		if err != nil {
			return cleared, fmt.Errorf("list elapsed suspensions: %w", err)
		}
		progressed := false
		for _, u := range users {
			if skipped[u.ID] {
				continue
			}
			changed := false
			err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
				current, err := tx.Users.GetByID(ctx, u.ID)
				if err != nil {
					return err
				}
				if !current.SuspensionElapsed(now) {
					return nil
				}
				current.Unsuspend(now)
				changed = true
				return tx.Users.Update(ctx, current)
			})
			switch {
			case err == nil:
				progressed = true
				if changed {
					cleared++
				}
			case errors.Is(err, repository.ErrStale), errors.Is(err, repository.ErrNotFound):
				skipped[u.ID] = true
			default:
				return cleared, fmt.Errorf("clear suspension %s: %w", u.ID, err)
			}
		}
		if !progressed || len(users) < sweepBatch+len(skipped) {
			return cleared, nil
		}
	}
}

// StartSuspensionSweep schedules the sweep. The caller stops the returned
// scheduler on shutdown.
func StartSuspensionSweep(schedule string, sweeper *SuspensionSweeper, logger *zap.Logger) (*cron.Cron, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := sweeper.Sweep(ctx)
		if err != nil {
			logger.Error("suspension sweep failed", zap.Int("cleared", n), zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("suspension sweep", zap.Int("cleared", n))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule suspension sweep %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
