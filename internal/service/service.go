package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/personahub/chat-backend/internal/auth"
	"github.com/personahub/chat-backend/internal/clock"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/events"
	"github.com/personahub/chat-backend/internal/repository"
	"github.com/personahub/chat-backend/internal/result"
)

// FileStore keeps uploaded objects and returns the path clients read them from.
type FileStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// Dependencies bundles the collaborators every handler draws from.
type Dependencies struct {
	Store      repository.Store
	Principals auth.Provider
	Clock      clock.Clock
	Events     events.Dispatcher
	Files      FileStore
	Passwords  auth.PasswordHasher
	Tokens     *auth.TokenManager
	Logger     *zap.Logger
	// NewID generates entity ids; uuid v4 when nil.
	NewID func() string
}

// base carries what every service shares.
type base struct {
	store      repository.Store
	principals auth.Provider
	clock      clock.Clock
	events     events.Dispatcher
	logger     *zap.Logger
	newID      func() string
}

func newBase(deps Dependencies) base {
	b := base{
		store:      deps.Store,
		principals: deps.Principals,
		clock:      deps.Clock,
		events:     deps.Events,
		logger:     deps.Logger,
		newID:      deps.NewID,
	}
	if b.principals == nil {
		b.principals = auth.ContextProvider{}
	}
	if b.clock == nil {
		b.clock = clock.System()
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.newID == nil {
		b.newID = uuid.NewString
	}
	return b
}

func (b *base) now() time.Time {
	return b.clock.Now()
}

func (b *base) actor(ctx context.Context) auth.Principal {
	return b.principals.Current(ctx)
}

// Page is one slice of a listing.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func newPage[T any](items []T, total, limit, offset int) Page[T] {
	limit, offset = repository.NormalizePage(limit, offset)
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Limit: limit, Offset: offset}
}

// fieldProblems returns the field errors of a failed parse.
func fieldProblems(o result.Outcome) []result.FieldError {
	if f := o.Problem(); f != nil {
		return f.Fields
	}
	return nil
}

// publish emits events after the commit. Delivery failures are logged and
// never change the outcome of the request.
func (b *base) publish(ctx context.Context, actorID string, evts ...events.Event) {
	if b.events == nil {
		return
	}
	for _, event := range evts {
		if event.ID == "" {
			event.ID = b.newID()
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = b.now()
		}
		if event.ActorID == "" {
			event.ActorID = actorID
		}
		if err := b.events.Publish(ctx, event); err != nil {
			b.logger.Warn("event delivery failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.String("subject_id", event.SubjectID),
				zap.String("actor_id", event.ActorID),
				zap.Int("failed_handlers", len(events.FailedDeliveries(err))),
				zap.Error(err))
		}
	}
}

// reject aborts a transaction with an expected failure.
func reject(status result.Status, message string) error {
	return &result.Failure{Status: status, Message: message}
}

// outcome converts the error returned from a transaction into the terminal
// result. Expected conditions become failures; anything else is a fault.
func outcome[T any](value T, err error, resource string) (result.Result[T], error) {
	if err == nil {
		return result.Success(value), nil
	}
	return failed[T](err, resource)
}

func failed[T any](err error, resource string) (result.Result[T], error) {
	var (
		failure    *result.Failure
		transition *domain.TransitionError
		rule       *domain.RuleError
	)
	switch {
	case errors.As(err, &failure):
		return result.FromFailure[T](failure), nil
	case errors.As(err, &transition):
		return result.Conflict[T](transition.Error()), nil
	case errors.As(err, &rule):
		return result.FromFailure[T](&result.Failure{
			Status:  result.StatusValidationFailed,
			Message: rule.Message,
			Fields:  []result.FieldError{{Field: rule.Field, Message: rule.Message}},
		}), nil
	case errors.Is(err, repository.ErrNotFound):
		return result.NotFound[T](resource), nil
	case errors.Is(err, repository.ErrStale):
		return result.Conflict[T](resource + " was modified concurrently"), nil
	case errors.Is(err, repository.ErrDuplicate):
		return result.Conflict[T](resource + " already exists"), nil
	default:
		var zero result.Result[T]
		return zero, err
	}
}

// ownerOf adapts a repository lookup into a policy owner resolver.
func ownerOf[Req any, E any](resource string, load func(ctx context.Context, req Req) (*E, error), owner func(*E) string) func(context.Context, Req) (result.Result[string], error) {
	return func(ctx context.Context, req Req) (result.Result[string], error) {
		entity, err := load(ctx, req)
		if err != nil {
			return failed[string](err, resource)
		}
		return result.Success(owner(entity)), nil
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
