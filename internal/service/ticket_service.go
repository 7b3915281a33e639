package service

import (
	"context"
	"errors"
	"strings"

	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/events"
	"github.com/personahub/chat-backend/internal/repository"
	"github.com/personahub/chat-backend/internal/result"
)

// CreateTicket opens a support ticket for the caller.
type CreateTicket struct {
	Subject     string `json:"subject" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
	Priority    string `json:"priority"`
	PersonaID   string `json:"persona_id"`
}

func (CreateTicket) RequestName() string { return "create_ticket" }

func (r CreateTicket) Validate() []result.FieldError {
	if r.Priority == "" {
		return nil
	}
	return fieldProblems(domain.TicketPriorities.Parse(r.Priority))
}

// GetTicket reads one ticket.
type GetTicket struct {
	TicketID string `json:"ticket_id" validate:"required"`
}

func (GetTicket) RequestName() string { return "get_ticket" }

// ListTicketHistory reads the audit trail of one ticket.
type ListTicketHistory struct {
	TicketID string `json:"ticket_id" validate:"required"`
}

func (ListTicketHistory) RequestName() string { return "list_ticket_history" }

// ListMyTickets lists the caller's tickets.
type ListMyTickets struct {
	Statuses   []string `json:"status"`
	Priorities []string `json:"priority"`
	Limit      int      `json:"limit" validate:"gte=0,lte=100"`
	Offset     int      `json:"offset" validate:"gte=0"`
}

func (ListMyTickets) RequestName() string { return "list_my_tickets" }

func (r ListMyTickets) Validate() []result.FieldError {
	return append(fieldProblems(domain.TicketStatuses.ParseAll(r.Statuses)),
		fieldProblems(domain.TicketPriorities.ParseAll(r.Priorities))...)
}

// ListTickets is the admin queue.
type ListTickets struct {
	Statuses   []string `json:"status"`
	Priorities []string `json:"priority"`
	AssigneeID string   `json:"assignee_id"`
	Limit      int      `json:"limit" validate:"gte=0,lte=100"`
	Offset     int      `json:"offset" validate:"gte=0"`
}

func (ListTickets) RequestName() string { return "list_tickets" }

func (r ListTickets) Validate() []result.FieldError {
	return append(fieldProblems(domain.TicketStatuses.ParseAll(r.Statuses)),
		fieldProblems(domain.TicketPriorities.ParseAll(r.Priorities))...)
}

// AssignTicket hands a ticket to an admin, the caller by default.
type AssignTicket struct {
	TicketID   string `json:"ticket_id" validate:"required"`
	AssigneeID string `json:"assignee_id"`
}

func (AssignTicket) RequestName() string { return "assign_ticket" }

// EscalateTicket raises priority one step.
type EscalateTicket struct {
	TicketID string `json:"ticket_id" validate:"required"`
}

func (EscalateTicket) RequestName() string { return "escalate_ticket" }

// CloseTicket resolves a ticket.
type CloseTicket struct {
	TicketID   string `json:"ticket_id" validate:"required"`
	Resolution string `json:"resolution" validate:"max=2000"`
}

func (CloseTicket) RequestName() string { return "close_ticket" }

// ReopenTicket returns a resolved or closed ticket to Open.
type ReopenTicket struct {
	TicketID string `json:"ticket_id" validate:"required"`
	Reason   string `json:"reason" validate:"max=2000"`
}

func (ReopenTicket) RequestName() string { return "reopen_ticket" }

// UpdateTicketStatus is the admin's direct move along the transition table.
type UpdateTicketStatus struct {
	TicketID string `json:"ticket_id" validate:"required"`
	Status   string `json:"status" validate:"required"`
	Comment  string `json:"comment" validate:"max=2000"`
}

func (UpdateTicketStatus) RequestName() string { return "update_ticket_status" }

func (r UpdateTicketStatus) Validate() []result.FieldError {
	if r.Status == "" {
		return nil
	}
	return fieldProblems(domain.TicketStatuses.Parse(r.Status))
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	base
}

// NewTicketService constructs the service.
func NewTicketService(deps Dependencies) *TicketService {
	return &TicketService{base: newBase(deps)}
}

func (s *TicketService) register(reg *dispatch.Registry) {
	dispatch.Register(reg, dispatch.HandlerFunc[CreateTicket, domain.Ticket](s.CreateTicket), dispatch.Authenticated())
	dispatch.Register(reg, dispatch.HandlerFunc[GetTicket, domain.Ticket](s.GetTicket), dispatch.WithPolicy(dispatch.Policy[GetTicket]{
		Owner:         ticketOwner(s.store.Repos, func(r GetTicket) string { return r.TicketID }),
		AdminOverride: true,
		Resource:      "ticket",
	}))
	dispatch.Register(reg, dispatch.HandlerFunc[ListTicketHistory, []domain.TicketHistory](s.ListTicketHistory), dispatch.WithPolicy(dispatch.Policy[ListTicketHistory]{
		Owner:         ticketOwner(s.store.Repos, func(r ListTicketHistory) string { return r.TicketID }),
		AdminOverride: true,
		Resource:      "ticket",
	}))
	dispatch.Register(reg, dispatch.HandlerFunc[ListMyTickets, Page[domain.Ticket]](s.ListMyTickets), dispatch.Authenticated())
	dispatch.Register(reg, dispatch.HandlerFunc[ListTickets, Page[domain.Ticket]](s.ListTickets), dispatch.AdminOnly())
	dispatch.Register(reg, dispatch.HandlerFunc[AssignTicket, domain.Ticket](s.AssignTicket), dispatch.AdminOnly())
	dispatch.Register(reg, dispatch.HandlerFunc[EscalateTicket, domain.Ticket](s.EscalateTicket), dispatch.AdminOnly())
	dispatch.Register(reg, dispatch.HandlerFunc[CloseTicket, domain.Ticket](s.CloseTicket), dispatch.WithPolicy(dispatch.Policy[CloseTicket]{
		Owner:         ticketOwner(s.store.Repos, func(r CloseTicket) string { return r.TicketID }),
		AdminOverride: true,
		Resource:      "ticket",
	}))
	dispatch.Register(reg, dispatch.HandlerFunc[ReopenTicket, domain.Ticket](s.ReopenTicket), dispatch.WithPolicy(dispatch.Policy[ReopenTicket]{
		Owner:         ticketOwner(s.store.Repos, func(r ReopenTicket) string { return r.TicketID }),
		AdminOverride: true,
		Resource:      "ticket",
	}))
	dispatch.Register(reg, dispatch.HandlerFunc[UpdateTicketStatus, domain.Ticket](s.UpdateTicketStatus), dispatch.AdminOnly())
}

func ticketOwner[Req any](repos func() repository.Repositories, id func(Req) string) func(context.Context, Req) (result.Result[string], error) {
	return ownerOf("ticket", func(ctx context.Context, req Req) (*domain.Ticket, error) {
		return repos().Tickets.GetByID(ctx, id(req))
	}, func(t *domain.Ticket) string { return t.OwnerID })
}

// CreateTicket creates a ticket for the caller. A referenced persona must
// be visible to the caller.
func (s *TicketService) CreateTicket(ctx context.Context, req CreateTicket) (result.Result[domain.Ticket], error) {
	actor := s.actor(ctx)
	now := s.now()
	priority := domain.TicketPriorityMedium
	if req.Priority != "" {
		priority = domain.TicketPriorities.Parse(req.Priority).Value()
	}

	ticket := &domain.Ticket{
		ID:          s.newID(),
		OwnerID:     actor.ID,
		PersonaID:   optionalString(req.PersonaID),
		Subject:     strings.TrimSpace(req.Subject),
		Description: strings.TrimSpace(req.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if ticket.PersonaID != nil {
			persona, err := tx.Personas.GetByID(ctx, *ticket.PersonaID)
			if err != nil || !persona.AccessibleBy(actor.ID) {
				return notFoundOr(err, "persona")
			}
		}
		return tx.Tickets.Create(ctx, ticket)
	})
	if err != nil {
		return failed[domain.Ticket](err, "ticket")
	}

	s.publish(ctx, actor.ID, events.Event{
		Type:      events.EventTicketCreated,
		SubjectID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			OwnerID:   ticket.OwnerID,
			PersonaID: ticket.PersonaID,
			Priority:  ticket.Priority,
			Subject:   ticket.Subject,
		},
	})
	return result.Success(*ticket), nil
}

// GetTicket returns a ticket to its owner or an admin.
func (s *TicketService) GetTicket(ctx context.Context, req GetTicket) (result.Result[domain.Ticket], error) {
	ticket, err := s.store.Repos().Tickets.GetByID(ctx, req.TicketID)
	if err != nil {
		return failed[domain.Ticket](err, "ticket")
	}
	return result.Success(*ticket), nil
}

// ListTicketHistory returns audit entries oldest first.
func (s *TicketService) ListTicketHistory(ctx context.Context, req ListTicketHistory) (result.Result[[]domain.TicketHistory], error) {
	entries, err := s.store.Repos().History.ListByTicket(ctx, req.TicketID)
	if err != nil {
		return failed[[]domain.TicketHistory](err, "ticket")
	}
	if entries == nil {
		entries = []domain.TicketHistory{}
	}
	return result.Success(entries), nil
}

// ListMyTickets returns the caller's tickets, most recently updated first.
func (s *TicketService) ListMyTickets(ctx context.Context, req ListMyTickets) (result.Result[Page[domain.Ticket]], error) {
	ownerID := s.actor(ctx).ID
	return s.list(ctx, repository.TicketFilter{
		OwnerID:    &ownerID,
		Statuses:   domain.TicketStatuses.ParseAll(req.Statuses).Value(),
		Priorities: domain.TicketPriorities.ParseAll(req.Priorities).Value(),
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
}

// ListTickets returns every ticket matching the admin filters.
func (s *TicketService) ListTickets(ctx context.Context, req ListTickets) (result.Result[Page[domain.Ticket]], error) {
	return s.list(ctx, repository.TicketFilter{
		AssigneeID: optionalString(req.AssigneeID),
		Statuses:   domain.TicketStatuses.ParseAll(req.Statuses).Value(),
		Priorities: domain.TicketPriorities.ParseAll(req.Priorities).Value(),
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
}

func (s *TicketService) list(ctx context.Context, filter repository.TicketFilter) (result.Result[Page[domain.Ticket]], error) {
	items, total, err := s.store.Repos().Tickets.List(ctx, filter)
	if err != nil {
		return failed[Page[domain.Ticket]](err, "ticket")
	}
	return result.Success(newPage(items, total, filter.Limit, filter.Offset)), nil
}

// AssignTicket assigns the ticket and moves it into progress. An explicit
// assignee other than the caller must be an existing admin.
func (s *TicketService) AssignTicket(ctx context.Context, req AssignTicket) (result.Result[domain.Ticket], error) {
	actor := s.actor(ctx)
	assigneeID := req.AssigneeID
	if assigneeID == "" {
		assigneeID = actor.ID
	}

	var (
		out       domain.Ticket
		oldStatus domain.TicketStatus
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		ticket, err := tx.Tickets.GetByID(ctx, req.TicketID)
		if err != nil {
			return err
		}
		if assigneeID != actor.ID {
			assignee, err := tx.Users.GetByID(ctx, assigneeID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if assignee == nil || !assignee.IsAdmin {
				return &domain.RuleError{Field: "assignee_id", Message: "assignee must be an existing admin"}
			}
		}
		oldStatus = ticket.Status
		var oldAssignee any
		if ticket.AssigneeID != nil {
			oldAssignee = *ticket.AssigneeID
		}
		now := s.now()
		if err := ticket.Assign(assigneeID, now); err != nil {
			return err
		}
		if err := tx.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if err := s.record(ctx, tx, ticket, actor.ID, domain.ChangeTypeAssignee,
			map[string]any{"assignee_id": oldAssignee}, map[string]any{"assignee_id": assigneeID}); err != nil {
			return err
		}
		if oldStatus != ticket.Status {
			if err := s.recordStatus(ctx, tx, ticket, actor.ID, oldStatus, "assigned"); err != nil {
				return err
			}
		}
		out = *ticket
		return nil
	})
	if err != nil {
		return failed[domain.Ticket](err, "ticket")
	}

	evts := []events.Event{{
		Type:      events.EventTicketAssigned,
		SubjectID: out.ID,
		Payload:   events.TicketAssignedPayload{AssigneeID: assigneeID},
	}}
	if oldStatus != out.Status {
		evts = append(evts, statusChanged(out, oldStatus, "assigned"))
	}
	s.publish(ctx, actor.ID, evts...)
	return result.Success(out), nil
}

// EscalateTicket raises priority one step, holding at Urgent, and forces
// the ticket into progress.
func (s *TicketService) EscalateTicket(ctx context.Context, req EscalateTicket) (result.Result[domain.Ticket], error) {
	actor := s.actor(ctx)
	var (
		out         domain.Ticket
		oldStatus   domain.TicketStatus
		oldPriority domain.TicketPriority
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		ticket, err := tx.Tickets.GetByID(ctx, req.TicketID)
		if err != nil {
			return err
		}
		oldStatus = ticket.Status
		if oldPriority, err = ticket.Escalate(s.now()); err != nil {
			return err
		}
		if err := tx.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if oldPriority != ticket.Priority {
			if err := s.record(ctx, tx, ticket, actor.ID, domain.ChangeTypePriority,
				map[string]any{"priority": oldPriority}, map[string]any{"priority": ticket.Priority}); err != nil {
				return err
			}
		}
		if oldStatus != ticket.Status {
			if err := s.recordStatus(ctx, tx, ticket, actor.ID, oldStatus, "escalated"); err != nil {
				return err
			}
		}
		out = *ticket
		return nil
	})
	if err != nil {
		return failed[domain.Ticket](err, "ticket")
	}

	var evts []events.Event
	if oldPriority != out.Priority {
		evts = append(evts, events.Event{
			Type:      events.EventTicketPriorityChanged,
			SubjectID: out.ID,
			Payload:   events.TicketPriorityChangedPayload{OldPriority: oldPriority, NewPriority: out.Priority},
		})
	}
	if oldStatus != out.Status {
		evts = append(evts, statusChanged(out, oldStatus, "escalated"))
	}
	s.publish(ctx, actor.ID, evts...)
	return result.Success(out), nil
}

// CloseTicket resolves the ticket. An already resolved ticket is returned
// unchanged without a write.
func (s *TicketService) CloseTicket(ctx context.Context, req CloseTicket) (result.Result[domain.Ticket], error) {
	actor := s.actor(ctx)
	var (
		out       domain.Ticket
		oldStatus domain.TicketStatus
		changed   bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		ticket, err := tx.Tickets.GetByID(ctx, req.TicketID)
		if err != nil {
			return err
		}
		oldStatus = ticket.Status
		changed, err = ticket.Close(optionalString(strings.TrimSpace(req.Resolution)), s.now())
		if err != nil {
			return err
		}
		out = *ticket
		if !changed {
			return nil
		}
		if err := tx.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		out = *ticket
		return s.recordStatus(ctx, tx, ticket, actor.ID, oldStatus, req.Resolution)
	})
	if err != nil {
		return failed[domain.Ticket](err, "ticket")
	}
	if changed {
		s.publish(ctx, actor.ID, statusChanged(out, oldStatus, req.Resolution))
	}
	return result.Success(out), nil
}

// ReopenTicket moves a resolved or closed ticket back to Open.
func (s *TicketService) ReopenTicket(ctx context.Context, req ReopenTicket) (result.Result[domain.Ticket], error) {
	return s.move(ctx, req.TicketID, req.Reason, func(t *domain.Ticket) error {
		return t.Reopen(s.now())
	})
}

// UpdateTicketStatus applies any move the transition table allows.
func (s *TicketService) UpdateTicketStatus(ctx context.Context, req UpdateTicketStatus) (result.Result[domain.Ticket], error) {
	next := domain.TicketStatuses.Parse(req.Status).Value()
	return s.move(ctx, req.TicketID, req.Comment, func(t *domain.Ticket) error {
		return t.TransitionTo(next, s.now())
	})
}

func (s *TicketService) move(ctx context.Context, ticketID, comment string, apply func(*domain.Ticket) error) (result.Result[domain.Ticket], error) {
	actor := s.actor(ctx)
	var (
		out       domain.Ticket
		oldStatus domain.TicketStatus
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		ticket, err := tx.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			return err
		}
		oldStatus = ticket.Status
		if err := apply(ticket); err != nil {
			return err
		}
		if err := tx.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		out = *ticket
		return s.recordStatus(ctx, tx, ticket, actor.ID, oldStatus, comment)
	})
	if err != nil {
		return failed[domain.Ticket](err, "ticket")
	}
	s.publish(ctx, actor.ID, statusChanged(out, oldStatus, comment))
	return result.Success(out), nil
}

func (s *TicketService) record(ctx context.Context, tx repository.Repositories, ticket *domain.Ticket, actorID string, change domain.TicketChangeType, oldValue, newValue map[string]any) error {
	return tx.History.Create(ctx, &domain.TicketHistory{
		ID:          s.newID(),
		TicketID:    ticket.ID,
		ChangedByID: actorID,
		ChangeType:  change,
		OldValue:    oldValue,
		NewValue:    newValue,
		CreatedAt:   ticket.UpdatedAt,
	})
}

func (s *TicketService) recordStatus(ctx context.Context, tx repository.Repositories, ticket *domain.Ticket, actorID string, oldStatus domain.TicketStatus, comment string) error {
	newValue := map[string]any{"status": ticket.Status}
	if comment != "" {
		newValue["comment"] = comment
	}
	return s.record(ctx, tx, ticket, actorID, domain.ChangeTypeStatus, map[string]any{"status": oldStatus}, newValue)
}

func statusChanged(t domain.Ticket, oldStatus domain.TicketStatus, comment string) events.Event {
	return events.Event{
		Type:      events.EventTicketStatusChanged,
		SubjectID: t.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: t.Status,
			Comment:   comment,
		},
	}
}

// notFoundOr maps a failed or hidden lookup to NotFound and passes
// collaborator faults through.
func notFoundOr(err error, resource string) error {
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return reject(result.StatusNotFound, resource+" not found")
}
