package domain

import "time"

// TicketStatus enumerates lifecycle states for support tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency, ordered low to high.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

var (
	TicketStatuses   = NewFiniteSet("status", TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed)
	TicketPriorities = NewFiniteSet("priority", TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent)
)

// Next returns the priority one step up; Urgent is its own successor.
func (p TicketPriority) Next() TicketPriority {
	switch p {
	case TicketPriorityLow:
		return TicketPriorityMedium
	case TicketPriorityMedium:
		return TicketPriorityHigh
	default:
		return TicketPriorityUrgent
	}
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	OwnerID     string
	AssigneeID  *string
	PersonaID   *string
	Subject     string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	Resolution  *string
	// Persona display fields frozen when the referenced persona is archived.
	PersonaSnapshot *PersonaSnapshot
	ResolvedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int
}

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusResolved},
	TicketStatusInProgress: {TicketStatusInProgress, TicketStatusResolved},
	TicketStatusResolved:   {TicketStatusOpen, TicketStatusClosed},
	TicketStatusClosed:     {TicketStatusOpen},
}

// CanTransition reports whether the ticket table allows current -> next.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range ticketTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (t *Ticket) illegal(action string) error {
	return &TransitionError{Entity: "ticket", From: string(t.Status), Action: action}
}

// Assign hands the ticket to assigneeID and moves it into progress.
func (t *Ticket) Assign(assigneeID string, now time.Time) error {
	if !CanTransition(t.Status, TicketStatusInProgress) {
		return t.illegal("assign")
	}
	t.AssigneeID = &assigneeID
	t.Status = TicketStatusInProgress
	t.UpdatedAt = now
	return nil
}

// Escalate raises priority by one step and forces the ticket into progress.
// It returns the priority held before the call.
func (t *Ticket) Escalate(now time.Time) (TicketPriority, error) {
	if !CanTransition(t.Status, TicketStatusInProgress) {
		return t.Priority, t.illegal("escalate")
	}
	old := t.Priority
	t.Priority = old.Next()
	t.Status = TicketStatusInProgress
	t.UpdatedAt = now
	return old, nil
}

// Close resolves the ticket. Closing an already resolved ticket changes
// nothing and reports changed=false.
func (t *Ticket) Close(resolution *string, now time.Time) (changed bool, err error) {
	if t.Status == TicketStatusResolved {
		return false, nil
	}
	if !CanTransition(t.Status, TicketStatusResolved) {
		return false, &TransitionError{Entity: "ticket", From: string(t.Status), Action: "close", Reason: "ticket is already closed"}
	}
	t.Status = TicketStatusResolved
	t.Resolution = resolution
	t.ResolvedAt = &now
	t.UpdatedAt = now
	return true, nil
}

// Reopen returns a resolved or closed ticket to Open.
func (t *Ticket) Reopen(now time.Time) error {
	if t.Status != TicketStatusResolved && t.Status != TicketStatusClosed {
		return &TransitionError{Entity: "ticket", From: string(t.Status), Action: "reopen", Reason: "ticket is not closed"}
	}
	t.Status = TicketStatusOpen
	t.Resolution = nil
	t.ResolvedAt = nil
	t.UpdatedAt = now
	return nil
}

// TransitionTo applies an arbitrary move checked against the table.
func (t *Ticket) TransitionTo(next TicketStatus, now time.Time) error {
	if !CanTransition(t.Status, next) {
		return &TransitionError{Entity: "ticket", From: string(t.Status), Action: "move to " + string(next)}
	}
	switch next {
	case TicketStatusResolved:
		t.ResolvedAt = &now
	case TicketStatusOpen:
		t.Resolution = nil
		t.ResolvedAt = nil
	}
	t.Status = next
	t.UpdatedAt = now
	return nil
}

// FreezePersona records the persona snapshot once; a later archive of the
// same persona cannot overwrite it.
func (t *Ticket) FreezePersona(snap PersonaSnapshot) bool {
	if t.PersonaSnapshot != nil {
		return false
	}
	cp := snap
	t.PersonaSnapshot = &cp
	return true
}
