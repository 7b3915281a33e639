package events

import (
	"time"

	"github.com/personahub/chat-backend/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventReportResolved        EventType = "report_resolved"
	EventPersonaArchived       EventType = "persona_archived"
	EventPersonaSuspended      EventType = "persona_suspended"
	EventUserSuspended         EventType = "user_suspended"
)

// AllTypes lists every event type in declaration order.
var AllTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketPriorityChanged,
	EventTicketAssigned,
	EventReportResolved,
	EventPersonaArchived,
	EventPersonaSuspended,
	EventUserSuspended,
}

// Event represents a domain event emitted after a successful commit.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	OwnerID   string                `json:"owner_id"`
	PersonaID *string               `json:"persona_id,omitempty"`
	Priority  domain.TicketPriority `json:"priority"`
	Subject   string                `json:"subject"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID string `json:"assignee_id"`
}

// ReportResolvedPayload payload.
type ReportResolvedPayload struct {
	ReporterID string              `json:"reporter_id"`
	Status     domain.ReportStatus `json:"status"`
	Resolution *string             `json:"resolution,omitempty"`
}

// PersonaArchivedPayload payload.
type PersonaArchivedPayload struct {
	CreatorID      string `json:"creator_id"`
	SessionsFrozen int    `json:"sessions_frozen"`
	TicketsFrozen  int    `json:"tickets_frozen"`
	SnapshotName   string `json:"snapshot_name"`
	SnapshotImage  string `json:"snapshot_image,omitempty"`
}

// PersonaSuspendedPayload payload.
type PersonaSuspendedPayload struct {
	CreatorID string `json:"creator_id"`
}

// UserSuspendedPayload payload.
type UserSuspendedPayload struct {
	Until  *time.Time `json:"until,omitempty"`
	Reason *string    `json:"reason,omitempty"`
}
