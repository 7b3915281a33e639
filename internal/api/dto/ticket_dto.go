package dto

import (
	"time"

	"github.com/personahub/chat-backend/internal/domain"
)

// PersonaSnapshotResponse carries persona display fields frozen at archive time.
type PersonaSnapshotResponse struct {
	Name      string    `json:"name"`
	ImagePath string    `json:"image_path,omitempty"`
	DeletedAt time.Time `json:"deleted_at"`
}

// TicketResponse is the outward view of a ticket.
type TicketResponse struct {
	ID              string                   `json:"id"`
	OwnerID         string                   `json:"owner_id"`
	AssigneeID      *string                  `json:"assignee_id"`
	PersonaID       *string                  `json:"persona_id"`
	PersonaSnapshot *PersonaSnapshotResponse `json:"persona_snapshot,omitempty"`
	Subject         string                   `json:"subject"`
	Description     string                   `json:"description"`
	Status          domain.TicketStatus      `json:"status"`
	Priority        domain.TicketPriority    `json:"priority"`
	Resolution      *string                  `json:"resolution"`
	ResolvedAt      *time.Time               `json:"resolved_at"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangedByID string                  `json:"changed_by_id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}

// PageResponse wraps a listing with its paging window.
type PageResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Ticket maps the entity.
func Ticket(t domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              t.ID,
		OwnerID:         t.OwnerID,
		AssigneeID:      t.AssigneeID,
		PersonaID:       t.PersonaID,
		PersonaSnapshot: snapshot(t.PersonaSnapshot),
		Subject:         t.Subject,
		Description:     t.Description,
		Status:          t.Status,
		Priority:        t.Priority,
		Resolution:      t.Resolution,
		ResolvedAt:      t.ResolvedAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// TicketHistory maps an audit trail.
func TicketHistory(entries []domain.TicketHistory) []TicketHistoryResponse {
	out := make([]TicketHistoryResponse, 0, len(entries))
	for _, h := range entries {
		out = append(out, TicketHistoryResponse{
			ID:          h.ID,
			ChangedByID: h.ChangedByID,
			ChangeType:  h.ChangeType,
			OldValue:    h.OldValue,
			NewValue:    h.NewValue,
			CreatedAt:   h.CreatedAt,
		})
	}
	return out
}

// MapItems converts each element with fn, never returning nil.
func MapItems[T, U any](items []T, fn func(T) U) []U {
	out := make([]U, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

func snapshot(s *domain.PersonaSnapshot) *PersonaSnapshotResponse {
	if s == nil {
		return nil
	}
	return &PersonaSnapshotResponse{Name: s.Name, ImagePath: s.ImagePath, DeletedAt: s.DeletedAt}
}
