package dto

import (
	"time"

	"github.com/personahub/chat-backend/internal/domain"
)

// PersonaResponse is the outward view of a persona.
type PersonaResponse struct {
	ID          string               `json:"id"`
	CreatorID   string               `json:"creator_id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	ImagePath   string               `json:"image_path,omitempty"`
	IsPublic    bool                 `json:"is_public"`
	Status      domain.PersonaStatus `json:"status"`
	ArchivedAt  *time.Time           `json:"archived_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ReportResponse is the outward view of a content report.
type ReportResponse struct {
	ID           string              `json:"id"`
	ReporterID   string              `json:"reporter_id"`
	TargetType   domain.ReportTarget `json:"target_type"`
	TargetID     string              `json:"target_id"`
	Reason       string              `json:"reason"`
	Details      string              `json:"details,omitempty"`
	Status       domain.ReportStatus `json:"status"`
	ResolvedByID *string             `json:"resolved_by_id,omitempty"`
	Resolution   *string             `json:"resolution,omitempty"`
	ResolvedAt   *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// DeviceResponse is a push registration.
type DeviceResponse struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	PushToken string    `json:"push_token"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdatePersonaRequest is the PATCH body; absent fields stay unchanged.
type UpdatePersonaRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

// Persona maps the entity.
func Persona(p domain.Persona) PersonaResponse {
	return PersonaResponse{
		ID:          p.ID,
		CreatorID:   p.CreatorID,
		Name:        p.Name,
		Description: p.Description,
		ImagePath:   p.ImagePath,
		IsPublic:    p.IsPublic,
		Status:      p.Status,
		ArchivedAt:  p.ArchivedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// Report maps the entity.
func Report(r domain.Report) ReportResponse {
	return ReportResponse{
		ID:           r.ID,
		ReporterID:   r.ReporterID,
		TargetType:   r.TargetType,
		TargetID:     r.TargetID,
		Reason:       r.Reason,
		Details:      r.Details,
		Status:       r.Status,
		ResolvedByID: r.ResolvedByID,
		Resolution:   r.Resolution,
		ResolvedAt:   r.ResolvedAt,
		CreatedAt:    r.CreatedAt,
	}
}

// Device maps the entity.
func Device(d domain.Device) DeviceResponse {
	return DeviceResponse{ID: d.ID, Platform: d.Platform, PushToken: d.PushToken, CreatedAt: d.CreatedAt}
}
