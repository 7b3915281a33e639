package domain

import "time"

// PersonaStatus enumerates persona lifecycle states.
type PersonaStatus string

const (
	PersonaStatusActive    PersonaStatus = "ACTIVE"
	PersonaStatusSuspended PersonaStatus = "SUSPENDED"
	PersonaStatusArchived  PersonaStatus = "ARCHIVED"
)

var PersonaStatuses = NewFiniteSet("status", PersonaStatusActive, PersonaStatusSuspended, PersonaStatusArchived)

// Persona is a user-created chat character.
type Persona struct {
	ID          string
	CreatorID   string
	Name        string
	Description string
	ImagePath   string
	IsPublic    bool
	Status      PersonaStatus
	ArchivedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int
}

// PersonaSnapshot freezes persona display fields for records that outlive it.
type PersonaSnapshot struct {
	Name      string
	ImagePath string
	DeletedAt time.Time
}

var personaTransitions = map[PersonaStatus][]PersonaStatus{
	PersonaStatusActive:    {PersonaStatusSuspended, PersonaStatusArchived},
	PersonaStatusSuspended: {PersonaStatusActive},
	PersonaStatusArchived:  {},
}

func (p *Persona) move(next PersonaStatus, action string, now time.Time) error {
	for _, candidate := range personaTransitions[p.Status] {
		if candidate == next {
			p.Status = next
			p.UpdatedAt = now
			return nil
		}
	}
	return &TransitionError{Entity: "persona", From: string(p.Status), Action: action}
}

// Suspend is the moderation action.
func (p *Persona) Suspend(now time.Time) error {
	return p.move(PersonaStatusSuspended, "suspend", now)
}

// Reinstate lifts a moderation suspension.
func (p *Persona) Reinstate(now time.Time) error {
	return p.move(PersonaStatusActive, "reinstate", now)
}

// Archive is the owner's soft delete. It returns the snapshot every
// referencing record must receive.
func (p *Persona) Archive(now time.Time) (PersonaSnapshot, error) {
	if err := p.move(PersonaStatusArchived, "archive", now); err != nil {
		return PersonaSnapshot{}, err
	}
	p.ArchivedAt = &now
	return PersonaSnapshot{Name: p.Name, ImagePath: p.ImagePath, DeletedAt: now}, nil
}

// Editable reports whether owner edits are still allowed.
func (p *Persona) Editable() bool {
	return p.Status != PersonaStatusArchived
}

// IsPubliclyVisible is true for public personas that are active.
func (p *Persona) IsPubliclyVisible() bool {
	return p.IsPublic && p.Status == PersonaStatusActive
}

// AccessibleBy applies the read rule: public-and-active for everyone, any
// status for the creator.
func (p *Persona) AccessibleBy(userID string) bool {
	if userID != "" && userID == p.CreatorID {
		return true
	}
	return p.IsPubliclyVisible()
}
