package domain

import "time"

// ChatSession is a conversation between a user and a persona.
type ChatSession struct {
	ID              string
	UserID          string
	PersonaID       string
	Title           string
	PersonaSnapshot *PersonaSnapshot
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FreezePersona records the snapshot once; later calls keep the first one.
func (s *ChatSession) FreezePersona(snap PersonaSnapshot) bool {
	if s.PersonaSnapshot != nil {
		return false
	}
	cp := snap
	s.PersonaSnapshot = &cp
	s.UpdatedAt = snap.DeletedAt
	return true
}

// Device is a push-notification registration.
type Device struct {
	ID        string
	UserID    string
	Platform  string
	PushToken string
	CreatedAt time.Time
}
