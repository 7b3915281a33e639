package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/repository"
	"github.com/personahub/chat-backend/internal/result"
)

// StartChatSession opens a conversation with a persona.
type StartChatSession struct {
	PersonaID string `json:"persona_id" validate:"required"`
	Title     string `json:"title" validate:"max=120"`
}

func (StartChatSession) RequestName() string { return "start_chat_session" }

// GetChatSession reads one of the caller's sessions.
type GetChatSession struct {
	SessionID string `json:"session_id" validate:"required"`
}

func (GetChatSession) RequestName() string { return "get_chat_session" }

// ChatSessionView is a session with the persona display fields resolved.
// Once the persona is archived those fields come from the frozen snapshot.
type ChatSessionView struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	PersonaID        string     `json:"persona_id"`
	Title            string     `json:"title"`
	PersonaName      string     `json:"persona_name"`
	PersonaImage     string     `json:"persona_image,omitempty"`
	PersonaDeletedAt *time.Time `json:"persona_deleted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ChatService manages chat session records. Message content lives elsewhere.
type ChatService struct {
	base
}

// NewChatService constructs the service.
func NewChatService(deps Dependencies) *ChatService {
	return &ChatService{base: newBase(deps)}
}

func (s *ChatService) register(reg *dispatch.Registry) {
	dispatch.Register(reg, dispatch.HandlerFunc[StartChatSession, ChatSessionView](s.StartChatSession), dispatch.Authenticated())
	dispatch.Register(reg, dispatch.HandlerFunc[GetChatSession, ChatSessionView](s.GetChatSession), dispatch.WithPolicy(dispatch.Policy[GetChatSession]{
		Owner: ownerOf("chat session", func(ctx context.Context, req GetChatSession) (*domain.ChatSession, error) {
			return s.store.Repos().Sessions.GetByID(ctx, req.SessionID)
		}, func(cs *domain.ChatSession) string { return cs.UserID }),
		AdminOverride: true,
		Resource:      "chat session",
	}))
}

// StartChatSession requires a persona the caller can see that is not archived.
func (s *ChatService) StartChatSession(ctx context.Context, req StartChatSession) (result.Result[ChatSessionView], error) {
	actor := s.actor(ctx)
	now := s.now()

	var view ChatSessionView
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		persona, err := tx.Personas.GetByID(ctx, req.PersonaID)
		if err != nil {
			return notFoundOr(err, "persona")
		}
		if !persona.AccessibleBy(actor.ID) {
			return reject(result.StatusNotFound, "persona not found")
		}
		if persona.Status != domain.PersonaStatusActive {
			return &domain.TransitionError{Entity: "persona", From: string(persona.Status), Action: "chat with", Reason: "persona is not available for chat"}
		}

		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = persona.Name
		}
		session := &domain.ChatSession{
			ID:        s.newID(),
			UserID:    actor.ID,
			PersonaID: persona.ID,
			Title:     title,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Sessions.Create(ctx, session); err != nil {
			return err
		}
		view = sessionView(session, persona)
		return nil
	})
	return outcome(view, err, "chat session")
}

// GetChatSession resolves the persona display fields.
func (s *ChatService) GetChatSession(ctx context.Context, req GetChatSession) (result.Result[ChatSessionView], error) {
	repos := s.store.Repos()
	session, err := repos.Sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return failed[ChatSessionView](err, "chat session")
	}
	if session.PersonaSnapshot != nil {
		return result.Success(sessionView(session, nil)), nil
	}

	persona, err := repos.Personas.GetByID(ctx, session.PersonaID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return failed[ChatSessionView](err, "chat session")
	}
	return result.Success(sessionView(session, persona)), nil
}

func sessionView(cs *domain.ChatSession, persona *domain.Persona) ChatSessionView {
	view := ChatSessionView{
		ID:        cs.ID,
		UserID:    cs.UserID,
		PersonaID: cs.PersonaID,
		Title:     cs.Title,
		CreatedAt: cs.CreatedAt,
		UpdatedAt: cs.UpdatedAt,
	}
	switch {
	case cs.PersonaSnapshot != nil:
		deleted := cs.PersonaSnapshot.DeletedAt
		view.PersonaName = cs.PersonaSnapshot.Name
		view.PersonaImage = cs.PersonaSnapshot.ImagePath
		view.PersonaDeletedAt = &deleted
	case persona != nil:
		view.PersonaName = persona.Name
		view.PersonaImage = persona.ImagePath
	}
	return view
}
