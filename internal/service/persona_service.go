package service

import (
	"context"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/events"
	"github.com/personahub/chat-backend/internal/repository"
	"github.com/personahub/chat-backend/internal/result"
)

// MaxPersonaImageBytes bounds persona image uploads.
const MaxPersonaImageBytes = 5 << 20

// CreatePersona creates a persona owned by the caller.
type CreatePersona struct {
	Name        string `json:"name" validate:"required,max=80"`
	Description string `json:"description" validate:"max=2000"`
	IsPublic    bool   `json:"is_public"`
}

func (CreatePersona) RequestName() string { return "create_persona" }

// UpdatePersona edits the display fields. Nil fields are left as they are.
type UpdatePersona struct {
	PersonaID   string  `json:"persona_id" validate:"required"`
	Name        *string `json:"name" validate:"omitempty,min=1,max=80"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	IsPublic    *bool   `json:"is_public"`
}

func (UpdatePersona) RequestName() string { return "update_persona" }

// GetPersona reads one persona under the access rule.
type GetPersona struct {
	PersonaID string `json:"persona_id" validate:"required"`
}

func (GetPersona) RequestName() string { return "get_persona" }

// ListPublicPersonas lists public, active personas, newest first.
type ListPublicPersonas struct {
	Limit  int `json:"limit" validate:"gte=0,lte=100"`
	Offset int `json:"offset" validate:"gte=0"`
}

func (ListPublicPersonas) RequestName() string { return "list_public_personas" }

// SuspendPersona is the moderation action.
type SuspendPersona struct {
	PersonaID string `json:"persona_id" validate:"required"`
	Reason    string `json:"reason" validate:"max=500"`
}

func (SuspendPersona) RequestName() string { return "suspend_persona" }

// ReinstatePersona lifts a moderation suspension.
type ReinstatePersona struct {
	PersonaID string `json:"persona_id" validate:"required"`
}

func (ReinstatePersona) RequestName() string { return "reinstate_persona" }

// ArchivePersona is the owner's soft delete.
type ArchivePersona struct {
	PersonaID string `json:"persona_id" validate:"required"`
}

func (ArchivePersona) RequestName() string { return "archive_persona" }

// UploadPersonaImage replaces the persona image.
type UploadPersonaImage struct {
	PersonaID   string    `json:"persona_id" validate:"required"`
	FileName    string    `json:"file_name" validate:"required,max=255"`
	ContentType string    `json:"content_type" validate:"required,oneof=image/png image/jpeg image/webp"`
	Size        int64     `json:"size" validate:"gt=0,lte=5242880"`
	Body        io.Reader `json:"-" validate:"required"`
}

func (UploadPersonaImage) RequestName() string { return "upload_persona_image" }

// PersonaService manages persona lifecycles.
type PersonaService struct {
	base
	files FileStore
}

// NewPersonaService constructs the service.
func NewPersonaService(deps Dependencies) *PersonaService {
	return &PersonaService{base: newBase(deps), files: deps.Files}
}

func (s *PersonaService) register(reg *dispatch.Registry) {
	dispatch.Register(reg, dispatch.HandlerFunc[CreatePersona, domain.Persona](s.CreatePersona), dispatch.Authenticated())
	dispatch.Register(reg, dispatch.HandlerFunc[UpdatePersona, domain.Persona](s.UpdatePersona), dispatch.WithPolicy(dispatch.Policy[UpdatePersona]{
		Owner:    personaOwner(s.store.Repos, func(r UpdatePersona) string { return r.PersonaID }),
		Resource: "persona",
	}))
	dispatch.Register(reg, dispatch.HandlerFunc[GetPersona, domain.Persona](s.GetPersona), dispatch.Anonymous())
	dispatch.Register(reg, dispatch.HandlerFunc[ListPublicPersonas, Page[domain.Persona]](s.ListPublicPersonas), dispatch.Anonymous())
	dispatch.Register(reg, dispatch.HandlerFunc[SuspendPersona, domain.Persona](s.SuspendPersona), dispatch.AdminOnly())
	dispatch.Register(reg, dispatch.HandlerFunc[ReinstatePersona, domain.Persona](s.ReinstatePersona), dispatch.AdminOnly())
	dispatch.Register(reg, dispatch.HandlerFunc[ArchivePersona, domain.Persona](s.ArchivePersona), dispatch.WithPolicy(dispatch.Policy[ArchivePersona]{
		Owner:    personaOwner(s.store.Repos, func(r ArchivePersona) string { return r.PersonaID }),
		Resource: "persona",
	}))
	dispatch.Register(reg, dispatch.HandlerFunc[UploadPersonaImage, domain.Persona](s.UploadPersonaImage), dispatch.WithPolicy(dispatch.Policy[UploadPersonaImage]{
		Owner:    personaOwner(s.store.Repos, func(r UploadPersonaImage) string { return r.PersonaID }),
		Resource: "persona",
	}))
}

func personaOwner[Req any](repos func() repository.Repositories, id func(Req) string) func(context.Context, Req) (result.Result[string], error) {
	return ownerOf("persona", func(ctx context.Context, req Req) (*domain.Persona, error) {
		return repos().Personas.GetByID(ctx, id(req))
	}, func(p *domain.Persona) string { return p.CreatorID })
}

// CreatePersona stores an active persona.
func (s *PersonaService) CreatePersona(ctx context.Context, req CreatePersona) (result.Result[domain.Persona], error) {
	now := s.now()
	persona := &domain.Persona{
		ID:          s.newID(),
		CreatorID:   s.actor(ctx).ID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		IsPublic:    req.IsPublic,
		Status:      domain.PersonaStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		return tx.Personas.Create(ctx, persona)
	})
	if err != nil {
		return failed[domain.Persona](err, "persona")
	}
	return result.Success(*persona), nil
}

// UpdatePersona edits an active or suspended persona.
func (s *PersonaService) UpdatePersona(ctx context.Context, req UpdatePersona) (result.Result[domain.Persona], error) {
	return s.mutate(ctx, req.PersonaID, func(p *domain.Persona) error {
		if !p.Editable() {
			return &domain.TransitionError{Entity: "persona", From: string(p.Status), Action: "edit", Reason: "archived personas cannot be edited"}
		}
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			p.Description = strings.TrimSpace(*req.Description)
		}
		if req.IsPublic != nil {
			p.IsPublic = *req.IsPublic
		}
		p.UpdatedAt = s.now()
		return nil
	})
}

// GetPersona hides personas the caller may not see behind NotFound.
func (s *PersonaService) GetPersona(ctx context.Context, req GetPersona) (result.Result[domain.Persona], error) {
	actor := s.actor(ctx)
	persona, err := s.store.Repos().Personas.GetByID(ctx, req.PersonaID)
	if err != nil {
		return failed[domain.Persona](err, "persona")
	}
	if !persona.AccessibleBy(actor.ID) && !actor.IsAdmin {
		return result.NotFound[domain.Persona]("persona"), nil
	}
	return result.Success(*persona), nil
}

// ListPublicPersonas returns the public catalogue.
func (s *PersonaService) ListPublicPersonas(ctx context.Context, req ListPublicPersonas) (result.Result[Page[domain.Persona]], error) {
	items, total, err := s.store.Repos().Personas.ListPublic(ctx, req.Limit, req.Offset)
	if err != nil {
		return failed[Page[domain.Persona]](err, "persona")
	}
	return result.Success(newPage(items, total, req.Limit, req.Offset)), nil
}

// SuspendPersona hides an active persona from public reads.
func (s *PersonaService) SuspendPersona(ctx context.Context, req SuspendPersona) (result.Result[domain.Persona], error) {
	res, err := s.mutate(ctx, req.PersonaID, func(p *domain.Persona) error {
		return p.Suspend(s.now())
	})
	if err == nil && res.IsSuccess() {
		s.publish(ctx, s.actor(ctx).ID, events.Event{
			Type:      events.EventPersonaSuspended,
			SubjectID: res.Value().ID,
			Payload:   events.PersonaSuspendedPayload{CreatorID: res.Value().CreatorID},
		})
	}
	return res, err
}

// ReinstatePersona returns a suspended persona to Active.
func (s *PersonaService) ReinstatePersona(ctx context.Context, req ReinstatePersona) (result.Result[domain.Persona], error) {
	return s.mutate(ctx, req.PersonaID, func(p *domain.Persona) error {
		return p.Reinstate(s.now())
	})
}

// ArchivePersona archives the persona and freezes its display fields onto
// every chat session and ticket that references it, in one transaction.
func (s *PersonaService) ArchivePersona(ctx context.Context, req ArchivePersona) (result.Result[domain.Persona], error) {
	var (
		out            domain.Persona
		sessions, tkts int
		snapshot       domain.PersonaSnapshot
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		persona, err := tx.Personas.GetByID(ctx, req.PersonaID)
		if err != nil {
			return err
		}
		if snapshot, err = persona.Archive(s.now()); err != nil {
			return err
		}
		if err := tx.Personas.Update(ctx, persona); err != nil {
			return err
		}

		linked, err := tx.Sessions.ListByPersona(ctx, persona.ID)
		if err != nil {
			return err
		}
		for i := range linked {
			if !linked[i].FreezePersona(snapshot) {
				continue
			}
			if err := tx.Sessions.Update(ctx, &linked[i]); err != nil {
				return err
			}
			sessions++
		}

		tickets, err := tx.Tickets.ListByPersona(ctx, persona.ID)
		if err != nil {
			return err
		}
		for i := range tickets {
			if !tickets[i].FreezePersona(snapshot) {
				continue
			}
			if err := tx.Tickets.Update(ctx, &tickets[i]); err != nil {
				return err
			}
			tkts++
		}
		out = *persona
		return nil
	})
	if err != nil {
		return failed[domain.Persona](err, "persona")
	}

	s.publish(ctx, s.actor(ctx).ID, events.Event{
		Type:      events.EventPersonaArchived,
		SubjectID: out.ID,
		Payload: events.PersonaArchivedPayload{
			CreatorID:      out.CreatorID,
			SessionsFrozen: sessions,
			TicketsFrozen:  tkts,
			SnapshotName:   snapshot.Name,
			SnapshotImage:  snapshot.ImagePath,
		},
	})
	return result.Success(out), nil
}

// UploadPersonaImage stores the image and points the persona at it. A file
// store failure aborts before anything is written.
func (s *PersonaService) UploadPersonaImage(ctx context.Context, req UploadPersonaImage) (result.Result[domain.Persona], error) {
	if s.files == nil {
		return result.Internal[domain.Persona]("file storage is not configured"), nil
	}
	return s.mutate(ctx, req.PersonaID, func(p *domain.Persona) error {
		if !p.Editable() {
			return &domain.TransitionError{Entity: "persona", From: string(p.Status), Action: "edit", Reason: "archived personas cannot be edited"}
		}
		key := path.Join("personas", p.ID, s.newID()+strings.ToLower(path.Ext(req.FileName)))
		location, err := s.files.Put(ctx, key, io.LimitReader(req.Body, MaxPersonaImageBytes), req.Size, req.ContentType)
		if err != nil {
			s.logger.Error("persona image upload failed", zap.String("persona_id", p.ID), zap.Error(err))
			return reject(result.StatusInternal, "image upload failed")
		}
		p.ImagePath = location
		p.UpdatedAt = s.now()
		return nil
	})
}

func (s *PersonaService) mutate(ctx context.Context, personaID string, apply func(*domain.Persona) error) (result.Result[domain.Persona], error) {
	var out domain.Persona
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		persona, err := tx.Personas.GetByID(ctx, personaID)
		if err != nil {
			return err
		}
		if err := apply(persona); err != nil {
			return err
		}
		if err := tx.Personas.Update(ctx, persona); err != nil {
			return err
		}
		out = *persona
		return nil
	})
	return outcome(out, err, "persona")
}
