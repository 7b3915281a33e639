package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/events"
	"github.com/personahub/chat-backend/internal/result"
)

func TestCreateAndUpdatePersona(t *testing.T) {
	f := newFixture(t)

	p := requireOK(t, send[CreatePersona, domain.Persona](t, f.as(ownerID), f.d, CreatePersona{Name: "Nova", IsPublic: true}))
	assert.Equal(t, ownerID, p.CreatorID)
	assert.Equal(t, domain.PersonaStatusActive, p.Status)

	name := "Nova Prime"
	updated := requireOK(t, send[UpdatePersona, domain.Persona](t, f.as(ownerID), f.d, UpdatePersona{PersonaID: p.ID, Name: &name}))
	assert.Equal(t, "Nova Prime", updated.Name)
	assert.True(t, updated.IsPublic)

	res := send[UpdatePersona, domain.Persona](t, f.as(adminID), f.d, UpdatePersona{PersonaID: p.ID, Name: &name})
	assert.Equal(t, result.StatusForbidden, res.Status(), "persona edits have no admin override")
}

func TestGetPersonaAccessRule(t *testing.T) {
	f := newFixture(t)
	f.seedPersona("p-public", true)
	f.seedPersona("p-private", false)

	tests := []struct {
		name   string
		ctx    context.Context
		id     string
		status result.Status
	}{
		{"anonymous public", f.anonymous(), "p-public", result.StatusOK},
		{"anonymous private", f.anonymous(), "p-private", result.StatusNotFound},
		{"other private", f.as(otherID), "p-private", result.StatusNotFound},
		{"creator private", f.as(ownerID), "p-private", result.StatusOK},
		{"missing", f.as(ownerID), "p-404", result.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := send[GetPersona, domain.Persona](t, tt.ctx, f.d, GetPersona{PersonaID: tt.id})
			assert.Equal(t, tt.status, res.Status())
		})
	}
}

func TestSuspendedPersonaHiddenFromPublic(t *testing.T) {
	f := newFixture(t)
	f.seedPersona("p-1", true)

	suspended := requireOK(t, send[SuspendPersona, domain.Persona](t, f.as(adminID), f.d, SuspendPersona{PersonaID: "p-1"}))
	assert.Equal(t, domain.PersonaStatusSuspended, suspended.Status)
	assert.Len(t, f.emitted(events.EventPersonaSuspended), 1)

	res := send[GetPersona, domain.Persona](t, f.as(otherID), f.d, GetPersona{PersonaID: "p-1"})
	assert.Equal(t, result.StatusNotFound, res.Status())
	page := requireOK(t, send[ListPublicPersonas, Page[domain.Persona]](t, f.anonymous(), f.d, ListPublicPersonas{}))
	assert.Empty(t, page.Items)

	res = send[SuspendPersona, domain.Persona](t, f.as(adminID), f.d, SuspendPersona{PersonaID: "p-1"})
	assert.Equal(t, result.StatusConflict, res.Status())

	reinstated := requireOK(t, send[ReinstatePersona, domain.Persona](t, f.as(adminID), f.d, ReinstatePersona{PersonaID: "p-1"}))
	assert.Equal(t, domain.PersonaStatusActive, reinstated.Status)
	page = requireOK(t, send[ListPublicPersonas, Page[domain.Persona]](t, f.anonymous(), f.d, ListPublicPersonas{}))
	assert.Len(t, page.Items, 1)
}

func TestArchivePersonaFreezesSnapshots(t *testing.T) {
	f := newFixture(t)
	f.seedPersona("p-1", true)

	session := requireOK(t, send[StartChatSession, ChatSessionView](t, f.as(otherID), f.d, StartChatSession{PersonaID: "p-1"}))
	assert.Equal(t, "Nova", session.Title)
	ticket := requireOK(t, send[CreateTicket, domain.Ticket](t, f.as(otherID), f.d, CreateTicket{
		Subject: "rude persona", Description: "d", PersonaID: "p-1",
	}))

	f.clock.Advance(time.Hour)
	archivedAt := f.clock.Now()
	archived := requireOK(t, send[ArchivePersona, domain.Persona](t, f.as(ownerID), f.d, ArchivePersona{PersonaID: "p-1"}))
	assert.Equal(t, domain.PersonaStatusArchived, archived.Status)
	require.NotNil(t, archived.ArchivedAt)

	view := requireOK(t, send[GetChatSession, ChatSessionView](t, f.as(otherID), f.d, GetChatSession{SessionID: session.ID}))
	assert.Equal(t, "Nova", view.PersonaName)
	assert.Equal(t, "/files/nova.png", view.PersonaImage)
	require.NotNil(t, view.PersonaDeletedAt)
	assert.Equal(t, archivedAt, *view.PersonaDeletedAt)

	frozen := f.ticket(ticket.ID)
	require.NotNil(t, frozen.PersonaSnapshot)
	assert.Equal(t, "Nova", frozen.PersonaSnapshot.Name)

	archivedEvents := f.emitted(events.EventPersonaArchived)
	require.Len(t, archivedEvents, 1)
	payload := archivedEvents[0].Payload.(events.PersonaArchivedPayload)
	assert.Equal(t, 1, payload.SessionsFrozen)
	assert.Equal(t, 1, payload.TicketsFrozen)

	// Archived personas reject edits and a second archive, so the snapshot
	// stays as first written.
	name := "Renamed"
	res := send[UpdatePersona, domain.Persona](t, f.as(ownerID), f.d, UpdatePersona{PersonaID: "p-1", Name: &name})
	assert.Equal(t, result.StatusConflict, res.Status())
	res = send[ArchivePersona, domain.Persona](t, f.as(ownerID), f.d, ArchivePersona{PersonaID: "p-1"})
	assert.Equal(t, result.StatusConflict, res.Status())

	view = requireOK(t, send[GetChatSession, ChatSessionView](t, f.as(otherID), f.d, GetChatSession{SessionID: session.ID}))
	assert.Equal(t, "Nova", view.PersonaName)

	start := send[StartChatSession, ChatSessionView](t, f.as(ownerID), f.d, StartChatSession{PersonaID: "p-1"})
	assert.Equal(t, result.StatusConflict, start.Status())
}

func TestArchivePersonaIsOwnerOnly(t *testing.T) {
	f := newFixture(t)
	f.seedPersona("p-1", true)
	commits := f.store.Commits()

	for _, caller := range []string{otherID, adminID} {
		res := send[ArchivePersona, domain.Persona](t, f.as(caller), f.d, ArchivePersona{PersonaID: "p-1"})
		assert.Equal(t, result.StatusForbidden, res.Status())
	}
	assert.Equal(t, commits, f.store.Commits())
}

func TestUploadPersonaImage(t *testing.T) {
	f := newFixture(t)
	f.seedPersona("p-1", true)

	p := requireOK(t, send[UploadPersonaImage, domain.Persona](t, f.as(ownerID), f.d, UploadPersonaImage{
		PersonaID:   "p-1",
		FileName:    "Avatar.PNG",
		ContentType: "image/png",
		Size:        4,
		Body:        strings.NewReader("\x89PNG"),
	}))
	assert.True(t, strings.HasPrefix(p.ImagePath, "/files/personas/p-1/"))
	assert.True(t, strings.HasSuffix(p.ImagePath, ".png"))
	assert.Len(t, f.files.puts, 1)
}

func TestUploadPersonaImageStoreFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.seedPersona("p-1", true)
	f.files.err = errors.New("bucket unavailable")
	commits := f.store.Commits()

	res := send[UploadPersonaImage, domain.Persona](t, f.as(ownerID), f.d, UploadPersonaImage{
		PersonaID: "p-1", FileName: "a.png", ContentType: "image/png", Size: 1, Body: strings.NewReader("x"),
	})
	assert.Equal(t, result.StatusInternal, res.Status())
	assert.Equal(t, "image upload failed", res.Message())
	assert.Equal(t, commits, f.store.Commits())
}

func TestUploadPersonaImageValidation(t *testing.T) {
	f := newFixture(t)
	f.seedPersona("p-1", true)

	res := send[UploadPersonaImage, domain.Persona](t, f.as(ownerID), f.d, UploadPersonaImage{
		PersonaID: "p-1", FileName: "a.gif", ContentType: "image/gif",
	})
	require.Equal(t, result.StatusValidationFailed, res.Status())
	fields := map[string]bool{}
	for _, fe := range res.Problem().Fields {
		fields[fe.Field] = true
	}
	assert.True(t, fields["content_type"])
	assert.True(t, fields["size"])
	assert.Empty(t, f.files.puts)
}

func TestStartChatSessionNeedsAccessiblePersona(t *testing.T) {
	f := newFixture(t)
	f.seedPersona("p-private", false)

	res := send[StartChatSession, ChatSessionView](t, f.as(otherID), f.d, StartChatSession{PersonaID: "p-private"})
	assert.Equal(t, result.StatusNotFound, res.Status())

	own := requireOK(t, send[StartChatSession, ChatSessionView](t, f.as(ownerID), f.d, StartChatSession{PersonaID: "p-private", Title: "drafting"}))
	assert.Equal(t, "drafting", own.Title)
	assert.Equal(t, "Nova", own.PersonaName)
	assert.Nil(t, own.PersonaDeletedAt)

	res = send[GetChatSession, ChatSessionView](t, f.as(otherID), f.d, GetChatSession{SessionID: own.ID})
	assert.Equal(t, result.StatusForbidden, res.Status())
}
