package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/events"
	"github.com/personahub/chat-backend/internal/result"
)

func history(t *testing.T, f *fixture, ticketID string) []domain.TicketHistory {
	t.Helper()
	entries, err := f.store.Repos().History.ListByTicket(context.Background(), ticketID)
	require.NoError(t, err)
	return entries
}

// ============================================================================
// Create / read
// ============================================================================

func TestCreateTicketDefaultsAndEvent(t *testing.T) {
	f := newFixture(t)

	tk := requireOK(t, send[CreateTicket, domain.Ticket](t, f.as(ownerID), f.d, CreateTicket{
		Subject:     "  Billing  ",
		Description: "charged twice",
	}))
	assert.Equal(t, ownerID, tk.OwnerID)
	assert.Equal(t, "Billing", tk.Subject)
	assert.Equal(t, domain.TicketStatusOpen, tk.Status)
	assert.Equal(t, domain.TicketPriorityMedium, tk.Priority)

	created := f.emitted(events.EventTicketCreated)
	require.Len(t, created, 1)
	assert.Equal(t, tk.ID, created[0].SubjectID)
	assert.Equal(t, ownerID, created[0].ActorID)
	assert.Equal(t, t0, created[0].Timestamp)
}

func TestCreateTicketValidationFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	commits := f.store.Commits()

	res := send[CreateTicket, domain.Ticket](t, f.as(ownerID), f.d, CreateTicket{Priority: "SOMEDAY"})
	require.Equal(t, result.StatusValidationFailed, res.Status())

	fields := map[string]bool{}
	for _, fe := range res.Problem().Fields {
		fields[fe.Field] = true
	}
	assert.Equal(t, map[string]bool{"subject": true, "description": true, "priority": true}, fields)
	assert.Equal(t, commits, f.store.Commits())
	assert.Empty(t, f.emitted(events.EventTicketCreated))
}

func TestCreateTicketHiddenPersonaIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.seedPersona("p-private", false)

	res := send[CreateTicket, domain.Ticket](t, f.as(otherID), f.d, CreateTicket{
		Subject: "s", Description: "d", PersonaID: "p-private",
	})
	assert.Equal(t, result.StatusNotFound, res.Status())
	assert.Equal(t, "persona not found", res.Message())
}

func TestGetTicketPolicy(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusOpen, domain.TicketPriorityLow)

	tests := []struct {
		name    string
		ctx     context.Context
		id      string
		status  result.Status
		message string
	}{
		{"owner", f.as(ownerID), "t-1", result.StatusOK, ""},
		{"admin override", f.as(adminID), "t-1", result.StatusOK, ""},
		{"other user", f.as(otherID), "t-1", result.StatusForbidden, "you do not have access to this ticket"},
		{"missing", f.as(ownerID), "t-404", result.StatusNotFound, "ticket not found"},
		{"anonymous", f.anonymous(), "t-1", result.StatusUnauthenticated, "authentication required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := send[GetTicket, domain.Ticket](t, tt.ctx, f.d, GetTicket{TicketID: tt.id})
			assert.Equal(t, tt.status, res.Status())
			assert.Equal(t, tt.message, res.Message())
		})
	}
}

func TestListTicketsAdminOnlyWithTypedFilters(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusOpen, domain.TicketPriorityLow)
	f.seedTicket("t-2", domain.TicketStatusResolved, domain.TicketPriorityHigh)

	res := send[ListTickets, Page[domain.Ticket]](t, f.as(ownerID), f.d, ListTickets{})
	assert.Equal(t, result.StatusForbidden, res.Status())

	res = send[ListTickets, Page[domain.Ticket]](t, f.as(adminID), f.d, ListTickets{Statuses: []string{"resolved"}})
	page := requireOK(t, res)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "t-2", page.Items[0].ID)
	assert.Equal(t, 20, page.Limit)

	res = send[ListTickets, Page[domain.Ticket]](t, f.as(adminID), f.d, ListTickets{Statuses: []string{"PARKED"}})
	assert.Equal(t, result.StatusValidationFailed, res.Status())
}

func TestListMyTicketsOnlyReturnsOwn(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusOpen, domain.TicketPriorityLow)

	mine := requireOK(t, send[ListMyTickets, Page[domain.Ticket]](t, f.as(ownerID), f.d, ListMyTickets{}))
	assert.Equal(t, 1, mine.Total)

	theirs := requireOK(t, send[ListMyTickets, Page[domain.Ticket]](t, f.as(otherID), f.d, ListMyTickets{}))
	assert.Equal(t, 0, theirs.Total)
	assert.NotNil(t, theirs.Items)
}

// ============================================================================
// Escalation
// ============================================================================

func TestEscalateTwice(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusOpen, domain.TicketPriorityLow)

	first := requireOK(t, send[EscalateTicket, domain.Ticket](t, f.as(adminID), f.d, EscalateTicket{TicketID: "t-1"}))
	assert.Equal(t, domain.TicketPriorityMedium, first.Priority)
	assert.Equal(t, domain.TicketStatusInProgress, first.Status)

	second := requireOK(t, send[EscalateTicket, domain.Ticket](t, f.as(adminID), f.d, EscalateTicket{TicketID: "t-1"}))
	assert.Equal(t, domain.TicketPriorityHigh, second.Priority)
	assert.Equal(t, domain.TicketStatusInProgress, second.Status)

	var kinds []domain.TicketChangeType
	for _, h := range history(t, f, "t-1") {
		kinds = append(kinds, h.ChangeType)
	}
	// All three entries share the fixed clock's timestamp; they come back in
	// write order.
	assert.Equal(t, []domain.TicketChangeType{
		domain.ChangeTypePriority, domain.ChangeTypeStatus, domain.ChangeTypePriority,
	}, kinds)
	assert.Len(t, f.emitted(events.EventTicketPriorityChanged), 2)
	assert.Len(t, f.emitted(events.EventTicketStatusChanged), 1)
}

func TestEscalateAtUrgentHoldsPriority(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusOpen, domain.TicketPriorityUrgent)

	tk := requireOK(t, send[EscalateTicket, domain.Ticket](t, f.as(adminID), f.d, EscalateTicket{TicketID: "t-1"}))
	assert.Equal(t, domain.TicketPriorityUrgent, tk.Priority)
	assert.Equal(t, domain.TicketStatusInProgress, tk.Status)

	entries := history(t, f, "t-1")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ChangeTypeStatus, entries[0].ChangeType)
	assert.Empty(t, f.emitted(events.EventTicketPriorityChanged))
}

func TestEscalateResolvedTicketConflicts(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusResolved, domain.TicketPriorityLow)
	commits := f.store.Commits()

	res := send[EscalateTicket, domain.Ticket](t, f.as(adminID), f.d, EscalateTicket{TicketID: "t-1"})
	assert.Equal(t, result.StatusConflict, res.Status())
	assert.Equal(t, commits, f.store.Commits())
	assert.Equal(t, domain.TicketPriorityLow, f.ticket("t-1").Priority)
}

func TestEscalateRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusOpen, domain.TicketPriorityLow)

	res := send[EscalateTicket, domain.Ticket](t, f.as(ownerID), f.d, EscalateTicket{TicketID: "t-1"})
	assert.Equal(t, result.StatusForbidden, res.Status())
	assert.Equal(t, "admin privileges required", res.Message())
}

// ============================================================================
// Assignment
// ============================================================================

func TestAssignDefaultsToCaller(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusOpen, domain.TicketPriorityLow)

	tk := requireOK(t, send[AssignTicket, domain.Ticket](t, f.as(adminID), f.d, AssignTicket{TicketID: "t-1"}))
	require.NotNil(t, tk.AssigneeID)
	assert.Equal(t, adminID, *tk.AssigneeID)
	assert.Equal(t, domain.TicketStatusInProgress, tk.Status)
	assert.Len(t, f.emitted(events.EventTicketAssigned), 1)
}

func TestAssignRejectsNonAdminAssignee(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusOpen, domain.TicketPriorityLow)
	commits := f.store.Commits()

	for _, assignee := range []string{otherID, "u-ghost"} {
		res := send[AssignTicket, domain.Ticket](t, f.as(adminID), f.d, AssignTicket{TicketID: "t-1", AssigneeID: assignee})
		assert.Equal(t, result.StatusValidationFailed, res.Status())
		assert.Equal(t, []result.FieldError{{Field: "assignee_id", Message: "assignee must be an existing admin"}}, res.Problem().Fields)
	}
	assert.Equal(t, commits, f.store.Commits())
}

func TestAssignMissingTicketIsNotFound(t *testing.T) {
	f := newFixture(t)

	res := send[AssignTicket, domain.Ticket](t, f.as(adminID), f.d, AssignTicket{TicketID: "t-404", AssigneeID: otherID})
	assert.Equal(t, result.StatusNotFound, res.Status())
	assert.Equal(t, "ticket not found", res.Message())
}

// ============================================================================
// Close / reopen / status
// ============================================================================

func TestCloseThenReopen(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusInProgress, domain.TicketPriorityLow)

	closed := requireOK(t, send[CloseTicket, domain.Ticket](t, f.as(ownerID), f.d, CloseTicket{TicketID: "t-1", Resolution: "fixed"}))
	assert.Equal(t, domain.TicketStatusResolved, closed.Status)
	require.NotNil(t, closed.Resolution)
	assert.Equal(t, "fixed", *closed.Resolution)
	require.NotNil(t, closed.ResolvedAt)

	f.clock.Advance(time.Hour)
	reopened := requireOK(t, send[ReopenTicket, domain.Ticket](t, f.as(ownerID), f.d, ReopenTicket{TicketID: "t-1", Reason: "again"}))
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Nil(t, reopened.Resolution)
	assert.Nil(t, f.ticket("t-1").Resolution)
	assert.Equal(t, t0.Add(time.Hour), reopened.UpdatedAt)

	entries := history(t, f, "t-1")
	require.Len(t, entries, 2)
	assert.Equal(t, "again", entries[1].NewValue["comment"])
}

func TestCloseResolvedTicketIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusInProgress, domain.TicketPriorityLow)
	requireOK(t, send[CloseTicket, domain.Ticket](t, f.as(ownerID), f.d, CloseTicket{TicketID: "t-1", Resolution: "first"}))
	writes := f.store.Writes()

	f.clock.Advance(time.Minute)
	again := requireOK(t, send[CloseTicket, domain.Ticket](t, f.as(ownerID), f.d, CloseTicket{TicketID: "t-1", Resolution: "second"}))
	assert.Equal(t, "first", *again.Resolution)
	assert.Equal(t, t0, again.UpdatedAt)
	assert.Equal(t, writes, f.store.Writes())
	assert.Len(t, f.emitted(events.EventTicketStatusChanged), 1)
}

func TestCloseClosedTicketConflicts(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusClosed, domain.TicketPriorityLow)

	res := send[CloseTicket, domain.Ticket](t, f.as(ownerID), f.d, CloseTicket{TicketID: "t-1"})
	assert.Equal(t, result.StatusConflict, res.Status())
	assert.Equal(t, "ticket is already closed", res.Message())
}

func TestReopenOpenTicketConflicts(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusOpen, domain.TicketPriorityLow)
	commits := f.store.Commits()

	res := send[ReopenTicket, domain.Ticket](t, f.as(ownerID), f.d, ReopenTicket{TicketID: "t-1"})
	assert.Equal(t, result.StatusConflict, res.Status())
	assert.Equal(t, "ticket is not closed", res.Message())
	assert.Equal(t, commits, f.store.Commits())
	assert.Equal(t, domain.TicketStatusOpen, f.ticket("t-1").Status)
	assert.Empty(t, history(t, f, "t-1"))
}

func TestUpdateTicketStatusFollowsTable(t *testing.T) {
	tests := []struct {
		from   domain.TicketStatus
		to     string
		status result.Status
	}{
		{domain.TicketStatusOpen, "IN_PROGRESS", result.StatusOK},
		{domain.TicketStatusOpen, "closed", result.StatusConflict},
		{domain.TicketStatusInProgress, "IN_PROGRESS", result.StatusOK},
		{domain.TicketStatusInProgress, "OPEN", result.StatusConflict},
		{domain.TicketStatusResolved, "CLOSED", result.StatusOK},
		{domain.TicketStatusClosed, "OPEN", result.StatusOK},
		{domain.TicketStatusClosed, "RESOLVED", result.StatusConflict},
		{domain.TicketStatusOpen, "ARCHIVED", result.StatusValidationFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+tt.to, func(t *testing.T) {
			f := newFixture(t)
			f.seedTicket("t-1", tt.from, domain.TicketPriorityLow)

			res := send[UpdateTicketStatus, domain.Ticket](t, f.as(adminID), f.d, UpdateTicketStatus{TicketID: "t-1", Status: tt.to})
			assert.Equal(t, tt.status, res.Status(), res.Message())
		})
	}
}

// ============================================================================
// Concurrency
// ============================================================================

func TestConcurrentCloseCommitsOnce(t *testing.T) {
	f := newFixture(t)
	f.seedTicket("t-1", domain.TicketStatusInProgress, domain.TicketPriorityLow)
	commits := f.store.Commits()

	ctx := f.as(ownerID)

	const callers = 8
	statuses := make([]result.Status, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := dispatch.Send[CloseTicket, domain.Ticket](ctx, f.d, CloseTicket{TicketID: "t-1", Resolution: "done"})
			assert.NoError(t, err)
			statuses[i] = res.Status()
		}(i)
	}
	wg.Wait()

	for _, s := range statuses {
		assert.Contains(t, []result.Status{result.StatusOK, result.StatusConflict}, s)
	}
	assert.Equal(t, commits+1, f.store.Commits())
	assert.Len(t, history(t, f, "t-1"), 1)
	assert.Equal(t, 2, f.ticket("t-1").Version)
}
