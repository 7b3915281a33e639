package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesEverySubscriber(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []string
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.SubjectID)
		return errors.New("first failed")
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.SubjectID)
		return nil
	})
	d.Subscribe(EventUserSuspended, func(context.Context, Event) error {
		got = append(got, "unrelated")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated, SubjectID: "t-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first failed")
	assert.Equal(t, []string{"first:t-1", "second:t-1"}, got)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	assert.NoError(t, NewInMemoryDispatcher().Publish(context.Background(), Event{Type: EventReportResolved}))
}

func TestFailedDeliveryCarriesEventContext(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("redis down")
	d.Subscribe(EventPersonaArchived, func(context.Context, Event) error { return nil })
	d.Subscribe(EventPersonaArchived, func(context.Context, Event) error { return boom })
	d.Subscribe(EventPersonaArchived, func(context.Context, Event) error { panic("nil payload") })

	err := d.Publish(context.Background(), Event{ID: "ev-1", Type: EventPersonaArchived, SubjectID: "p-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	failed := FailedDeliveries(err)
	require.Len(t, failed, 2)
	assert.Equal(t, "ev-1", failed[0].EventID)
	assert.Equal(t, "p-1", failed[0].SubjectID)
	assert.Equal(t, 1, failed[0].Handler)
	assert.Equal(t, 2, failed[1].Handler)
	assert.Contains(t, failed[1].Error(), "handler panicked: nil payload")

	assert.Empty(t, FailedDeliveries(nil))
}
