package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans domain events out to subscribers after a commit.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// DeliveryError reports one subscriber that failed to handle an event.
type DeliveryError struct {
	EventID   string
	Type      EventType
	SubjectID string
	// Handler is the subscriber's position in registration order.
	Handler int
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s %s (subject %s) to handler %d: %v", e.Type, e.EventID, e.SubjectID, e.Handler, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// FailedDeliveries lists the DeliveryErrors joined into err.
func FailedDeliveries(err error) []*DeliveryError {
	var out []*DeliveryError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, FailedDeliveries(e)...)
		}
		return out
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		out = append(out, de)
	}
	return out
}

type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

// NewInMemoryDispatcher returns a synchronous dispatcher.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
	}
}

// Publish runs every subscriber of the event's type in order. A failing or
// panicking subscriber does not stop the rest; their DeliveryErrors are
// joined.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for i, handler := range handlers {
		if err := deliver(ctx, handler, event); err != nil {
			errs = append(errs, &DeliveryError{
				EventID:   event.ID,
				Type:      event.Type,
				SubjectID: event.SubjectID,
				Handler:   i,
				Err:       err,
			})
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, event)
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
