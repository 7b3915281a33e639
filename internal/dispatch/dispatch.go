// Package dispatch routes typed requests to their single handler through an
// ordered chain of behaviors.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/personahub/chat-backend/internal/auth"
	"github.com/personahub/chat-backend/internal/result"
)

var (
	// ErrNoHandler is returned when a request type was never registered.
	ErrNoHandler = errors.New("dispatch: no handler registered")
	// ErrResultType is returned when Send asks for a payload type the
	// registered handler does not produce.
	ErrResultType = errors.New("dispatch: result type mismatch")
)

// Request is a command or query value. RequestName is its stable type tag.
type Request interface {
	RequestName() string
}

// Handler is the logic bound to one request type. Expected business
// conditions are reported in the Result; the error carries collaborator
// faults only.
type Handler[Req Request, Res any] interface {
	Handle(ctx context.Context, req Req) (result.Result[Res], error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[Req Request, Res any] func(ctx context.Context, req Req) (result.Result[Res], error)

func (f HandlerFunc[Req, Res]) Handle(ctx context.Context, req Req) (result.Result[Res], error) {
	return f(ctx, req)
}

// Observer receives one notification per completed dispatch.
type Observer interface {
	Observe(ctx context.Context, name string, status result.Status, elapsed time.Duration, err error)
}

type route struct {
	name   string
	res    reflect.Type
	invoke func(ctx context.Context, req Request) (result.Outcome, error)
	rules  []func(req Request) []result.FieldError
	policy policy
}

// Registry collects registrations at startup. It is not safe for
// concurrent use; Build turns it into an immutable Dispatcher.
type Registry struct {
	routes    map[reflect.Type]*route
	names     map[string]reflect.Type
	expected  []reflect.Type
	faults    []error
	behaviors []Behavior
	provider  auth.Provider
	observer  Observer
	validate  *validator.Validate
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithBehaviors appends behaviors after validation and authorization.
func WithBehaviors(behaviors ...Behavior) RegistryOption {
	return func(r *Registry) {
		r.behaviors = append(r.behaviors, behaviors...)
	}
}

// WithProvider sets the principal source. The default reads the principal
// stored on the context.
func WithProvider(p auth.Provider) RegistryOption {
	return func(r *Registry) {
		r.provider = p
	}
}

// WithObserver sets the dispatch observer.
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) {
		r.observer = o
	}
}

// WithValidator replaces the struct-tag validator.
func WithValidator(v *validator.Validate) RegistryOption {
	return func(r *Registry) {
		r.validate = v
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		routes:   make(map[reflect.Type]*route),
		names:    make(map[string]reflect.Type),
		provider: auth.ContextProvider{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.validate == nil {
		r.validate = NewValidator()
	}
	return r
}

// Register binds handler to Req. A second registration for the same type
// or the same request name is recorded as a fault and reported by Build.
func Register[Req Request, Res any](r *Registry, handler Handler[Req, Res], opts ...Option) {
	typ := reflect.TypeOf((*Req)(nil)).Elem()
	var zero Req
	name := zero.RequestName()

	if _, dup := r.routes[typ]; dup {
		r.faults = append(r.faults, fmt.Errorf("dispatch: %s registered more than once", name))
		return
	}
	if other, dup := r.names[name]; dup {
		r.faults = append(r.faults, fmt.Errorf("dispatch: request name %q used by %s and %s", name, other, typ))
		return
	}
	if handler == nil {
		r.faults = append(r.faults, fmt.Errorf("dispatch: nil handler for %s", name))
		return
	}

	rt := &route{
		name: name,
		res:  reflect.TypeOf((*Res)(nil)).Elem(),
		invoke: func(ctx context.Context, req Request) (result.Outcome, error) {
			res, err := handler.Handle(ctx, req.(Req))
			if err != nil {
				return nil, err
			}
			return res, nil
		},
		policy: policy{authenticated: true},
	}
	if _, ok := any(zero).(SelfValidator); ok {
		rt.rules = append(rt.rules, func(req Request) []result.FieldError {
			return req.(SelfValidator).Validate()
		})
	}
	for _, opt := range opts {
		if opt.target != nil && opt.target != typ {
			r.faults = append(r.faults, fmt.Errorf("dispatch: option for %s applied to %s", opt.target, typ))
			continue
		}
		opt.apply(rt)
	}

	r.routes[typ] = rt
	r.names[name] = typ
}

// Expect declares request types that must be bound before Build succeeds.
func (r *Registry) Expect(reqs ...Request) {
	for _, req := range reqs {
		r.expected = append(r.expected, reflect.TypeOf(req))
	}
}

// Build validates the registrations and returns the dispatcher.
func (r *Registry) Build() (*Dispatcher, error) {
	faults := append([]error(nil), r.faults...)
	for _, typ := range r.expected {
		if _, ok := r.routes[typ]; !ok {
			faults = append(faults, fmt.Errorf("dispatch: no handler registered for %s", typ))
		}
	}
	if len(faults) > 0 {
		return nil, errors.Join(faults...)
	}

	routes := make(map[reflect.Type]*route, len(r.routes))
	for typ, rt := range r.routes {
		routes[typ] = rt
	}
	chain := append([]Behavior{validation{validate: r.validate}, authorization{}}, r.behaviors...)

	return &Dispatcher{
		routes:    routes,
		behaviors: chain,
		provider:  r.provider,
		observer:  r.observer,
	}, nil
}

// Dispatcher is the immutable result of Build. It is safe for concurrent use.
type Dispatcher struct {
	routes    map[reflect.Type]*route
	behaviors []Behavior
	provider  auth.Provider
	observer  Observer
}

// Names lists the registered request names in sorted order.
func (d *Dispatcher) Names() []string {
	out := make([]string, 0, len(d.routes))
	for _, rt := range d.routes {
		out = append(out, rt.name)
	}
	sort.Strings(out)
	return out
}

// Send runs req through the behavior chain and its handler.
func Send[Req Request, Res any](ctx context.Context, d *Dispatcher, req Req) (result.Result[Res], error) {
	var zero result.Result[Res]

	rt, ok := d.routes[reflect.TypeOf((*Req)(nil)).Elem()]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNoHandler, req.RequestName())
	}
	if rt.res != reflect.TypeOf((*Res)(nil)).Elem() {
		return zero, fmt.Errorf("%w: %s produces %s", ErrResultType, rt.name, rt.res)
	}

	outcome, err := d.dispatch(ctx, rt, req)
	if err != nil {
		return zero, err
	}
	switch o := outcome.(type) {
	case result.Result[Res]:
		return o, nil
	case nil:
		return zero, fmt.Errorf("dispatch: %s produced no result", rt.name)
	default:
		if p := o.Problem(); p != nil {
			return result.FromFailure[Res](p), nil
		}
		return zero, fmt.Errorf("dispatch: %s produced %T", rt.name, outcome)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, rt *route, req Request) (outcome result.Outcome, err error) {
	start := time.Now()
	call := &Call{Name: rt.name, Request: req, Principal: d.provider.Current(ctx), route: rt}

	defer func() {
		if d.observer == nil {
			return
		}
		status := result.StatusOK
		switch {
		case err != nil:
			status = result.StatusInternal
		case outcome != nil && outcome.Problem() != nil:
			status = outcome.Problem().Status
		}
		d.observer.Observe(ctx, rt.name, status, time.Since(start), err)
	}()

	return d.next(call, 0)(ctx)
}

func (d *Dispatcher) next(call *Call, i int) Next {
	return func(ctx context.Context) (result.Outcome, error) {
		if i == len(d.behaviors) {
			return call.route.invoke(ctx, call.Request)
		}
		return d.behaviors[i].Handle(ctx, call, d.next(call, i+1))
	}
}
