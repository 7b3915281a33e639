package auth

import (
	"context"
	"strings"
)

// Principal is the read-only identity of the caller for one request.
type Principal struct {
	ID            string
	Authenticated bool
	Email         string
	Roles         []string
	IsAdmin       bool
	// Suspended is the account's suspension interpreted at resolution time.
	Suspended bool
}

// Anonymous is the principal of an unauthenticated caller.
func Anonymous() Principal {
	return Principal{}
}

// HasID reports whether an identity was resolved.
func (p Principal) HasID() bool {
	return p.Authenticated && p.ID != ""
}

// HasRole checks membership case-insensitively.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Owns reports whether the principal is the given owner.
func (p Principal) Owns(ownerID string) bool {
	return p.HasID() && ownerID != "" && p.ID == ownerID
}

// Provider supplies the principal for the current call.
type Provider interface {
	Current(ctx context.Context) Principal
}

type principalCtxKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// FromContext returns the stored principal or Anonymous.
func FromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalCtxKey{}).(Principal); ok {
		return p
	}
	return Anonymous()
}

// ContextProvider reads the principal placed on the context by the
// transport middleware.
type ContextProvider struct{}

func (ContextProvider) Current(ctx context.Context) Principal {
	return FromContext(ctx)
}
