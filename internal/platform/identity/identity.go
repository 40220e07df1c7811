// Package identity carries the authenticated caller through a request context.
package identity

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Resolver when the token subject has no live user.
var ErrNotFound = errors.New("identity not found")

// Identity is the authenticated user attached to a request.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Resolver maps a verified token subject to a live Identity.
type Resolver interface {
	ResolveIdentity(ctx context.Context, userID string) (Identity, error)
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the Identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}
