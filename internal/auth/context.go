package auth

import "context"

type contextKey string

const contextKeyIdentity contextKey = "auth.identity"

// Identity is the authenticated user attached to a request context.
type Identity struct {
	UserID int64
	Email  string
	Name   string
}

// WithIdentity stores the authenticated identity in context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, identity)
}

// IdentityFromContext extracts the identity; ok is false when the request
// was not user-authenticated.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(contextKeyIdentity).(Identity)
	return identity, ok
}

// UserIDFromContext extracts the user id, zero when absent.
func UserIDFromContext(ctx context.Context) int64 {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return 0
	}
	return identity.UserID
}
