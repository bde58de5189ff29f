package context

import (
	"context"
)

const contextKeyPrincipal = contextKey("principal")

// Principal identifies the caller of an authenticated request.
type Principal struct {
	UserID string
	Email  string
	Admin  bool
}

// PrincipalFromContext extracts the authenticated caller from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(contextKeyPrincipal).(Principal)

	return principal, ok
}

// WithPrincipal creates a new context carrying the authenticated caller.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, principal)
}
