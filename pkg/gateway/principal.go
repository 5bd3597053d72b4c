package gateway

import "context"

// Principal identifies the authenticated caller. The zero value is the
// anonymous principal used when authentication is disabled.
type Principal struct {
	Tenant string
	User   string
}

type contextKey int

const (
	principalKey contextKey = iota
	requestIDKey
)

// WithPrincipal attaches the principal to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the request's principal, or the anonymous
// principal when none was set.
func PrincipalFrom(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey).(Principal); ok {
		return p
	}
	return Principal{}
}

// RequestIDFrom returns the correlation id assigned by the request-id
// middleware, or "" outside a request.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
