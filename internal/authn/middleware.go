package authn

import (
	"context"
	"net/http"
)

// Define a custom type for context keys
type contextKey string

// identityContextKey is the key used to store the resolved identity in
// the request context.
const identityContextKey contextKey = "identity"

type Middleware struct {
	resolver *Resolver
}

func NewMiddleware(resolver *Resolver) *Middleware {
	return &Middleware{resolver: resolver}
}

// Resolve attaches the resolved identity to every request's context,
// anonymous or not.
func (m *Middleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := m.resolver.Resolve(r)
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// Require rejects anonymous requests with 401 before they reach the
// handler.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Authenticated() {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a context carrying identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// FromContext returns the identity resolved for this request, or the
// anonymous identity when resolution never ran.
func FromContext(ctx context.Context) Identity {
	identity, ok := ctx.Value(identityContextKey).(Identity)
	if !ok {
		return Identity{}
	}
	return identity
}
