// Package authn resolves an inbound request's credential header to an
// identity and its authorization principals. Resolution never fails a
// request: every failure degrades to the anonymous identity, and the
// authorization decision belongs to the caller.
package authn

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/elskow/auth-infra/internal/keys"
	"github.com/elskow/auth-infra/internal/tokens"
)

// Principals shared by the ACL layer.
const (
	Everyone      = "system.Everyone"
	Authenticated = "system.Authenticated"
)

// Scheme is the only Authorization scheme this service accepts.
const Scheme = "key"

// Identity is the outcome of resolving a request credential. The zero
// value is the anonymous identity.
type Identity struct {
	token *tokens.AuthToken
}

// NewIdentity wraps a resolved session token as an identity.
func NewIdentity(token *tokens.AuthToken) Identity {
	return Identity{token: token}
}

// Token returns the resolved session token, or nil for anonymous.
func (id Identity) Token() *tokens.AuthToken { return id.token }

// Authenticated reports whether a session token was resolved to a user.
func (id Identity) Authenticated() bool {
	return id.token != nil && id.token.User().ID != ""
}

// UserID returns the authenticated account id, or "" for anonymous.
func (id Identity) UserID() string {
	if !id.Authenticated() {
		return ""
	}
	return id.token.User().ID
}

// Principals derives the identity's principal set: always Everyone, and
// for an authenticated identity also Authenticated, the user id, and
// every group from the token's cached snapshot. The snapshot, not the
// live account, drives authorization for the token's lifetime.
func (id Identity) Principals() []string {
	principals := []string{Everyone}
	if id.Authenticated() {
		user := id.token.User()
		principals = append(principals, Authenticated, user.ID)
		principals = append(principals, user.Groups...)
	}
	return principals
}

// HasPrincipal reports whether p is in the identity's principal set.
func (id Identity) HasPrincipal(p string) bool {
	for _, principal := range id.Principals() {
		if principal == p {
			return true
		}
	}
	return false
}

// Resolver resolves request credentials against the session token store.
type Resolver struct {
	log      *zap.Logger
	sessions tokens.SessionRepository
}

func NewResolver(log *zap.Logger, sessions tokens.SessionRepository) *Resolver {
	return &Resolver{log: log, sessions: sessions}
}

// Resolve runs the per-request resolution steps: extract a well-formed
// key from the Authorization header, look it up (exactly one store read),
// and wrap the result. A malformed header, unknown or expired key, or any
// store error yields the anonymous identity, never an error and never a
// fallback user.
func (r *Resolver) Resolve(req *http.Request) Identity {
	key, ok := ExtractKey(req.Header.Get("Authorization"))
	if !ok {
		return Identity{}
	}

	token, err := r.sessions.GetByKey(key)
	if err != nil {
		if !errors.Is(err, tokens.ErrTokenNotFound) {
			r.log.Warn("session token lookup failed, treating request as anonymous",
				zap.Error(err))
		}
		return Identity{}
	}

	return Identity{token: token}
}

// ExtractKey pulls a token key out of an Authorization header value of
// the form "<scheme> <key>". Only the "key" scheme (case-insensitive) is
// accepted, and the key must already be a well-formed token key; anything
// else reports no key.
func ExtractKey(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], Scheme) {
		return "", false
	}
	if !keys.Valid(parts[1]) {
		return "", false
	}
	return parts[1], true
}
