// Package tokens owns the persisted bearer credentials: session tokens
// issued at login and one-time account-confirmation tokens. Both kinds
// start pending (no key) and are issued by the repository save path.
package tokens

import (
	"time"

	"github.com/elskow/auth-infra/internal/keys"
)

// UserSnapshot is the denormalized account data cached on a token when it
// is issued. Authentication and serialization read this snapshot, never
// the live account, so a token's view of its user is stable for the
// token's lifetime even if the account changes mid-session.
type UserSnapshot struct {
	ID     string
	Groups []string
}

func (s UserSnapshot) clone() UserSnapshot {
	groups := make([]string, len(s.Groups))
	copy(groups, s.Groups)
	return UserSnapshot{ID: s.ID, Groups: groups}
}

// AuthToken is a session credential. It expires once its touched stamp is
// older than the configured session TTL; a user may hold any number of
// concurrent session tokens.
type AuthToken struct {
	key     string
	user    UserSnapshot
	issued  time.Time
	touched time.Time
}

// NewAuthToken constructs a pending session token bound to user. The key
// and timestamps are assigned when the token is first saved.
func NewAuthToken(user UserSnapshot) *AuthToken {
	return &AuthToken{user: user.clone()}
}

func (t *AuthToken) Key() string        { return t.key }
func (t *AuthToken) User() UserSnapshot { return t.user.clone() }
func (t *AuthToken) Issued() time.Time  { return t.issued }
func (t *AuthToken) Touched() time.Time { return t.touched }

// Pending reports whether the token has not been issued yet.
func (t *AuthToken) Pending() bool { return t.key == "" }

// Touch marks the token as used and returns the new stamp.
func (t *AuthToken) Touch() time.Time {
	t.touched = time.Now().UTC()
	return t.touched
}

// prepare is the pre-write pass: a pending token gets its key, issued
// stamp and first touch. An issued token is left untouched; only an
// explicit Touch moves the touched stamp after issuance.
func (t *AuthToken) prepare() {
	if t.key != "" {
		return
	}
	t.key = keys.Generate()
	t.issued = t.Touch()
}

// Record serializes the token for transport. It is built entirely from
// the cached snapshot and performs no store reads.
func (t *AuthToken) Record() AuthTokenRecord {
	return AuthTokenRecord{
		Key: t.key,
		User: AuthTokenUser{
			ID:     t.user.ID,
			Groups: t.User().Groups,
		},
		Issued:  t.issued.Format(time.RFC3339),
		Touched: t.touched.Format(time.RFC3339),
	}
}

type AuthTokenRecord struct {
	Key     string        `json:"key"`
	User    AuthTokenUser `json:"user"`
	Issued  string        `json:"issued"`
	Touched string        `json:"touched"`
}

type AuthTokenUser struct {
	ID     string   `json:"id"`
	Groups []string `json:"groups"`
}

// ConfirmToken is a one-time account-confirmation credential. It expires
// a fixed interval after issuance and is deleted on redemption. Only the
// account id is cached; confirmation needs no group data.
type ConfirmToken struct {
	key    string
	userID string
	issued time.Time
}

// NewConfirmToken constructs a pending confirmation token for the account
// with the given id.
func NewConfirmToken(userID string) *ConfirmToken {
	return &ConfirmToken{userID: userID}
}

func (t *ConfirmToken) Key() string       { return t.key }
func (t *ConfirmToken) UserID() string    { return t.userID }
func (t *ConfirmToken) Issued() time.Time { return t.issued }

// Pending reports whether the token has not been issued yet.
func (t *ConfirmToken) Pending() bool { return t.key == "" }

func (t *ConfirmToken) prepare() {
	if t.key != "" {
		return
	}
	t.key = keys.Generate()
	t.issued = time.Now().UTC()
}

// Record serializes the token for transport without any store reads.
func (t *ConfirmToken) Record() ConfirmTokenRecord {
	return ConfirmTokenRecord{
		Key:    t.key,
		User:   ConfirmTokenUser{ID: t.userID},
		Issued: t.issued.Format(time.RFC3339),
	}
}

type ConfirmTokenRecord struct {
	Key    string           `json:"key"`
	User   ConfirmTokenUser `json:"user"`
	Issued string           `json:"issued"`
}

type ConfirmTokenUser struct {
	ID string `json:"id"`
}

// restoreAuthToken rebuilds an issued session token from persisted state.
func restoreAuthToken(key string, user UserSnapshot, issued, touched time.Time) *AuthToken {
	return &AuthToken{
		key:     key,
		user:    user.clone(),
		issued:  issued,
		touched: touched,
	}
}

// restoreConfirmToken rebuilds an issued confirmation token from
// persisted state.
func restoreConfirmToken(key, userID string, issued time.Time) *ConfirmToken {
	return &ConfirmToken{
		key:    key,
		userID: userID,
		issued: issued,
	}
}
