package auth

import (
	"github.com/elskow/auth-infra/internal/tokens"
	"github.com/elskow/auth-infra/internal/users"
)

// tokenRevoker backs the user-deletion cascade with the token
// repositories.
type tokenRevoker struct {
	sessions      tokens.SessionRepository
	confirmations tokens.ConfirmationRepository
}

func NewTokenRevoker(sessions tokens.SessionRepository, confirmations tokens.ConfirmationRepository) users.TokenRevoker {
	return &tokenRevoker{
		sessions:      sessions,
		confirmations: confirmations,
	}
}

func (r *tokenRevoker) DeleteSessionsByUser(userID string) error {
	return r.sessions.DeleteByUser(userID)
}

func (r *tokenRevoker) DeleteConfirmationsByUser(userID string) error {
	return r.confirmations.DeleteByUser(userID)
}
