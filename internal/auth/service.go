// Package auth implements the interactive credential flows: session
// issuance at login and the account-confirmation round trip.
package auth

import (
	"errors"

	"go.uber.org/zap"

	"github.com/elskow/auth-infra/internal/tokens"
	"github.com/elskow/auth-infra/internal/users"
)

type Service struct {
	log           *zap.Logger
	users         *users.Service
	sessions      tokens.SessionRepository
	confirmations tokens.ConfirmationRepository
}

func NewService(log *zap.Logger, users *users.Service, sessions tokens.SessionRepository, confirmations tokens.ConfirmationRepository) *Service {
	return &Service{
		log:           log,
		users:         users,
		sessions:      sessions,
		confirmations: confirmations,
	}
}

// Login verifies the credentials, issues a session token carrying a
// snapshot of the account's identity and groups, and records the
// interactive login. Concurrent logins for one account each get their own
// token.
func (s *Service) Login(email, password string) (*tokens.AuthToken, error) {
	user, err := s.users.Authenticate(email, password)
	if err != nil {
		return nil, err
	}

	token := tokens.NewAuthToken(tokens.UserSnapshot{
		ID:     user.ID(),
		Groups: user.GroupStrings(),
	})
	if err := s.sessions.Save(token); err != nil {
		return nil, err
	}

	if err := s.users.TouchLogin(user); err != nil {
		return nil, err
	}

	s.log.Info("session issued", zap.String("user_id", user.ID()))
	return token, nil
}

// TouchSession marks the session as used and persists the new stamp,
// extending its inactivity window.
func (s *Service) TouchSession(token *tokens.AuthToken) error {
	token.Touch()
	return s.sessions.Save(token)
}

// Logout deletes the session token. A token that is already gone is not
// an error.
func (s *Service) Logout(token *tokens.AuthToken) error {
	err := s.sessions.Delete(token.Key())
	if err != nil && !errors.Is(err, tokens.ErrTokenNotFound) {
		return err
	}
	return nil
}

// IssueConfirmation issues a confirmation token for the account with the
// given email, replacing an existing one: on a uniqueness conflict the
// user's existing tokens are deleted and the save is retried exactly
// once. A third concurrent issuer can still observe a conflict after the
// retry; that is accepted.
func (s *Service) IssueConfirmation(email string) (*tokens.ConfirmToken, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}

	token := tokens.NewConfirmToken(user.ID())
	if err := s.confirmations.Save(token); err != nil {
		if !errors.Is(err, tokens.ErrTokenExists) {
			return nil, err
		}
		if err := s.confirmations.DeleteByUser(user.ID()); err != nil {
			return nil, err
		}
		if err := s.confirmations.Save(token); err != nil {
			return nil, err
		}
	}

	s.log.Info("confirmation token issued",
		zap.String("email", user.Email()),
		zap.String("key", token.Key()))
	return token, nil
}

// RedeemConfirmation confirms the account a confirmation token was issued
// for and consumes the token. The account mutation is persisted before
// the token is deleted, so a failure partway leaves the token redeemable
// rather than the account stuck unconfirmed.
func (s *Service) RedeemConfirmation(key string) (*users.User, error) {
	token, err := s.confirmations.GetByKey(key)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Get(token.UserID())
	if err != nil {
		return nil, err
	}

	if err := s.users.Confirm(user); err != nil {
		return nil, err
	}

	if err := s.confirmations.Delete(token.Key()); err != nil {
		return nil, err
	}

	s.log.Info("account confirmed", zap.String("user_id", user.ID()))
	return user, nil
}
