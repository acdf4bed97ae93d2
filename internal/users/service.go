package users

import (
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/elskow/auth-infra/internal/config"
)

// TokenRevoker deletes the tokens held for a user. User deletion cascades
// through it: dependents first, then the account row.
type TokenRevoker interface {
	DeleteSessionsByUser(userID string) error
	DeleteConfirmationsByUser(userID string) error
}

type Service struct {
	config     *config.AuthConfig
	log        *zap.Logger
	repository Repository
	revoker    TokenRevoker
}

func NewService(config *config.AuthConfig, log *zap.Logger, repo Repository, revoker TokenRevoker) *Service {
	return &Service{
		config:     config,
		log:        log,
		repository: repo,
		revoker:    revoker,
	}
}

// Register creates and persists a new unconfirmed account.
func (s *Service) Register(email, password string) (*User, error) {
	user, err := New(email, password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}
	if err := s.repository.Create(user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID()))
	return user, nil
}

func (s *Service) Get(id string) (*User, error) {
	return s.repository.GetByID(id)
}

func (s *Service) GetByEmail(email string) (*User, error) {
	return s.repository.GetByEmail(email)
}

// Authenticate resolves email to an account and verifies password against
// its stored credential. Unknown emails and credential mismatches stay
// distinguishable errors; the unknown-email path burns a bcrypt hash so
// the two cost the same. Login timestamps are the caller's concern.
func (s *Service) Authenticate(email, password string) (*User, error) {
	user, err := s.repository.GetByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.burnHash()
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	ok, err := user.CheckPassword(password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidPassword
	}
	return user, nil
}

// TouchLogin records a successful interactive login.
func (s *Service) TouchLogin(user *User) error {
	user.TouchLogin()
	return s.repository.Update(user)
}

// Confirm flips the account to confirmed and grants the default groups.
func (s *Service) Confirm(user *User) error {
	user.Confirm()
	return s.repository.Update(user)
}

// ChangePassword verifies the current password before applying the new
// one. A mismatch is ErrInvalidPassword, not a validation error.
func (s *Service) ChangePassword(id, current, newPassword string) (*User, error) {
	user, err := s.repository.GetByID(id)
	if err != nil {
		return nil, err
	}
	ok, err := user.CheckPassword(current)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidPassword
	}
	if err := user.SetPassword(newPassword, s.config.BcryptCost); err != nil {
		return nil, err
	}
	if err := s.repository.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes an account and everything that references it. The
// cascade is explicit and ordered dependents-first so a partial failure
// never leaves tokens pointing at a deleted account.
func (s *Service) Delete(id string) error {
	if err := s.revoker.DeleteSessionsByUser(id); err != nil {
		return err
	}
	if err := s.revoker.DeleteConfirmationsByUser(id); err != nil {
		return err
	}
	if err := s.repository.Delete(id); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("user_id", id))
	return nil
}

// burnHash keeps the unknown-email path on the same bcrypt budget as a
// real credential check.
func (s *Service) burnHash() {
	cost := s.config.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	_, _ = bcrypt.GenerateFromPassword([]byte("timing-equalizer"), cost)
}
