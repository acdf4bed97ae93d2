package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/elskow/auth-infra/internal/config"
)

func newTestLogger(t *testing.T) *zap.Logger {
	logger, err := zap.NewDevelopment()
	assert.NoError(t, err)
	return logger
}

func newTestConfig() *config.AuthConfig {
	return &config.AuthConfig{
		BcryptCost: 4, // minimum cost, tests hash a lot
	}
}

// stubRevoker records cascade calls; tests that need real token deletion
// live in the auth package.
type stubRevoker struct {
	sessionUsers      []string
	confirmationUsers []string
}

func (r *stubRevoker) DeleteSessionsByUser(userID string) error {
	r.sessionUsers = append(r.sessionUsers, userID)
	return nil
}

func (r *stubRevoker) DeleteConfirmationsByUser(userID string) error {
	r.confirmationUsers = append(r.confirmationUsers, userID)
	return nil
}

func newTestService(t *testing.T) (*Service, *stubRevoker) {
	revoker := &stubRevoker{}
	svc := NewService(newTestConfig(), newTestLogger(t), NewMemoryRepository(), revoker)
	return svc, revoker
}

func mustRegister(t *testing.T, svc *Service, email, password string) *User {
	t.Helper()
	user, err := svc.Register(email, password)
	assert.NoError(t, err)
	return user
}
