package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elskow/auth-infra/internal/config"
	"github.com/elskow/auth-infra/internal/tokens"
	"github.com/elskow/auth-infra/internal/users"
)

const (
	testEmail    = "test@example.com"
	testPassword = "Aa1!aaaa"
)

func newTestLogger(t *testing.T) *zap.Logger {
	logger, err := zap.NewDevelopment()
	assert.NoError(t, err)
	return logger
}

// testStack wires the credential flows over in-memory stores, mirroring
// the production dependency graph.
type testStack struct {
	users         *users.Service
	auth          *Service
	sessions      *tokens.MemorySessionRepository
	confirmations *tokens.MemoryConfirmationRepository
}

func newTestStack(t *testing.T) *testStack {
	log := newTestLogger(t)
	sessions := tokens.NewMemorySessionRepository(time.Hour)
	confirmations := tokens.NewMemoryConfirmationRepository(15 * time.Minute)

	cfg := &config.AuthConfig{BcryptCost: 4}
	usersService := users.NewService(cfg, log, users.NewMemoryRepository(),
		NewTokenRevoker(sessions, confirmations))

	return &testStack{
		users:         usersService,
		auth:          NewService(log, usersService, sessions, confirmations),
		sessions:      sessions,
		confirmations: confirmations,
	}
}

func (s *testStack) mustRegister(t *testing.T, email string) *users.User {
	t.Helper()
	user, err := s.users.Register(email, testPassword)
	require.NoError(t, err)
	return user
}
