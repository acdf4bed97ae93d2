package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elskow/auth-infra/internal/keys"
	"github.com/elskow/auth-infra/internal/tokens"
	"github.com/elskow/auth-infra/internal/users"
)

func TestService_Login(t *testing.T) {
	stack := newTestStack(t)
	user := stack.mustRegister(t, testEmail)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{
			name:     "valid credentials",
			email:    testEmail,
			password: testPassword,
		},
		{
			name:     "wrong password",
			email:    testEmail,
			password: "Wr0ng!pass",
			wantErr:  users.ErrInvalidPassword,
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: testPassword,
			wantErr:  users.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := stack.auth.Login(tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.True(t, keys.Valid(token.Key()))
			assert.Equal(t, user.ID(), token.User().ID)

			stored, err := stack.sessions.GetByKey(token.Key())
			require.NoError(t, err)
			assert.Equal(t, user.ID(), stored.User().ID)

			refreshed, err := stack.users.Get(user.ID())
			require.NoError(t, err)
			assert.NotNil(t, refreshed.LastLogin())
		})
	}
}

func TestService_Login_ConcurrentSessions(t *testing.T) {
	stack := newTestStack(t)
	stack.mustRegister(t, testEmail)

	first, err := stack.auth.Login(testEmail, testPassword)
	require.NoError(t, err)
	second, err := stack.auth.Login(testEmail, testPassword)
	require.NoError(t, err)

	// Each login gets its own token and neither displaces the other
	assert.NotEqual(t, first.Key(), second.Key())
	_, err = stack.sessions.GetByKey(first.Key())
	assert.NoError(t, err)
	_, err = stack.sessions.GetByKey(second.Key())
	assert.NoError(t, err)
}

func TestService_Login_RecordsLoginShift(t *testing.T) {
	stack := newTestStack(t)
	user := stack.mustRegister(t, testEmail)

	_, err := stack.auth.Login(testEmail, testPassword)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = stack.auth.Login(testEmail, testPassword)
	require.NoError(t, err)

	refreshed, err := stack.users.Get(user.ID())
	require.NoError(t, err)
	require.NotNil(t, refreshed.LastLogin())
	require.NotNil(t, refreshed.PrevLogin())
	assert.True(t, refreshed.LastLogin().After(*refreshed.PrevLogin()))
}

func TestService_TouchSession(t *testing.T) {
	stack := newTestStack(t)
	stack.mustRegister(t, testEmail)

	token, err := stack.auth.Login(testEmail, testPassword)
	require.NoError(t, err)
	touched := token.Touched()

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, stack.auth.TouchSession(token))

	stored, err := stack.sessions.GetByKey(token.Key())
	require.NoError(t, err)
	assert.True(t, stored.Touched().After(touched))
}

func TestService_Logout(t *testing.T) {
	stack := newTestStack(t)
	stack.mustRegister(t, testEmail)

	token, err := stack.auth.Login(testEmail, testPassword)
	require.NoError(t, err)

	require.NoError(t, stack.auth.Logout(token))
	_, err = stack.sessions.GetByKey(token.Key())
	assert.ErrorIs(t, err, tokens.ErrTokenNotFound)

	// Logging out an already-deleted session is not an error
	assert.NoError(t, stack.auth.Logout(token))
}

func TestService_IssueConfirmation(t *testing.T) {
	stack := newTestStack(t)
	user := stack.mustRegister(t, testEmail)

	token, err := stack.auth.IssueConfirmation(testEmail)
	require.NoError(t, err)
	assert.True(t, keys.Valid(token.Key()))
	assert.Equal(t, user.ID(), token.UserID())

	_, err = stack.auth.IssueConfirmation("nobody@example.com")
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestService_IssueConfirmation_ReplacesExisting(t *testing.T) {
	stack := newTestStack(t)
	stack.mustRegister(t, testEmail)

	first, err := stack.auth.IssueConfirmation(testEmail)
	require.NoError(t, err)
	second, err := stack.auth.IssueConfirmation(testEmail)
	require.NoError(t, err)

	assert.NotEqual(t, first.Key(), second.Key())

	// The replaced token is gone; exactly one remains
	_, err = stack.confirmations.GetByKey(first.Key())
	assert.ErrorIs(t, err, tokens.ErrTokenNotFound)
	_, err = stack.confirmations.GetByKey(second.Key())
	assert.NoError(t, err)
	assert.Equal(t, 1, stack.confirmations.Count())
}

func TestService_RedeemConfirmation(t *testing.T) {
	stack := newTestStack(t)
	user := stack.mustRegister(t, testEmail)
	require.Nil(t, user.Confirmed())

	token, err := stack.auth.IssueConfirmation(testEmail)
	require.NoError(t, err)

	confirmed, err := stack.auth.RedeemConfirmation(token.Key())
	require.NoError(t, err)
	assert.Equal(t, user.ID(), confirmed.ID())
	assert.NotNil(t, confirmed.Confirmed())
	assert.Equal(t, []users.Group{users.GroupUsers}, confirmed.Groups())

	// The token is one-time
	_, err = stack.auth.RedeemConfirmation(token.Key())
	assert.ErrorIs(t, err, tokens.ErrTokenNotFound)
}

func TestService_RedeemConfirmation_UnknownKey(t *testing.T) {
	stack := newTestStack(t)

	_, err := stack.auth.RedeemConfirmation(keys.Generate())
	assert.ErrorIs(t, err, tokens.ErrTokenNotFound)
}

func TestUserDelete_RevokesTokens(t *testing.T) {
	stack := newTestStack(t)
	user := stack.mustRegister(t, testEmail)

	session, err := stack.auth.Login(testEmail, testPassword)
	require.NoError(t, err)
	confirmation, err := stack.auth.IssueConfirmation(testEmail)
	require.NoError(t, err)

	require.NoError(t, stack.users.Delete(user.ID()))

	_, err = stack.sessions.GetByKey(session.Key())
	assert.ErrorIs(t, err, tokens.ErrTokenNotFound)
	_, err = stack.confirmations.GetByKey(confirmation.Key())
	assert.ErrorIs(t, err, tokens.ErrTokenNotFound)
}
