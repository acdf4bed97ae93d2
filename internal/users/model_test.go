package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Aa1!aaaa"

func newTestUser(t *testing.T) *User {
	t.Helper()
	user, err := New("test@example.com", testPassword, bcrypt.MinCost)
	require.NoError(t, err)
	return user
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{
			name:     "valid user",
			email:    "test@example.com",
			password: testPassword,
		},
		{
			name:     "malformed email",
			email:    "not-an-email",
			password: testPassword,
			wantErr:  true,
		},
		{
			name:     "empty email",
			email:    "",
			password: testPassword,
			wantErr:  true,
		},
		{
			name:     "weak password",
			email:    "test@example.com",
			password: "password",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := New(tt.email, tt.password, bcrypt.MinCost)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.email, user.Email())
			assert.Empty(t, user.ID())
			assert.True(t, user.HasPassword())
			assert.True(t, user.Joined().IsZero())
		})
	}
}

func TestUser_SetPassword(t *testing.T) {
	user := newTestUser(t)

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "valid password",
			password: "Bb2@bbbb",
		},
		{
			name:     "too short",
			password: "Aa1!a",
			wantErr:  true,
		},
		{
			name:     "no uppercase",
			password: "aa1!aaaa",
			wantErr:  true,
		},
		{
			name:     "no digit",
			password: "Aaa!aaaa",
			wantErr:  true,
		},
		{
			name:     "no symbol",
			password: "Aa1aaaaa",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := user.SetPassword(tt.password, bcrypt.MinCost)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}

			require.NoError(t, err)
			ok, err := user.CheckPassword(tt.password)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestUser_SetPassword_SaltRandomized(t *testing.T) {
	user := newTestUser(t)

	require.NoError(t, user.SetPassword(testPassword, bcrypt.MinCost))
	firstHash, firstSalt := user.hash, user.salt

	require.NoError(t, user.SetPassword(testPassword, bcrypt.MinCost))
	assert.NotEqual(t, firstHash, user.hash)
	assert.NotEqual(t, firstSalt, user.salt)
}

func TestUser_CheckPassword(t *testing.T) {
	user := newTestUser(t)

	ok, err := user.CheckPassword(testPassword)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = user.CheckPassword(testPassword + "x")
	require.NoError(t, err)
	assert.False(t, ok)

	// Malformed candidates fail the policy instead of silently mismatching
	_, err = user.CheckPassword("short")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUser_CheckPassword_NoCredentialMaterial(t *testing.T) {
	user := &User{email: "test@example.com"}

	ok, err := user.CheckPassword(testPassword)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUser_AddGroup(t *testing.T) {
	user := newTestUser(t)

	assert.ErrorIs(t, user.AddGroup("invalid-group"), ErrValidation)

	require.NoError(t, user.AddGroup(GroupStaff))
	require.NoError(t, user.AddGroup(GroupStaff))
	assert.Equal(t, []Group{GroupStaff}, user.Groups())
}

func TestUser_RemoveGroup(t *testing.T) {
	user := newTestUser(t)

	assert.ErrorIs(t, user.RemoveGroup(GroupStaff), ErrGroupNotFound)

	require.NoError(t, user.AddGroup(GroupUsers))
	require.NoError(t, user.AddGroup(GroupStaff))
	require.NoError(t, user.RemoveGroup(GroupUsers))
	assert.Equal(t, []Group{GroupStaff}, user.Groups())
}

func TestUser_Confirm(t *testing.T) {
	user := newTestUser(t)
	require.Nil(t, user.Confirmed())

	user.Confirm()

	require.NotNil(t, user.Confirmed())
	first := *user.Confirmed()
	assert.Equal(t, []Group{GroupUsers}, user.Groups())

	// Re-confirming re-stamps but never duplicates the default groups
	time.Sleep(5 * time.Millisecond)
	user.Confirm()
	assert.True(t, user.Confirmed().After(first))
	assert.Equal(t, []Group{GroupUsers}, user.Groups())
}

func TestUser_TouchLogin(t *testing.T) {
	user := newTestUser(t)
	require.Nil(t, user.LastLogin())
	require.Nil(t, user.PrevLogin())

	first := user.TouchLogin()
	require.NotNil(t, user.LastLogin())
	assert.Equal(t, first, *user.LastLogin())
	assert.Nil(t, user.PrevLogin())

	time.Sleep(5 * time.Millisecond)
	second := user.TouchLogin()
	assert.Equal(t, second, *user.LastLogin())
	require.NotNil(t, user.PrevLogin())
	assert.Equal(t, first, *user.PrevLogin())
	assert.True(t, second.After(first))
}

func TestUser_Validate(t *testing.T) {
	user := newTestUser(t)

	// Transient users have no joined stamp yet
	assert.ErrorIs(t, user.Validate(), ErrValidation)

	user.prepare()
	assert.NoError(t, user.Validate())

	// The joined stamp is assigned exactly once
	joined := user.Joined()
	user.prepare()
	assert.Equal(t, joined, user.Joined())

	noCredentials := &User{email: "test@example.com", joined: time.Now()}
	assert.ErrorIs(t, noCredentials.Validate(), ErrValidation)
}
