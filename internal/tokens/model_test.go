package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elskow/auth-infra/internal/keys"
)

func testSnapshot() UserSnapshot {
	return UserSnapshot{ID: "user-1", Groups: []string{"users", "staff"}}
}

func TestAuthToken_Lifecycle(t *testing.T) {
	token := NewAuthToken(testSnapshot())

	assert.True(t, token.Pending())
	assert.Empty(t, token.Key())
	assert.True(t, token.Issued().IsZero())
	assert.True(t, token.Touched().IsZero())

	token.prepare()

	assert.False(t, token.Pending())
	assert.True(t, keys.Valid(token.Key()))
	assert.False(t, token.Issued().IsZero())
	assert.Equal(t, token.Issued(), token.Touched())

	// Repeated prepare passes change nothing
	key, issued, touched := token.Key(), token.Issued(), token.Touched()
	for i := 0; i < 5; i++ {
		token.prepare()
	}
	assert.Equal(t, key, token.Key())
	assert.Equal(t, issued, token.Issued())
	assert.Equal(t, touched, token.Touched())
}

func TestAuthToken_Touch(t *testing.T) {
	token := NewAuthToken(testSnapshot())

	first := token.Touch()
	assert.Equal(t, first, token.Touched())

	time.Sleep(5 * time.Millisecond)
	second := token.Touch()
	assert.True(t, second.After(first))
}

func TestAuthToken_SnapshotIsolated(t *testing.T) {
	snapshot := testSnapshot()
	token := NewAuthToken(snapshot)

	// Mutating either side never leaks through the cached snapshot
	snapshot.Groups[0] = "admin"
	assert.Equal(t, []string{"users", "staff"}, token.User().Groups)

	token.User().Groups[0] = "admin"
	assert.Equal(t, []string{"users", "staff"}, token.User().Groups)
}

func TestAuthToken_Record(t *testing.T) {
	token := NewAuthToken(testSnapshot())
	token.prepare()

	record := token.Record()
	assert.Equal(t, token.Key(), record.Key)
	assert.Equal(t, "user-1", record.User.ID)
	assert.Equal(t, []string{"users", "staff"}, record.User.Groups)

	issued, err := time.Parse(time.RFC3339, record.Issued)
	require.NoError(t, err)
	assert.WithinDuration(t, token.Issued(), issued, time.Second)

	_, err = time.Parse(time.RFC3339, record.Touched)
	assert.NoError(t, err)
}

func TestConfirmToken_Lifecycle(t *testing.T) {
	token := NewConfirmToken("user-1")

	assert.True(t, token.Pending())
	assert.True(t, token.Issued().IsZero())

	token.prepare()

	assert.False(t, token.Pending())
	assert.True(t, keys.Valid(token.Key()))
	assert.False(t, token.Issued().IsZero())

	key, issued := token.Key(), token.Issued()
	token.prepare()
	assert.Equal(t, key, token.Key())
	assert.Equal(t, issued, token.Issued())
}

func TestConfirmToken_Record(t *testing.T) {
	token := NewConfirmToken("user-1")
	token.prepare()

	record := token.Record()
	assert.Equal(t, token.Key(), record.Key)
	assert.Equal(t, "user-1", record.User.ID)

	_, err := time.Parse(time.RFC3339, record.Issued)
	assert.NoError(t, err)
}
