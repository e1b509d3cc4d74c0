package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueAndValidate(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!!", time.Hour)

	signed, claims, err := tm.Issue("user-1", "alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.NotEmpty(t, claims.SessionID())

	parsed, err := tm.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", parsed.UserID)
	assert.Equal(t, "alice@example.com", parsed.Email)
	assert.Equal(t, claims.SessionID(), parsed.SessionID())
}

func TestTokenManager_SessionIDsAreUnique(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!!", time.Hour)

	_, c1, err := tm.Issue("user-1", "a@example.com")
	require.NoError(t, err)
	_, c2, err := tm.Issue("user-1", "a@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, c1.SessionID(), c2.SessionID())
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!!", time.Hour)
	other := NewTokenManager("another-secret-32-characters-ok!", time.Hour)

	signed, _, err := tm.Issue("user-1", "a@example.com")
	require.NoError(t, err)

	_, err = other.Validate(signed)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!!", -time.Minute)

	signed, _, err := tm.Issue("user-1", "a@example.com")
	require.NoError(t, err)

	_, err = tm.Validate(signed)
	assert.Error(t, err)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!!", time.Hour)

	_, err := tm.Validate("not-a-token")
	assert.Error(t, err)
}
