package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harmony/internal/auth"
)

func TestIssueAndParseToken(t *testing.T) {
	token, err := auth.IssueToken(42, "test-secret", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := auth.ParseToken(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), userID)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := auth.IssueToken(42, "test-secret", time.Hour)
	require.NoError(t, err)

	_, err = auth.ParseToken(token, "other-secret")
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	token, err := auth.IssueToken(42, "test-secret", -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseToken(token, "test-secret")
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := auth.ParseToken("not.a.token", "test-secret")
	assert.Error(t, err)
}
