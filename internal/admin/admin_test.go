package admin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyToken(t *testing.T) {
	hashed, err := HashToken("s3cret")
	require.NoError(t, err)

	assert.True(t, VerifyAdminToken(hashed, "s3cret"))
	assert.False(t, VerifyAdminToken(hashed, "wrong"))
	assert.False(t, VerifyAdminToken("not-a-hash", "s3cret"))
}

func TestIssueAndParseToken(t *testing.T) {
	signed, expires, err := IssueToken("secret", "ops", []string{"super_admin"}, time.Hour, time.Now())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := ParseToken("secret", signed)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Username)
	assert.Equal(t, []string{"super_admin"}, claims.Roles)
}

func TestParseTokenRejectsBadTokens(t *testing.T) {
	signed, _, err := IssueToken("secret", "ops", nil, time.Hour, time.Now())
	require.NoError(t, err)

	_, err = ParseToken("other-secret", signed)
	assert.Error(t, err)

	expired, _, err := IssueToken("secret", "ops", nil, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = ParseToken("secret", expired)
	assert.Error(t, err)

	_, err = ParseToken("secret", "garbage")
	assert.Error(t, err)
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	_, _, err := IssueToken("", "ops", nil, time.Hour, time.Now())
	assert.Error(t, err)
	_, err = ParseToken("", "x")
	assert.Error(t, err)
}
