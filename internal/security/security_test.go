package security

import (
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32}

func TestPinCipherRoundTrip(t *testing.T) {
	c := NewPinCipherWithParams("server-secret", testParams)

	sealed, err := c.Seal("user-1", "1234")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "1234")

	assert.True(t, c.Verify("user-1", sealed, "1234"))
	assert.False(t, c.Verify("user-1", sealed, "5678"))
}

func TestPinCipherBoundToUser(t *testing.T) {
	c := NewPinCipherWithParams("server-secret", testParams)

	sealed, err := c.Seal("user-1", "1234")
	require.NoError(t, err)

	assert.False(t, c.Verify("user-2", sealed, "1234"))
	_, err = c.Open("user-2", sealed)
	assert.Error(t, err)
}

func TestPinCipherRejectsGarbage(t *testing.T) {
	c := NewPinCipherWithParams("server-secret", testParams)

	_, err := c.Open("user-1", []byte{1, 2})
	assert.ErrorIs(t, err, ErrCipherTooShort)
	assert.False(t, c.Verify("user-1", []byte("definitely not a valid gcm payload"), "1234"))
}

func TestPinCipherFreshNonce(t *testing.T) {
	c := NewPinCipherWithParams("server-secret", testParams)

	a, err := c.Seal("user-1", "1234")
	require.NoError(t, err)
	b, err := c.Seal("user-1", "1234")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGenerateAccessCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateAccessCode(8)
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)

	code, err := GenerateAccessCode(0)
	require.NoError(t, err)
	assert.Len(t, code, 8)
}

func TestDashboardTokenRoundTrip(t *testing.T) {
	signed, expires, err := GenerateDashboardToken("jwt-secret", "628123", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := ParseDashboardToken(signed, "jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, "628123", claims.UserID)

	_, err = ParseDashboardToken(signed, "other-secret")
	assert.Error(t, err)
}

func TestDashboardTokenExpired(t *testing.T) {
	signed, _, err := GenerateDashboardToken("jwt-secret", "628123", -time.Minute)
	require.NoError(t, err)

	_, err = ParseDashboardToken(signed, "jwt-secret")
	assert.Error(t, err)
}

func TestDashboardTokenRequiresSecret(t *testing.T) {
	_, _, err := GenerateDashboardToken("", "victim", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS512, DashboardClaims{
		UserID: "victim",
		Scope:  DashboardScope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(""))
	require.NoError(t, err)

	claims, err := ParseDashboardToken(forged, "")
	assert.ErrorIs(t, err, ErrEmptySecret)
	assert.Nil(t, claims)
}
