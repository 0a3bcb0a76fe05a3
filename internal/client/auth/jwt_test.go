package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/taxiledger/internal/common"
)

var now = time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)

func TestGenerateAndParse(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	tok, err := GenerateToken("driver-1", "d@example.com", secret, time.Hour, now)
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "driver-1", claims.UserID())
	assert.Equal(t, "d@example.com", claims.Email)
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateToken("u1", "", secret, time.Hour, now)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, common.ErrTokenExpired)

	_, err = ParseToken(tok, nil, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u2", "", []byte("right"), time.Hour, now)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte("wrong"), now)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_UnverifiedWithoutSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u3", "", []byte("remote-only-secret"), time.Hour, now)
	require.NoError(t, err)

	claims, err := ParseToken(tok, nil, now)
	require.NoError(t, err)
	assert.Equal(t, "u3", claims.UserID())
}

func TestParseToken_Malformed(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := ParseToken(tok, nil, now)
		assert.ErrorIs(t, err, common.ErrInvalidToken, tok)
	}
}

func TestParseToken_MissingSubject(t *testing.T) {
	t.Parallel()

	secret := []byte("s")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret, now)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
