package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	viper.Set("security.jwt_secret", "test-secret")
}

func TestGuestTokenRoundTrip(t *testing.T) {
	guestID, token, err := MintGuestToken()
	require.NoError(t, err)

	_, err = uuid.Parse(guestID)
	require.NoError(t, err, "guest IDs are UUIDs")

	parsed, err := ParseGuestToken(token)
	require.NoError(t, err)
	assert.Equal(t, guestID, parsed)
}

func TestGuestTokenForgedSignature(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"guest_id": uuid.NewString(),
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	forged, err := tok.SignedString([]byte("someone-elses-secret"))
	require.NoError(t, err)

	_, err = ParseGuestToken(forged)
	assert.ErrorIs(t, err, ErrBadGuestToken)
}

func TestGuestTokenGarbage(t *testing.T) {
	for _, bad := range []string{"", "not-a-token", "a.b.c"} {
		_, err := ParseGuestToken(bad)
		assert.ErrorIs(t, err, ErrBadGuestToken)
	}
}

func TestGuestTokenNonUUIDClaim(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"guest_id": "../other-scope",
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = ParseGuestToken(signed)
	assert.ErrorIs(t, err, ErrBadGuestToken)
}

func TestStateTokenRoundTrip(t *testing.T) {
	state, err := MintStateToken()
	require.NoError(t, err)

	assert.NoError(t, VerifyStateToken(state))
	assert.ErrorIs(t, VerifyStateToken("tampered"), ErrBadState)
}

func TestStateTokenRejectsGuestToken(t *testing.T) {
	// Both are HS256 JWTs under the same secret, the purpose claim must
	// keep them apart
	_, token, err := MintGuestToken()
	require.NoError(t, err)

	assert.ErrorIs(t, VerifyStateToken(token), ErrBadState)
}
