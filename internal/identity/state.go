package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

// StateMaxAge bounds how long an OAuth round trip may take
const StateMaxAge = 10 * time.Minute

var ErrBadState = errors.New("oauth state invalid")

// MintStateToken signs a short-lived state value for the OAuth redirect.
// The callback verifies it so a forged callback can't be replayed into a
// session
func MintStateToken() (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"purpose": "oauth_state",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(StateMaxAge).Unix(),
	})

	token, err := t.SignedString([]byte(viper.GetString("security.jwt_secret")))
	if err != nil {
		return "", fmt.Errorf("failed to sign state token, %w", err)
	}

	return token, nil
}

// VerifyStateToken checks a state value returned by the OAuth callback
func VerifyStateToken(token string) error {
	t, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}

		return []byte(viper.GetString("security.jwt_secret")), nil
	})
	if err != nil || !t.Valid {
		return ErrBadState
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return ErrBadState
	}

	if purpose, _ := claims["purpose"].(string); purpose != "oauth_state" {
		return ErrBadState
	}

	return nil
}
