package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// GuestCookie is the cookie that carries the signed guest session token
const GuestCookie = "guest_session"

// GuestCookieMaxAge is how long a guest keeps the same identity
const GuestCookieMaxAge = 365 * 24 * time.Hour

var ErrBadGuestToken = errors.New("guest token invalid")

// MintGuestToken creates a fresh guest identity and returns its ID together
// with the signed cookie value. The token is signed so a visitor can't forge
// someone else's guest ID and read their history
func MintGuestToken() (guestID, token string, err error) {
	guestID = uuid.NewString()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"guest_id": guestID,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(GuestCookieMaxAge).Unix(),
	})

	token, err = t.SignedString([]byte(viper.GetString("security.jwt_secret")))
	if err != nil {
		return "", "", fmt.Errorf("failed to sign guest token, %w", err)
	}

	return guestID, token, nil
}

// ParseGuestToken verifies a guest cookie value and returns the guest ID it
// carries. Forged, expired and malformed tokens all come back as ErrBadGuestToken
func ParseGuestToken(token string) (string, error) {
	t, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}

		return []byte(viper.GetString("security.jwt_secret")), nil
	})
	if err != nil || !t.Valid {
		return "", ErrBadGuestToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrBadGuestToken
	}

	guestID, ok := claims["guest_id"].(string)
	if !ok || guestID == "" {
		return "", ErrBadGuestToken
	}

	if _, err := uuid.Parse(guestID); err != nil {
		return "", ErrBadGuestToken
	}

	return guestID, nil
}
