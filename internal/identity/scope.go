// Package identity resolves who a request belongs to. Every request is
// either a signed-in user or a guest session, and all stored data and
// usage counters hang off the resulting scope string.
package identity

import "strings"

// Tier names used for quota ceilings
const (
	TierGuest = "guest"
	TierUser  = "user"
)

// UserScope returns the isolation key for a signed-in user
func UserScope(userID string) string {
	return "user:" + userID
}

// GuestScope returns the isolation key for a guest session
func GuestScope(guestID string) string {
	return "guest:" + guestID
}

func IsGuestScope(scope string) bool {
	return strings.HasPrefix(scope, "guest:")
}

// Tier maps a scope to the tier its quota ceilings are read from
func Tier(scope string) string {
	if IsGuestScope(scope) {
		return TierGuest
	}

	return TierUser
}

// OwnerID strips the tier prefix from a scope
func OwnerID(scope string) string {
	if i := strings.IndexByte(scope, ':'); i >= 0 {
		return scope[i+1:]
	}

	return scope
}
