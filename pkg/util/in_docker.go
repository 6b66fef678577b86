package util

import "os"

// IsRunningInDocker reports whether the process runs inside a
// container. The sqlite path check in db.New depends on it
func IsRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}
