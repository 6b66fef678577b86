// Package util contains any functions used across the application that don't match
// any other package
package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandStr returns a random alphabetic string of length n. Only suitable
// for identifiers, not secrets.
func RandStr(n int) string {
	return gonanoid.MustGenerate(charset, n)
}

// NewID generates the 16 character alphabetic IDs used for database
// entities.
func NewID() (string, error) {
	return gonanoid.Generate(charset, 16)
}
