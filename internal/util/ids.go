package util

import (
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var reNanoid = regexp.MustCompile(`^[A-Za-z0-9_-]{21}$`)

// NewID returns a 21 character nanoid used for sessions and analyses.
func NewID() (string, error) {
	return gonanoid.New()
}

// IsNanoid reports whether s has the shape of an id returned by NewID.
func IsNanoid(s string) bool {
	return reNanoid.MatchString(s)
}
