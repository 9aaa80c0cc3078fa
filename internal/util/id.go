package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID generates a new unique identifier for runs and experiments.
func NewID() string { return uuid.NewString() }

// ShortID returns the first segment of a uuid string, used to keep log lines
// and file names readable. Strings without a dash are returned unchanged.
func ShortID(id string) string {
	before, _, _ := strings.Cut(id, "-")
	return before
}
