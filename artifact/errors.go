package artifact

import "errors"

var (
	// ErrNotFound is returned when a result for the given experiment / run pair
	// does not exist in the underlying store.
	ErrNotFound = errors.New("result not found")
)
