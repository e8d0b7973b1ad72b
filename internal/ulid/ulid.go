// Package ulid issues identifiers for resolved constant tables and their
// stored snapshots. IDs sort by resolution time, so listing snapshots by ID
// lists them chronologically.
package ulid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrInvalidULID indicates that a ULID string is malformed or invalid
	ErrInvalidULID = errors.New("invalid ULID format")
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// Generate creates a new ULID for the current time.
func Generate() string {
	return GenerateWithTime(time.Now())
}

// GenerateWithTime creates a new ULID for t. IDs generated within the same
// millisecond are strictly increasing.
func GenerateWithTime(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Validate checks if a string is a valid ULID format (26 characters, base32 encoded)
func Validate(str string) error {
	if len(str) != ulid.EncodedSize {
		return fmt.Errorf("%w: expected %d characters, got %d", ErrInvalidULID, ulid.EncodedSize, len(str))
	}
	if _, err := ulid.ParseStrict(str); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidULID, err)
	}
	return nil
}

// Time extracts the timestamp from a ULID string
func Time(str string) (time.Time, error) {
	id, err := ulid.ParseStrict(str)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidULID, err)
	}
	return ulid.Time(id.Time()), nil
}
