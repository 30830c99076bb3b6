// Package idx generates lexicographically sortable ULID identifiers from a
// shared monotonic entropy source, safe for concurrent use.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

var (
	mu      sync.Mutex
	once    sync.Once
	entropy *ulid.MonotonicEntropy
)

// New returns a new ULID string using the current UTC time.
func New() string {
	return NewAt(time.Now().UTC())
}

// NewAt generates an ID at the provided time, useful for tests or
// constructing time-bounded cursors.
func NewAt(t time.Time) string {
	once.Do(func() {
		entropy = ulid.Monotonic(rand.Reader, 0)
	})

	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Parse validates a ULID string and returns its canonical form.
func Parse(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalid
	}

	u, err := ulid.ParseStrict(s)
	if err != nil {
		return "", ErrInvalid
	}
	return u.String(), nil
}

// Time extracts the embedded UTC timestamp, or the zero time for invalid input.
func Time(s string) time.Time {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time()).UTC()
}
