package assetid

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyOnce sync.Once
	entropy     *ulid.MonotonicEntropy
)

func newEntropy() *ulid.MonotonicEntropy {
	entropyOnce.Do(func() {
		source := rand.NewSource(time.Now().UnixNano())
		entropy = ulid.Monotonic(rand.New(source), 0)
	})
	return entropy
}

// New returns an ast_* ULID string for media assets.
func New() string {
	return newPrefixed("ast_")
}

// NewMoment returns a mom_* ULID string for moments.
func NewMoment() string {
	return newPrefixed("mom_")
}

func newPrefixed(prefix string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), newEntropy())
	return prefix + strings.ToLower(id.String())
}

// IsValid reports whether the string is a prefixed ULID.
func IsValid(value string) bool {
	_, err := Parse(value)
	return err == nil
}

// Parse strips the prefix and returns the ULID.
func Parse(value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, '_'); i >= 0 {
		value = value[i+1:]
	}
	return ulid.Parse(value)
}
