package id

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID32 returns a random (v4) UUID as exactly 32 lowercase hex characters,
// without separators.
func NewID32() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Valid32 reports whether s has the shape produced by NewID32.
func Valid32(s string) bool {
	if len(s) != 32 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
