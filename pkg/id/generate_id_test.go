package id

import (
	"encoding/hex"
	"regexp"
	"testing"

	"github.com/google/uuid"
)

var reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

func TestNewID32_FormatAndDecode(t *testing.T) {
	got := NewID32()

	if !reHex32.MatchString(got) {
		t.Fatalf("not 32-char lowercase hex: %q", got)
	}
	b, err := hex.DecodeString(got)
	if err != nil {
		t.Fatalf("hex.DecodeString error: %v", err)
	}
	u, err := uuid.FromBytes(b)
	if err != nil {
		t.Fatalf("uuid.FromBytes: %v", err)
	}
	if u.Version() != 4 {
		t.Fatalf("uuid version = %d, want 4", u.Version())
	}
}

func TestNewID32_Uniqueness(t *testing.T) {
	const n = 200
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := NewID32()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id after %d iterations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestValid32(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{NewID32(), true},
		{"0123456789abcdef0123456789abcdef", true},
		{"0123456789ABCDEF0123456789ABCDEF", false},
		{"0123456789abcdef0123456789abcde", false},
		{"0123456789abcdef0123456789abcdef0", false},
		{"01234567-89ab-cdef-0123-456789abcdef", false},
		{"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := Valid32(tc.in); got != tc.want {
			t.Errorf("Valid32(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
