package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// --- small helpers ---

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// --- bodyHash ---

func Test_bodyHash(t *testing.T) {
	data := []byte("hello world")
	got := bodyHash(data)

	sum := sha256.Sum256(data)
	want := hex.EncodeToString(sum[:])

	if got != want {
		t.Fatalf("bodyHash mismatch: got %s want %s", got, want)
	}
}

// --- nowUTC ---

func Test_nowUTC(t *testing.T) {
	u := nowUTC()
	if u.Location() != time.UTC {
		t.Fatalf("nowUTC must be UTC, got %v", u.Location())
	}
	if d := time.Since(u); d < 0 || d > 2*time.Second {
		t.Fatalf("nowUTC too far from now: %v", d)
	}
}

// --- buildKey ---

func Test_buildKey(t *testing.T) {
	k := buildKey("POST", "/api/requests", "3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88")
	want := "idemp:timeaway:post:/api/requests:3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88"
	if k != want {
		t.Fatalf("buildKey = %q, want %q", k, want)
	}
}

// --- normalizeKey ---

func Test_normalizeKey(t *testing.T) {
	const canonical = "3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88"

	t.Run("equivalent spellings share one key", func(t *testing.T) {
		for _, s := range []string{
			canonical,
			"3f9a6a1b3d544fbe8b3a6b3e8d6b2c88",     // bare 32-hex
			"3F9A6A1B-3D54-4FBE-8B3A-6B3E8D6B2C88", // uppercase
			"{3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88}",
			"urn:uuid:3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88",
			"  " + canonical + " ",
		} {
			got, ok := normalizeKey(s)
			if !ok || got != canonical {
				t.Fatalf("normalizeKey(%q) = (%q, %v), want (%q, true)", s, got, ok, canonical)
			}
		}
	})

	t.Run("rejects bad formats", func(t *testing.T) {
		for _, s := range []string{
			"",
			"3f9a6a1b3d544fbe8b3a6b3e8d6b2c8",   // 31 chars
			"3f9a6a1b3d544fbe8b3a6b3e8d6b2c880", // 33 chars
			"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",  // non-hex chars
			"NOT-VALID",
		} {
			if _, ok := normalizeKey(s); ok {
				t.Fatalf("normalizeKey should reject %q", s)
			}
		}
	})
}

// --- Redis helpers: provisionalSet, loadEntry, saveFinal, release ---

func Test_provisionalSet_LoadEntry(t *testing.T) {
	_, rdb := newMiniRedis(t)

	key := buildKey("POST", "/api/requests", strings.Repeat("a", 32))
	entry := idempEntry{
		InProgress: true,
		BodySHA256: bodyHash([]byte(`{"a":1}`)),
		Key:        strings.Repeat("a", 32),
		CreatedAt:  nowUTC(),
	}

	// First SetNX should succeed
	ok, err := provisionalSet(context.Background(), rdb, key, entry)
	if err != nil || !ok {
		t.Fatalf("provisionalSet 1: ok=%v err=%v", ok, err)
	}

	ttl := rdb.TTL(context.Background(), key).Val()
	if ttl <= 0 || ttl > provisionalLockTTL {
		t.Fatalf("provisional TTL not set correctly: %v", ttl)
	}

	// Second SetNX should fail (already exists)
	ok, err = provisionalSet(context.Background(), rdb, key, entry)
	if err != nil {
		t.Fatalf("provisionalSet 2 err: %v", err)
	}
	if ok {
		t.Fatalf("provisionalSet 2 should be false, got true")
	}

	got, err := loadEntry(context.Background(), rdb, key)
	if err != nil {
		t.Fatalf("loadEntry err: %v", err)
	}
	if !got.InProgress || got.Key != entry.Key || got.BodySHA256 != entry.BodySHA256 {
		t.Fatalf("loaded entry mismatch: %+v vs %+v", got, entry)
	}

	if err := release(context.Background(), rdb, key); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := loadEntry(context.Background(), rdb, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil after release, got %v", err)
	}
}

func Test_saveFinal_Load_TTL(t *testing.T) {
	_, rdb := newMiniRedis(t)

	key := buildKey("POST", "/api/requests", strings.Repeat("a", 32))
	final := idempEntry{
		InProgress: false,
		Code:       201,
		Body:       []byte(`{"ok":true}`),
		BodySHA256: bodyHash([]byte(`{"ok":true}`)),
		Key:        strings.Repeat("a", 32),
		CreatedAt:  nowUTC(),
	}

	ttlWant := 5 * time.Second
	if err := saveFinal(context.Background(), rdb, key, final, ttlWant); err != nil {
		t.Fatalf("saveFinal err: %v", err)
	}

	ttl := rdb.TTL(context.Background(), key).Val()
	if ttl <= 0 || ttl > ttlWant {
		t.Fatalf("final TTL out of range: got %v want <= %v", ttl, ttlWant)
	}

	got, err := loadEntry(context.Background(), rdb, key)
	if err != nil {
		t.Fatalf("load after final err: %v", err)
	}
	if got.Code != 201 || string(got.Body) != `{"ok":true}` || got.InProgress {
		t.Fatalf("final entry mismatch: %+v", got)
	}
}
