package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const testKey = "3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88"

// helper: new Echo with the middleware and a simple route
func setupEcho(rdb *redis.Client, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(IdempotencyMiddleware(rdb, ttl, nil))
	e.POST("/api/requests", handler)
	e.GET("/api/requests", handler) // for non-mutating bypass test
	return e
}

func mkJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func doReq(t *testing.T, e *echo.Echo, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// countingHandler answers 201 with an increasing counter so replays are detectable.
func countingHandler(n *int) echo.HandlerFunc {
	return func(c echo.Context) error {
		*n++
		return c.JSON(http.StatusCreated, map[string]any{"call": *n})
	}
}

func Test_BypassOnGET(t *testing.T) {
	_, rdb := newMiniRedis(t)
	e := setupEcho(rdb, 30*time.Second, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "get ok"})
	})
	rec := doReq(t, e, http.MethodGet, "/api/requests", nil, map[string]string{HeaderIdempotencyKey: testKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func Test_NoHeader_PassesThrough(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	var calls int
	e := setupEcho(rdb, time.Minute, countingHandler(&calls))

	for i := 0; i < 2; i++ {
		rec := doReq(t, e, http.MethodPost, "/api/requests", mkJSONBody(t, map[string]int{"x": 1}), nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("want 201, got %d", rec.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
	if n := len(mr.Keys()); n != 0 {
		t.Fatalf("no keys expected without header, got %d", n)
	}
}

func Test_InvalidKey_Returns400(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var calls int
	e := setupEcho(rdb, time.Minute, countingHandler(&calls))

	rec := doReq(t, e, http.MethodPost, "/api/requests", mkJSONBody(t, map[string]int{"x": 1}),
		map[string]string{HeaderIdempotencyKey: "NOT-VALID"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid key => want 400, got %d", rec.Code)
	}
	if calls != 0 {
		t.Fatalf("handler must not run for an invalid key")
	}
}

func Test_HappyPath_Then_Replay(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var calls int
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&calls))

	body := map[string]any{"name": "Sam"}

	rec1 := doReq(t, e, http.MethodPost, "/api/requests", mkJSONBody(t, body), map[string]string{HeaderIdempotencyKey: testKey})
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first request => want 201, got %d, body: %s", rec1.Code, rec1.Body.String())
	}

	// bare-hex spelling of the same key replays
	rec2 := doReq(t, e, http.MethodPost, "/api/requests", mkJSONBody(t, body),
		map[string]string{HeaderIdempotencyKey: "3f9a6a1b3d544fbe8b3a6b3e8d6b2c88"})
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay => want 201, got %d, body: %s", rec2.Code, rec2.Body.String())
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", rec1.Body.String(), rec2.Body.String())
	}
	if rec2.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("replay header missing")
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}

func Test_Conflict_When_InProgress(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var calls int
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&calls))

	body := []byte(`{"x":1}`)

	// Seed provisional "in-progress" entry (so SetNX will fail and loadEntry sees InProgress=true)
	key := buildKey(http.MethodPost, "/api/requests", testKey)
	entry := idempEntry{InProgress: true, BodySHA256: bodyHash(body), Key: testKey, CreatedAt: time.Now().UTC()}
	if ok, err := provisionalSet(context.Background(), rdb, key, entry); err != nil || !ok {
		t.Fatalf("seed provisional failed, ok=%v err=%v", ok, err)
	}

	rec := doReq(t, e, http.MethodPost, "/api/requests", bytes.NewReader(body), map[string]string{HeaderIdempotencyKey: testKey})
	if rec.Code != http.StatusConflict {
		t.Fatalf("in-progress => want 409, got %d body=%s", rec.Code, rec.Body.String())
	}
	if calls != 0 {
		t.Fatalf("handler must not run while in progress")
	}
}

func Test_Conflict_When_SameKey_DifferentBody(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var calls int
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&calls))

	key := buildKey(http.MethodPost, "/api/requests", testKey)
	final := idempEntry{
		Code:       http.StatusCreated,
		Body:       []byte(`{"call":1}`),
		BodySHA256: bodyHash([]byte(`{"x":1}`)),
		Key:        testKey,
		CreatedAt:  time.Now().UTC(),
	}
	if err := saveFinal(context.Background(), rdb, key, final, 5*time.Minute); err != nil {
		t.Fatalf("seed final failed: %v", err)
	}

	rec := doReq(t, e, http.MethodPost, "/api/requests", bytes.NewReader([]byte(`{"x":2}`)), map[string]string{HeaderIdempotencyKey: testKey})
	if rec.Code != http.StatusConflict {
		t.Fatalf("different body same key => want 409, got %d", rec.Code)
	}
}

func Test_ServerError_IsNotCached(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	var calls int
	e := setupEcho(rdb, time.Minute, func(c echo.Context) error {
		calls++
		if calls == 1 {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return c.JSON(http.StatusCreated, map[string]any{"ok": true})
	})

	hdr := map[string]string{HeaderIdempotencyKey: testKey}
	if rec := doReq(t, e, http.MethodPost, "/api/requests", mkJSONBody(t, map[string]int{"x": 1}), hdr); rec.Code != http.StatusInternalServerError {
		t.Fatalf("first => want 500, got %d", rec.Code)
	}
	if n := len(mr.Keys()); n != 0 {
		t.Fatalf("lock should be released after 5xx, keys=%v", mr.Keys())
	}
	if rec := doReq(t, e, http.MethodPost, "/api/requests", mkJSONBody(t, map[string]int{"x": 1}), hdr); rec.Code != http.StatusCreated {
		t.Fatalf("retry => want 201, got %d", rec.Code)
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}

func Test_StoreUnavailable_Returns503(t *testing.T) {
	// closed address → SetNX error
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	e := setupEcho(rdb, time.Minute, func(c echo.Context) error { return c.NoContent(http.StatusCreated) })

	rec := doReq(t, e, http.MethodPost, "/api/requests", bytes.NewReader([]byte(`{}`)), map[string]string{HeaderIdempotencyKey: testKey})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store unavailable => want 503, got %d", rec.Code)
	}
}
