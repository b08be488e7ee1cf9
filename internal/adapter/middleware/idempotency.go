package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"

	// How long we hold the "in-progress" lock before it must be refreshed by finishing the handler.
	provisionalLockTTL = 60 * time.Second
)

// ---- Data types ----
type idempEntry struct {
	InProgress bool      `json:"in_progress"`
	Code       int       `json:"code"`
	Body       []byte    `json:"body"`
	BodySHA256 string    `json:"body_sha256"`
	Key        string    `json:"key"`
	CreatedAt  time.Time `json:"created_at"`
}

type respRecorder struct {
	w    http.ResponseWriter
	buf  *bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }
func (r *respRecorder) Write(b []byte) (int, error) {
	if r.buf != nil {
		r.buf.Write(b)
	}
	return r.w.Write(b)
}
func (r *respRecorder) WriteHeader(statusCode int) { r.code = statusCode; r.w.WriteHeader(statusCode) }

// IdempotencyMiddleware replays the stored response for a repeated
// Idempotency-Key on mutating requests. Requests without the header pass
// through untouched. Key = method + route + normalized key.
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration, log *logrus.Entry) echo.MiddlewareFunc {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			method := req.Method

			// Only enforce on mutating methods
			switch method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			raw := strings.TrimSpace(req.Header.Get(HeaderIdempotencyKey))
			if raw == "" {
				return next(c)
			}
			idemKey, ok := normalizeKey(raw)
			if !ok {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid Idempotency-Key format"})
			}

			// Buffer & hash body
			var body []byte
			if req.Body != nil {
				body, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewBuffer(body))
			bhash := bodyHash(body)

			key := buildKey(method, c.Path(), idemKey)
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()

			entry := idempEntry{
				InProgress: true,
				BodySHA256: bhash,
				Key:        idemKey,
				CreatedAt:  nowUTC(),
			}
			ok, err := provisionalSet(ctx, rdb, key, entry)
			if err != nil {
				log.WithError(err).Warn("idempotency store unavailable")
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "idempotency store unavailable"})
			}
			if !ok {
				// Key exists: body must match, and we may be able to replay
				cur, errLoad := loadEntry(ctx, rdb, key)
				if errLoad != nil {
					log.WithError(errLoad).WithField("key", key).Warn("failed to load idempotency entry")
				}

				if cur.BodySHA256 != "" && cur.BodySHA256 != bhash {
					return c.JSON(http.StatusConflict, map[string]string{"error": "Idempotency-Key reused with different body"})
				}
				if !cur.InProgress && cur.Code != 0 && len(cur.Body) > 0 {
					c.Response().Header().Set("Idempotent-Replayed", "true")
					return c.Blob(cur.Code, echo.MIMEApplicationJSON, cur.Body)
				}
				return c.JSON(http.StatusConflict, map[string]string{"error": "request is already in progress"})
			}

			// Call next and record final response
			rec := &respRecorder{w: c.Response().Writer, buf: &bytes.Buffer{}, code: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				c.Error(err)
			}

			// server errors are not cached so the client can retry
			if rec.code >= http.StatusInternalServerError {
				if err := release(context.Background(), rdb, key); err != nil {
					log.WithError(err).WithField("key", key).Warn("failed to release idempotency lock")
				}
				return nil
			}

			final := idempEntry{
				InProgress: false,
				Code:       rec.code,
				Body:       rec.buf.Bytes(),
				BodySHA256: bhash,
				Key:        idemKey,
				CreatedAt:  nowUTC(),
			}
			if err := saveFinal(context.Background(), rdb, key, final, ttl); err != nil {
				log.WithError(err).WithField("key", key).Warn("failed to save idempotency entry")
			}
			return nil
		}
	}
}
