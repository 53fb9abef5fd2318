package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/catalogbrowser/api/responses"
	pkgerrors "github.com/angelmondragon/catalogbrowser/pkg/errors"
	"github.com/angelmondragon/catalogbrowser/pkg/logger"
	pkgredis "github.com/angelmondragon/catalogbrowser/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 128
)

// replayRule marks a route pattern as replayable. Required routes reject requests without a key.
type replayRule struct {
	method   string
	pattern  string
	required bool
}

var replayRules = []replayRule{
	{method: http.MethodPost, pattern: "/api/v1/checkout", required: true},
	{method: http.MethodPost, pattern: "/api/v1/cart/items"},
}

// storedResponse is what a replay writes back. Body marshals as base64. A pending record
// reserves the key while the first request is still running.
type storedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

type replayCache struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// Idempotency replays the stored response for a repeated Idempotency-Key within the same session
// and route. The key is reserved before the handler runs, so a retry that arrives while the first
// request is in flight gets a conflict instead of running twice. Server errors release the key so
// the client may retry them.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	cache := &replayCache{store: store, ttl: ttl, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := matchRule(r.Method, routePattern(r))
			if !ok || store == nil || ttl <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if clientKey == "" && !rule.required {
				next.ServeHTTP(w, r)
				return
			}
			if err := checkClientKey(clientKey); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(replayScope(r), clientKey)
			fingerprint := fingerprintOf(body)

			prior, err := cache.lookup(r, key)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if prior == nil {
				reserved, err := cache.reserve(r, key, fingerprint)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				if !reserved {
					// Lost the race to another request with the same key.
					if prior, err = cache.lookup(r, key); err != nil {
						responses.WriteError(r.Context(), logg, w, err)
						return
					}
					if prior == nil {
						prior = &storedResponse{Pending: true, Fingerprint: fingerprint}
					}
				}
			}
			if prior != nil {
				if err := prior.replayTo(w, fingerprint); err != nil {
					responses.WriteError(r.Context(), logg, w, err)
				}
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			defer func() {
				if p := recover(); p != nil {
					cache.release(r, key)
					panic(p)
				}
			}()
			next.ServeHTTP(capture, r)
			cache.remember(r, key, capture, fingerprint)
		})
	}
}

func checkClientKey(key string) error {
	switch {
	case key == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required")
	case len(key) > maxIdempotencyKeyLen:
		return pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long").
			WithDetails(map[string]any{"max_length": maxIdempotencyKeyLen})
	}
	return nil
}

// lookup returns nil, nil when nothing is stored under key.
func (c *replayCache) lookup(r *http.Request, key string) (*storedResponse, error) {
	raw, err := c.store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &prior, nil
}

func (c *replayCache) reserve(r *http.Request, key, fingerprint string) (bool, error) {
	payload, err := json.Marshal(storedResponse{Pending: true, Fingerprint: fingerprint})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency reservation")
	}
	ok, err := c.store.SetNX(r.Context(), key, string(payload), c.ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key")
	}
	return ok, nil
}

// remember replaces the reservation with the captured response, or drops it on a server error.
func (c *replayCache) remember(r *http.Request, key string, capture *responseCapture, fingerprint string) {
	status := defaultStatus(capture.status)
	if status >= http.StatusInternalServerError {
		c.release(r, key)
		return
	}
	payload, err := json.Marshal(storedResponse{
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
		Fingerprint: fingerprint,
	})
	if err != nil {
		c.logError(r, "idempotency.encode_failed", err)
		return
	}
	if err := c.store.Set(r.Context(), key, string(payload), c.ttl); err != nil {
		c.logError(r, "idempotency.store_failed", err)
	}
}

func (c *replayCache) release(r *http.Request, key string) {
	if err := c.store.Del(r.Context(), key); err != nil {
		c.logError(r, "idempotency.release_failed", err)
	}
}

func (c *replayCache) logError(r *http.Request, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Error(r.Context(), msg, err)
}

// replayTo writes the stored response, or returns the conflict that keeps the request from
// running again.
func (s *storedResponse) replayTo(w http.ResponseWriter, fingerprint string) error {
	if s.Fingerprint != fingerprint {
		return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
	}
	if s.Pending {
		return pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress")
	}
	s.writeTo(w)
	return nil
}

func (s *storedResponse) writeTo(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// replayScope keeps keys from colliding across sessions and routes.
func replayScope(r *http.Request) string {
	return SessionIDFromContext(r.Context()) + "|" + r.Method + "|" + r.URL.Path
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

// routePattern prefers the chi route pattern so rules match templated paths.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func matchRule(method, pattern string) (replayRule, bool) {
	for _, rule := range replayRules {
		if rule.method == method && rule.pattern == pattern {
			return rule, true
		}
	}
	return replayRule{}, false
}

// responseCapture tees the body so it can be stored after the handler returns.
type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
