package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"travelhub/internal/generation"
	"travelhub/internal/llm"
)

// ClientLimiter keeps one token bucket per client address. Buckets live in
// an LRU cache, so memory stays bounded no matter how many clients appear;
// an evicted client simply starts over with a full bucket.
type ClientLimiter struct {
	rps     float64
	burst   int
	buckets *lru.Cache[string, llm.Limiter]
	log     *slog.Logger
}

// NewClientLimiter returns nil when rps <= 0, which disables throttling.
func NewClientLimiter(rps float64, burst, size int, logger *slog.Logger) (*ClientLimiter, error) {
	if rps <= 0 {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.NewWithEvict[string, llm.Limiter](size, func(_ string, l llm.Limiter) {
		l.Stop()
	})
	if err != nil {
		return nil, err
	}
	return &ClientLimiter{rps: rps, burst: burst, buckets: cache, log: logger}, nil
}

// Allow takes a token for key without waiting.
func (c *ClientLimiter) Allow(key string) bool {
	if c == nil {
		return true
	}
	l, ok := c.buckets.Get(key)
	if !ok {
		l = llm.NewLimiter(c.rps, c.burst)
		if prev, found, _ := c.buckets.PeekOrAdd(key, l); found {
			l.Stop()
			l = prev
		}
	}
	return l.TryAcquire()
}

// Len reports how many clients currently have a bucket.
func (c *ClientLimiter) Len() int {
	if c == nil {
		return 0
	}
	return c.buckets.Len()
}

// Throttle rejects requests from clients that exhausted their bucket with
// 429 and the same body shape as a rate-limited generation.
func (c *ClientLimiter) Throttle(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientKey(r)
		if !c.Allow(key) {
			c.log.WarnContext(r.Context(), "client throttled", "client", key, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.Header().Set("X-Error-Kind", string(generation.RateLimited))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   generation.UserMessage(generation.RateLimited),
				"kind":    generation.RateLimited,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientKey identifies the caller: the first X-Forwarded-For hop when a proxy
// set one, otherwise the remote host.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
