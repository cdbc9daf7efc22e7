package llmclient

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitHeaders represents normalized provider rate-limit signals.
// Remaining counts are -1 when the provider did not send them.
type RateLimitHeaders struct {
	RetryAfter time.Duration

	LimitRequests     int
	LimitTokens       int
	RemainingRequests int
	RemainingTokens   int

	ResetRequests time.Duration
	ResetTokens   time.Duration

	// Model is the model the response belonged to; Groq limits are per model.
	Model string
	// CapturedAt is when the headers were received. The durations above are
	// relative to it.
	CapturedAt time.Time
}

type RateLimitHeaderHandler func(headers RateLimitHeaders)

// RateLimitHeaderAwareClient is an optional interface for clients that expose
// parsed provider rate-limit headers, kept per model.
type RateLimitHeaderAwareClient interface {
	SetRateLimitHeaderHandler(handler RateLimitHeaderHandler)
	LastRateLimitHeaders(model string) (RateLimitHeaders, bool)
}

// NextWait converts the signals into how long the next request should wait
// from now.
func (h RateLimitHeaders) NextWait() time.Duration {
	return h.NextWaitAt(time.Now())
}

// NextWaitAt is NextWait evaluated at now. A retry-after hint wins; otherwise
// an exhausted bucket waits for its reset. Time elapsed since CapturedAt is
// subtracted, so a hint expires once its window has passed.
func (h RateLimitHeaders) NextWaitAt(now time.Time) time.Duration {
	var wait time.Duration
	switch {
	case h.RetryAfter > 0:
		wait = h.RetryAfter
	case h.RemainingTokens == 0 && h.ResetTokens > 0:
		wait = h.ResetTokens
	case h.RemainingRequests == 0 && h.ResetRequests > 0:
		wait = h.ResetRequests
	default:
		return 0
	}
	if !h.CapturedAt.IsZero() {
		wait -= now.Sub(h.CapturedAt)
	}
	if wait < 0 {
		return 0
	}
	return wait
}

// parseRateLimitHeaders reads the OpenAI-style headers Groq sends.
// For Groq the request fields are per day and the token fields per minute.
func parseRateLimitHeaders(h http.Header) (RateLimitHeaders, bool) {
	out := RateLimitHeaders{RemainingRequests: -1, RemainingTokens: -1}
	found := false

	ints := []struct {
		key string
		dst *int
	}{
		{"x-ratelimit-limit-requests", &out.LimitRequests},
		{"x-ratelimit-limit-tokens", &out.LimitTokens},
		{"x-ratelimit-remaining-requests", &out.RemainingRequests},
		{"x-ratelimit-remaining-tokens", &out.RemainingTokens},
	}
	for _, f := range ints {
		if n, err := strconv.Atoi(strings.TrimSpace(h.Get(f.key))); err == nil {
			*f.dst = n
			found = true
		}
	}

	durs := []struct {
		key string
		dst *time.Duration
	}{
		{"x-ratelimit-reset-requests", &out.ResetRequests},
		{"x-ratelimit-reset-tokens", &out.ResetTokens},
	}
	for _, f := range durs {
		if d, err := time.ParseDuration(strings.TrimSpace(h.Get(f.key))); err == nil {
			*f.dst = d
			found = true
		}
	}

	if d, ok := parseRetryAfter(h.Get("retry-after")); ok {
		out.RetryAfter = d
		found = true
	}
	return out, found
}

// parseRetryAfter accepts delta-seconds (optionally fractional) or an HTTP date.
func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := time.Until(at)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
