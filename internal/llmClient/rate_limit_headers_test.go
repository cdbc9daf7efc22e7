package llmclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRateLimitHeaders_GroqFormat(t *testing.T) {
	h := http.Header{}
	h.Set("retry-after", "2")
	h.Set("x-ratelimit-limit-requests", "14400")
	h.Set("x-ratelimit-limit-tokens", "18000")
	h.Set("x-ratelimit-remaining-requests", "14370")
	h.Set("x-ratelimit-remaining-tokens", "17997")
	h.Set("x-ratelimit-reset-requests", "2m59.56s")
	h.Set("x-ratelimit-reset-tokens", "7.66s")

	got, ok := parseRateLimitHeaders(h)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, got.RetryAfter)
	assert.Equal(t, 14400, got.LimitRequests)
	assert.Equal(t, 18000, got.LimitTokens)
	assert.Equal(t, 14370, got.RemainingRequests)
	assert.Equal(t, 17997, got.RemainingTokens)
	assert.Equal(t, 2*time.Minute+59*time.Second+560*time.Millisecond, got.ResetRequests)
	assert.Equal(t, 7*time.Second+660*time.Millisecond, got.ResetTokens)
}

func TestParseRateLimitHeaders_Absent(t *testing.T) {
	got, ok := parseRateLimitHeaders(http.Header{})
	assert.False(t, ok)
	assert.Equal(t, -1, got.RemainingTokens)
	assert.Equal(t, time.Duration(0), got.NextWait())
}

func TestRateLimitHeaders_NextWait(t *testing.T) {
	assert.Equal(t, 3*time.Second, RateLimitHeaders{RetryAfter: 3 * time.Second}.NextWait())
	assert.Equal(t, 5*time.Second, RateLimitHeaders{RemainingRequests: -1, RemainingTokens: 0, ResetTokens: 5 * time.Second}.NextWait())
	assert.Equal(t, 11*time.Second, RateLimitHeaders{RemainingRequests: 0, RemainingTokens: -1, ResetRequests: 11 * time.Second}.NextWait())
	assert.Equal(t, time.Duration(0), RateLimitHeaders{RemainingRequests: -1, RemainingTokens: 10, ResetTokens: time.Second}.NextWait())
}

func TestRateLimitHeaders_NextWaitSubtractsElapsed(t *testing.T) {
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	h := RateLimitHeaders{RetryAfter: 3 * time.Second, RemainingRequests: -1, RemainingTokens: -1, CapturedAt: at}

	assert.Equal(t, 3*time.Second, h.NextWaitAt(at))
	assert.Equal(t, time.Second, h.NextWaitAt(at.Add(2*time.Second)))
	assert.Equal(t, time.Duration(0), h.NextWaitAt(at.Add(3*time.Second)))
	assert.Equal(t, time.Duration(0), h.NextWaitAt(at.Add(time.Minute)))

	reset := RateLimitHeaders{RemainingRequests: -1, RemainingTokens: 0, ResetTokens: 10 * time.Second, CapturedAt: at}
	assert.Equal(t, 4*time.Second, reset.NextWaitAt(at.Add(6*time.Second)))
}
