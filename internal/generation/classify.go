package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	llmclient "travelhub/internal/llmClient"
)

// DefaultMinContentLength is the shortest output, in characters, that is
// accepted as an itinerary. Output of exactly this length is still rejected.
const DefaultMinContentLength = 100

// ContentError reports a successful call whose output is too short.
type ContentError struct {
	Length int
	Min    int
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content too short: %d characters, need more than %d", e.Length, e.Min)
}

// CheckContent rejects output of min characters or fewer, ignoring
// surrounding whitespace.
func CheckContent(content string, min int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n <= min {
		return &ContentError{Length: n, Min: min}
	}
	return nil
}

var (
	rateLimitMarkers   = []string{"rate limit", "rate_limit", "too many requests", "quota"}
	unavailableMarkers = []string{"service unavailable", "temporarily unavailable", "overloaded", "internal server error", "bad gateway"}
)

// Classify maps a raw failure onto an ErrorKind. It is the only place that
// inspects provider error shapes. Checks run in a fixed order: caller
// deadline, configuration, rate limit, availability, content, then
// everything else.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Timeout
	}
	if errors.Is(err, llmclient.ErrMissingAPIKey) {
		return ConfigurationMissing
	}

	status := 0
	msg := strings.ToLower(err.Error())
	if apiErr, ok := llmclient.AsAPIError(err); ok {
		status = apiErr.StatusCode
		msg = strings.ToLower(apiErr.Message + " " + apiErr.Code + " " + apiErr.Type)
	}
	if status == http.StatusUnauthorized {
		return ConfigurationMissing
	}
	if status == http.StatusTooManyRequests || containsAny(msg, rateLimitMarkers) {
		return RateLimited
	}
	if status >= http.StatusInternalServerError || containsAny(msg, unavailableMarkers) ||
		errors.Is(err, llmclient.ErrStreamInterrupted) {
		return ServiceUnavailable
	}

	var ce *ContentError
	if errors.As(err, &ce) || errors.Is(err, llmclient.ErrEmptyResponse) {
		return ContentRejected
	}
	return UnknownProvider
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
