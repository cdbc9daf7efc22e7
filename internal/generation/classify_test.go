package generation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	llmclient "travelhub/internal/llmClient"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"missing key", llmclient.ErrMissingAPIKey, ConfigurationMissing},
		{"wrapped missing key", fmt.Errorf("groq: %w", llmclient.ErrMissingAPIKey), ConfigurationMissing},
		{"unauthorized", &llmclient.APIError{StatusCode: 401, Message: "Invalid API Key"}, ConfigurationMissing},
		{"429", &llmclient.APIError{StatusCode: 429}, RateLimited},
		{"rate limit marker without status", &llmclient.APIError{Message: "Rate limit reached for tokens per minute"}, RateLimited},
		{"rate limit code", &llmclient.APIError{StatusCode: 400, Code: "rate_limit_exceeded"}, RateLimited},
		{"plain rate limit error", errors.New("upstream: too many requests"), RateLimited},
		{"503", &llmclient.APIError{StatusCode: 503}, ServiceUnavailable},
		{"500", &llmclient.APIError{StatusCode: 500, Message: "oops"}, ServiceUnavailable},
		{"marker", errors.New("Service Unavailable"), ServiceUnavailable},
		{"interrupted stream", llmclient.ErrStreamInterrupted, ServiceUnavailable},
		{"short content", &ContentError{Length: 12, Min: 100}, ContentRejected},
		{"empty response", llmclient.ErrEmptyResponse, ContentRejected},
		{"deadline", context.DeadlineExceeded, Timeout},
		{"canceled", fmt.Errorf("read: %w", context.Canceled), Timeout},
		{"already classified", newError(RateLimited, nil), RateLimited},
		{"bad request", &llmclient.APIError{StatusCode: 400, Message: "invalid model"}, UnknownProvider},
		{"unregistered provider", fmt.Errorf("%w: %q", llmclient.ErrUnknownProvider, "x"), UnknownProvider},
		{"anything else", errors.New("boom"), UnknownProvider},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestCheckContent(t *testing.T) {
	assert.Error(t, CheckContent("", 100))
	assert.Error(t, CheckContent("   \n\t", 0))

	var ce *ContentError
	err := CheckContent(" ab ", 2)
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, ce.Length)
	assert.NoError(t, CheckContent("abc", 2))
}

func TestErrorKindSemantics(t *testing.T) {
	assert.True(t, ServiceUnavailable.Transient())
	for _, k := range []ErrorKind{ConfigurationMissing, RateLimited, Timeout, ContentRejected, UnknownProvider} {
		assert.False(t, k.Transient(), k)
	}
	assert.False(t, ConfigurationMissing.Cascades())
	assert.False(t, Timeout.Cascades())
	assert.True(t, RateLimited.Cascades())
	assert.True(t, ContentRejected.Cascades())
	assert.Equal(t, "none", ErrorKind("").String())
}

func TestError_IsAndMessage(t *testing.T) {
	cause := &llmclient.APIError{StatusCode: 503, Message: "upstream exploded at 10.0.0.3"}
	err := fmt.Errorf("handler: %w", newError(ServiceUnavailable, cause))

	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, ServiceUnavailable, KindOf(err))

	var ge *Error
	assert.True(t, errors.As(err, &ge))
	assert.NotContains(t, ge.Message, "10.0.0.3")

	_, ok := llmclient.AsAPIError(err)
	assert.True(t, ok, "cause stays reachable for logging")
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("x")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Travel planning service is not properly configured. Please contact support.", UserMessage(ConfigurationMissing))
	assert.Equal(t, "Our travel planning service is currently busy. Please try again in a minute.", UserMessage(RateLimited))
	assert.Equal(t, genericMessage, UserMessage(UnknownProvider))
	assert.Equal(t, genericMessage, UserMessage(ContentRejected))
}
