package llmclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrMissingAPIKey is returned when a provider is called without credentials.
	ErrMissingAPIKey = errors.New("llm: missing API key")
	// ErrEmptyResponse is returned when the provider answered without any choice.
	ErrEmptyResponse = errors.New("llm: response has no choices")
	// ErrStreamInterrupted is returned when a stream ends before its terminal event.
	ErrStreamInterrupted = errors.New("llm: stream ended before completion")
	// ErrUnknownProvider is returned by the dispatcher for unregistered providers.
	ErrUnknownProvider = errors.New("llm: unknown provider")
)

// APIError describes a non-2xx response or an error event inside a stream.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string
	Type       string
	Message    string
	RetryAfter time.Duration
	// Raw is the response body, truncated to maxErrorBody bytes.
	Raw []byte
}

const maxErrorBody = 2048

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "http %d", e.StatusCode)
	} else {
		b.WriteString("api error")
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.StatusCode != 0 {
		msg = http.StatusText(e.StatusCode)
	}
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.Code != "" {
		b.WriteString(" (")
		b.WriteString(e.Code)
		b.WriteString(")")
	}
	return b.String()
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func truncateBody(b []byte) []byte {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return append([]byte(nil), b...)
}
