package generation

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy every generation failure is mapped onto.
type ErrorKind string

const (
	ConfigurationMissing ErrorKind = "configuration_missing"
	RateLimited          ErrorKind = "rate_limited"
	ServiceUnavailable   ErrorKind = "service_unavailable"
	Timeout              ErrorKind = "timeout"
	ContentRejected      ErrorKind = "content_rejected"
	UnknownProvider      ErrorKind = "unknown_provider"
)

// Transient reports whether an unmodified retry at the same tier may succeed.
func (k ErrorKind) Transient() bool { return k == ServiceUnavailable }

// Cascades reports whether the failure moves on to the next tier.
func (k ErrorKind) Cascades() bool {
	switch k {
	case ConfigurationMissing, Timeout:
		return false
	}
	return true
}

func (k ErrorKind) String() string {
	if k == "" {
		return "none"
	}
	return string(k)
}

var userMessages = map[ErrorKind]string{
	ConfigurationMissing: "Travel planning service is not properly configured. Please contact support.",
	RateLimited:          "Our travel planning service is currently busy. Please try again in a minute.",
	ServiceUnavailable:   "Our travel planning service is temporarily busy. Please try again in a few minutes.",
	Timeout:              "Creating your itinerary took too long. Please try again.",
}

const genericMessage = "We couldn't create your itinerary at this time. Please try again later."

// UserMessage returns the display text for kind. It never contains
// provider output.
func UserMessage(kind ErrorKind) string {
	if m, ok := userMessages[kind]; ok {
		return m
	}
	return genericMessage
}

// Error is the only error type the orchestrator returns to callers.
// Message is safe to show to end users; Cause keeps the raw failure for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Message: UserMessage(kind), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("generation %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("generation %s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, ErrRateLimited)
// works regardless of cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrConfigurationMissing = &Error{Kind: ConfigurationMissing}
	ErrRateLimited          = &Error{Kind: RateLimited}
	ErrServiceUnavailable   = &Error{Kind: ServiceUnavailable}
	ErrTimeout              = &Error{Kind: Timeout}
	ErrContentRejected      = &Error{Kind: ContentRejected}
	ErrUnknownProvider      = &Error{Kind: UnknownProvider}
)

// KindOf returns the kind of a generation error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}
