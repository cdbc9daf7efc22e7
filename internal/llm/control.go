package llm

import (
	"context"
	"strings"
	"time"

	llmclient "travelhub/internal/llmClient"
)

// RateLimitControl delays calls for provider based on the last rate-limit
// headers src observed for the same model, so one model's limit never delays
// another. Hints expire once their window has passed. Waits longer than maxWait are skipped: the call goes
// out immediately and the provider's own rejection drives the caller's
// fallback instead of a long stall. maxWait <= 0 means no cap.
func RateLimitControl(provider string, src llmclient.RateLimitHeaderAwareClient, maxWait time.Duration) Middleware {
	return func(next llmclient.ChatClient) llmclient.ChatClient {
		return &rateLimitControlled{
			passthrough: passthrough{next},
			provider:    strings.ToLower(strings.TrimSpace(provider)),
			src:         src,
			maxWait:     maxWait,
		}
	}
}

type rateLimitControlled struct {
	passthrough
	provider string
	src      llmclient.RateLimitHeaderAwareClient
	maxWait  time.Duration
}

func (m *rateLimitControlled) Complete(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
	if err := m.wait(ctx, req); err != nil {
		return nil, err
	}
	return m.next.Complete(ctx, req)
}

func (m *rateLimitControlled) Stream(ctx context.Context, req llmclient.ChatRequest, onDelta func(string)) (*llmclient.ChatResponse, error) {
	if err := m.wait(ctx, req); err != nil {
		return nil, err
	}
	return m.next.Stream(ctx, req, onDelta)
}

func (m *rateLimitControlled) wait(ctx context.Context, req llmclient.ChatRequest) error {
	if m.src == nil || !strings.EqualFold(strings.TrimSpace(req.Provider), m.provider) {
		return nil
	}
	headers, ok := m.src.LastRateLimitHeaders(req.Model)
	if !ok {
		return nil
	}
	wait := headers.NextWait()
	if wait <= 0 || (m.maxWait > 0 && wait > m.maxWait) {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
