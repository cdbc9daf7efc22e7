package llm

import (
	"context"
	"log/slog"
	"time"

	llmclient "travelhub/internal/llmClient"
)

// WithLogging logs each provider call and its outcome. A nil logger uses
// slog.Default(). Prompts are never logged, only their size.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next llmclient.ChatClient) llmclient.ChatClient {
		return &logging{passthrough: passthrough{next}, log: logger}
	}
}

type logging struct {
	passthrough
	log *slog.Logger
}

func (l *logging) Complete(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
	start := time.Now()
	l.log.DebugContext(ctx, "llm request", callAttrs(req)...)
	resp, err := l.next.Complete(ctx, req)
	l.done(ctx, "llm response", req, resp, err, start)
	return resp, err
}

func (l *logging) Stream(ctx context.Context, req llmclient.ChatRequest, onDelta func(string)) (*llmclient.ChatResponse, error) {
	start := time.Now()
	l.log.DebugContext(ctx, "llm stream request", callAttrs(req)...)
	resp, err := l.next.Stream(ctx, req, onDelta)
	l.done(ctx, "llm stream response", req, resp, err, start)
	return resp, err
}

func (l *logging) done(ctx context.Context, msg string, req llmclient.ChatRequest, resp *llmclient.ChatResponse, err error, start time.Time) {
	attrs := append(callAttrs(req), "elapsed", time.Since(start))
	if resp != nil {
		attrs = append(attrs, "content_len", len(resp.Content), "completion_tokens", resp.CompletionTokens)
	}
	if err != nil {
		l.log.WarnContext(ctx, msg, append(attrs, "error", err)...)
		return
	}
	l.log.InfoContext(ctx, msg, attrs...)
}

func callAttrs(req llmclient.ChatRequest) []any {
	return []any{
		"provider", req.Provider,
		"model", req.Model,
		"prompt_bytes", len(req.Prompt),
		"max_tokens", req.MaxTokens,
	}
}
