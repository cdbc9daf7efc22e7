package llm

import (
	"context"

	llmclient "travelhub/internal/llmClient"
)

// PromptHook defines callbacks around provider calls.
type PromptHook interface {
	Before(ctx context.Context, req llmclient.ChatRequest)
	After(ctx context.Context, req llmclient.ChatRequest, resp *llmclient.ChatResponse, err error)
}

type ctxKeyHook struct{}

// WithPromptHook attaches a PromptHook to the context. The WithHooks
// middleware picks it up and invokes Before/After around each call.
func WithPromptHook(ctx context.Context, hook PromptHook) context.Context {
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) PromptHook {
	if v := ctx.Value(ctxKeyHook{}); v != nil {
		if h, ok := v.(PromptHook); ok {
			return h
		}
	}
	return nil
}

// WithHooks calls HookFrom(ctx).Before/After around every call.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next llmclient.ChatClient) llmclient.ChatClient {
		return &hooked{passthrough{next}}
	}
}

type hooked struct{ passthrough }

func (h *hooked) Complete(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, req)
	}
	resp, err := h.next.Complete(ctx, req)
	if hook != nil {
		hook.After(ctx, req, resp, err)
	}
	return resp, err
}

func (h *hooked) Stream(ctx context.Context, req llmclient.ChatRequest, onDelta func(string)) (*llmclient.ChatResponse, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, req)
	}
	resp, err := h.next.Stream(ctx, req, onDelta)
	if hook != nil {
		hook.After(ctx, req, resp, err)
	}
	return resp, err
}
