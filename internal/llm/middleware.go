package llm

import (
	llmclient "travelhub/internal/llmClient"
)

// Middleware decorates a ChatClient to inject cross-cutting concerns
// (rate limiting, logging, hooks, usage accounting).
type Middleware func(llmclient.ChatClient) llmclient.ChatClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.ChatClient, mws ...Middleware) llmclient.ChatClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// passthrough forwards everything but the call methods. Embedding it keeps
// each middleware down to the methods it changes.
type passthrough struct {
	next llmclient.ChatClient
}

func (p passthrough) Name() string { return p.next.Name() }
func (p passthrough) Close() error { return p.next.Close() }

func (p passthrough) HasCredentials(provider string) bool {
	return llmclient.HasCredentials(p.next, provider)
}
