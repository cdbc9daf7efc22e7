package llmclient

import "context"

// ChatRequest is a single-turn chat completion call.
type ChatRequest struct {
	Provider    string
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// Tools marks calls to models that run server-side tools (e.g. web search).
	Tools bool
}

// ChatResponse is the assistant reply of a completed call. Streamed calls
// return the concatenation of every delta in Content.
type ChatResponse struct {
	Content          string
	Model            string
	FinishReason     string
	ToolCalls        int
	PromptTokens     int
	CompletionTokens int
}

// ChatClient is implemented by every backend and by every middleware layer.
type ChatClient interface {
	Name() string
	Close() error
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Stream delivers content deltas to onDelta in the order the backend
	// produced them and returns the assembled response once the stream ends.
	Stream(ctx context.Context, req ChatRequest, onDelta func(delta string)) (*ChatResponse, error)
}

// CredentialChecker is an optional interface for clients that can tell,
// without a network call, whether a provider has credentials configured.
type CredentialChecker interface {
	HasCredentials(provider string) bool
}

// HasCredentials asks c about provider. Clients that do not implement
// CredentialChecker are assumed to be configured.
func HasCredentials(c ChatClient, provider string) bool {
	if cc, ok := c.(CredentialChecker); ok {
		return cc.HasCredentials(provider)
	}
	return true
}
