package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	ProviderGroq       = "groq"
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1/chat/completions"
)

// GroqClient calls the Groq Chat Completions API (OpenAI-compatible).
// See: https://console.groq.com/docs/api-reference
type GroqClient struct {
	http    *http.Client
	apiKey  string
	baseURL string

	rlMu      sync.RWMutex
	rlByModel map[string]RateLimitHeaders
	rlHandler RateLimitHeaderHandler
}

type GroqOption func(*GroqClient)

// WithGroqBaseURL points the client at another chat-completions endpoint.
func WithGroqBaseURL(u string) GroqOption {
	return func(g *GroqClient) {
		if strings.TrimSpace(u) != "" {
			g.baseURL = strings.TrimSpace(u)
		}
	}
}

// WithGroqHTTPClient replaces the default HTTP client.
func WithGroqHTTPClient(c *http.Client) GroqOption {
	return func(g *GroqClient) {
		if c != nil {
			g.http = c
		}
	}
}

// NewGroqClient creates a Groq client. If apiKey is empty, it falls back to
// GROQ_API_KEY. A client without a key is still returned; every call then
// fails with ErrMissingAPIKey.
func NewGroqClient(apiKey string, opts ...GroqOption) *GroqClient {
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	g := &GroqClient{
		// No client-side timeout: streams can run long and the caller's
		// context carries the deadline.
		http:    &http.Client{},
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultGroqBaseURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GroqClient) Name() string { return "Groq" }
func (g *GroqClient) Close() error { return nil }

func (g *GroqClient) HasCredentials(provider string) bool {
	return strings.EqualFold(provider, ProviderGroq) && g.apiKey != ""
}

func (g *GroqClient) SetRateLimitHeaderHandler(handler RateLimitHeaderHandler) {
	g.rlMu.Lock()
	defer g.rlMu.Unlock()
	g.rlHandler = handler
}

// LastRateLimitHeaders returns the most recent headers seen for model.
func (g *GroqClient) LastRateLimitHeaders(model string) (RateLimitHeaders, bool) {
	g.rlMu.RLock()
	defer g.rlMu.RUnlock()
	h, ok := g.rlByModel[model]
	return h, ok
}

type groqChatReq struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type groqChatResp struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content       string            `json:"content"`
			ExecutedTools []json.RawMessage `json:"executed_tools"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *groqUsage `json:"usage"`
}

type groqStreamEvent struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content       string            `json:"content"`
			ExecutedTools []json.RawMessage `json:"executed_tools"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	XGroq *struct {
		Usage *groqUsage `json:"usage"`
	} `json:"x_groq"`
	Error *groqErrorBody `json:"error"`
}

type groqErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// Complete sends the prompt as a single user message.
func (g *GroqClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := g.do(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out groqChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("groq: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	choice := out.Choices[0]
	res := &ChatResponse{
		Content:      choice.Message.Content,
		Model:        firstNonEmpty(out.Model, req.Model),
		FinishReason: choice.FinishReason,
		ToolCalls:    len(choice.Message.ExecutedTools),
	}
	if out.Usage != nil {
		res.PromptTokens = out.Usage.PromptTokens
		res.CompletionTokens = out.Usage.CompletionTokens
	}
	return res, nil
}

// Stream requests an SSE response and forwards each content delta.
// A body that ends without the [DONE] marker yields ErrStreamInterrupted
// together with whatever content arrived.
func (g *GroqClient) Stream(ctx context.Context, req ChatRequest, onDelta func(delta string)) (*ChatResponse, error) {
	resp, err := g.do(ctx, req, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var content strings.Builder
	res := &ChatResponse{Model: req.Model}
	events := newSSEReader(resp.Body)
	for {
		data, err := events.Next()
		if err != nil {
			res.Content = content.String()
			if errors.Is(err, io.EOF) {
				return res, ErrStreamInterrupted
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			return res, fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
		}
		if bytes.Equal(bytes.TrimSpace(data), []byte("[DONE]")) {
			res.Content = content.String()
			return res, nil
		}

		var ev groqStreamEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			res.Content = content.String()
			return res, fmt.Errorf("groq: decode stream event: %w", err)
		}
		if ev.Error != nil {
			res.Content = content.String()
			return res, &APIError{
				Provider: ProviderGroq,
				Code:     stringify(ev.Error.Code),
				Type:     ev.Error.Type,
				Message:  ev.Error.Message,
				Raw:      truncateBody(data),
			}
		}
		if ev.Model != "" {
			res.Model = ev.Model
		}
		if ev.XGroq != nil && ev.XGroq.Usage != nil {
			res.PromptTokens = ev.XGroq.Usage.PromptTokens
			res.CompletionTokens = ev.XGroq.Usage.CompletionTokens
		}
		if len(ev.Choices) == 0 {
			continue
		}
		choice := ev.Choices[0]
		res.ToolCalls += len(choice.Delta.ExecutedTools)
		if choice.FinishReason != nil {
			res.FinishReason = *choice.FinishReason
		}
		if choice.Delta.Content == "" {
			continue
		}
		content.WriteString(choice.Delta.Content)
		if onDelta != nil {
			onDelta(choice.Delta.Content)
		}
	}
}

func (g *GroqClient) do(ctx context.Context, req ChatRequest, stream bool) (*http.Response, error) {
	if g.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	body, err := json.Marshal(groqChatReq{
		Model:       req.Model,
		Messages:    []groqMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := g.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("groq: %w", err)
	}
	rl, hasRL := g.captureRateLimitHeaders(req.Model, resp.Header)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			Provider:   ProviderGroq,
			StatusCode: resp.StatusCode,
			Raw:        truncateBody(raw),
		}
		if hasRL {
			apiErr.RetryAfter = rl.RetryAfter
		}
		var env struct {
			Error *groqErrorBody `json:"error"`
		}
		if json.Unmarshal(raw, &env) == nil && env.Error != nil {
			apiErr.Message = env.Error.Message
			apiErr.Type = env.Error.Type
			apiErr.Code = stringify(env.Error.Code)
		}
		return nil, apiErr
	}
	return resp, nil
}

func (g *GroqClient) captureRateLimitHeaders(model string, h http.Header) (RateLimitHeaders, bool) {
	parsed, ok := parseRateLimitHeaders(h)
	if !ok {
		return parsed, false
	}
	parsed.Model = model
	parsed.CapturedAt = time.Now()
	g.rlMu.Lock()
	if g.rlByModel == nil {
		g.rlByModel = map[string]RateLimitHeaders{}
	}
	g.rlByModel[model] = parsed
	handler := g.rlHandler
	g.rlMu.Unlock()
	if handler != nil {
		handler(parsed)
	}
	return parsed, true
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
