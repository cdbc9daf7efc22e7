package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroqTestServer(t *testing.T, h http.HandlerFunc) *GroqClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewGroqClient("test-key", WithGroqBaseURL(srv.URL), WithGroqHTTPClient(srv.Client()))
}

func TestGroqClient_Complete(t *testing.T) {
	var got groqChatReq
	cli := newGroqTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("x-ratelimit-remaining-requests", "99")
		_, _ = fmt.Fprint(w, `{"model":"compound-beta","choices":[{"message":{"content":"hello world","executed_tools":[{"type":"search"},{"type":"search"}]},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":2}}`)
	})

	res, err := cli.Complete(context.Background(), ChatRequest{Provider: ProviderGroq, Model: "compound-beta", Prompt: "plan", MaxTokens: 1200, Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Content)
	assert.Equal(t, 2, res.ToolCalls)
	assert.Equal(t, 12, res.PromptTokens)
	assert.Equal(t, "stop", res.FinishReason)

	assert.Equal(t, "compound-beta", got.Model)
	assert.Equal(t, 1200, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "plan", got.Messages[0].Content)
	assert.False(t, got.Stream)

	rl, ok := cli.LastRateLimitHeaders("compound-beta")
	require.True(t, ok)
	assert.Equal(t, 99, rl.RemainingRequests)
	assert.Equal(t, "compound-beta", rl.Model)
	assert.False(t, rl.CapturedAt.IsZero())

	_, ok = cli.LastRateLimitHeaders("llama3-70b-8192")
	assert.False(t, ok)
}

func TestGroqClient_ErrorStatus(t *testing.T) {
	cli := newGroqTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("retry-after", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = fmt.Fprint(w, `{"error":{"message":"Rate limit reached for model","type":"tokens","code":"rate_limit_exceeded"}}`)
	})

	_, err := cli.Complete(context.Background(), ChatRequest{Provider: ProviderGroq, Model: "m"})
	apiErr, ok := AsAPIError(err)
	require.True(t, ok, "want *APIError, got %v", err)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "rate_limit_exceeded", apiErr.Code)
	assert.Equal(t, 7*time.Second, apiErr.RetryAfter)
	assert.Contains(t, apiErr.Error(), "http 429")
}

func TestGroqClient_MissingKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	cli := NewGroqClient("")
	assert.False(t, cli.HasCredentials(ProviderGroq))
	_, err := cli.Complete(context.Background(), ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGroqClient_Stream(t *testing.T) {
	cli := newGroqTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req groqChatReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"Day ", "one ", "in Lisbon"} {
			_, _ = fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", piece)
		}
		_, _ = fmt.Fprint(w, ": keep-alive\n\n")
		_, _ = fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}],\"x_groq\":{\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":3}}}\n\n")
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var deltas []string
	res, err := cli.Stream(context.Background(), ChatRequest{Provider: ProviderGroq, Model: "m"}, func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)
	assert.Equal(t, []string{"Day ", "one ", "in Lisbon"}, deltas)
	assert.Equal(t, "Day one in Lisbon", res.Content)
	assert.Equal(t, strings.Join(deltas, ""), res.Content)
	assert.Equal(t, "stop", res.FinishReason)
	assert.Equal(t, 3, res.CompletionTokens)
}

func TestGroqClient_StreamInterrupted(t *testing.T) {
	cli := newGroqTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
	})

	res, err := cli.Stream(context.Background(), ChatRequest{Model: "m"}, nil)
	require.ErrorIs(t, err, ErrStreamInterrupted)
	assert.Equal(t, "partial", res.Content)
}

func TestGroqClient_StreamErrorEvent(t *testing.T) {
	cli := newGroqTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "data: {\"error\":{\"message\":\"Service Unavailable\",\"type\":\"internal_server_error\"}}\n\n")
	})

	_, err := cli.Stream(context.Background(), ChatRequest{Model: "m"}, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Service Unavailable", apiErr.Message)
}

func TestDispatcher_Routes(t *testing.T) {
	groq := NewScriptedClient().Default(Step{Content: "from groq"})
	d := NewDispatcher().Register("Groq", groq)

	res, err := d.Complete(context.Background(), ChatRequest{Provider: "groq", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "from groq", res.Content)

	_, err = d.Complete(context.Background(), ChatRequest{Provider: "gemini", Model: "m"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.True(t, d.HasCredentials("GROQ"))
	assert.False(t, d.HasCredentials("gemini"))
}

func TestScriptedClient_StreamSplitsContent(t *testing.T) {
	c := NewScriptedClient().On("m", Step{Content: "a b  c"})
	var got []string
	res, err := c.Stream(context.Background(), ChatRequest{Model: "m"}, func(d string) { got = append(got, d) })
	require.NoError(t, err)
	assert.Equal(t, "a b  c", strings.Join(got, ""))
	assert.Equal(t, "a b  c", res.Content)
}

func TestGeminiClient_WithoutKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	g, err := NewGeminiClient(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, g.HasCredentials(ProviderGemini))
	_, err = g.Complete(context.Background(), ChatRequest{Model: "gemini-2.5-flash"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
