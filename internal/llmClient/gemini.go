package llmclient

import (
	"context"
	"errors"
	"os"
	"strings"

	genai "google.golang.org/genai"
)

const ProviderGemini = "gemini"

// GeminiClient is a thin wrapper around the official genai client.
// Cross-cutting concerns (rate limiting, logging, hooks) are applied via
// middleware; retries and fallback belong to the caller.
type GeminiClient struct {
	cli    *genai.Client
	apiKey string
}

// NewGeminiClient creates a Gemini client. If apiKey is empty it falls back
// to GEMINI_API_KEY; without a key no genai client is created and every call
// fails with ErrMissingAPIKey.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	apiKey = strings.TrimSpace(apiKey)
	g := &GeminiClient{apiKey: apiKey}
	if apiKey == "" {
		return g, nil
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	g.cli = cli
	return g, nil
}

func (g *GeminiClient) Name() string { return "Gemini" }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) HasCredentials(provider string) bool {
	return strings.EqualFold(provider, ProviderGemini) && g.cli != nil
}

func (g *GeminiClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if g.cli == nil {
		return nil, ErrMissingAPIKey
	}
	resp, err := g.cli.Models.GenerateContent(ctx, req.Model, geminiContents(req), geminiConfig(req))
	if err != nil {
		return nil, mapGeminiError(ctx, err)
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}
	out := &ChatResponse{Model: req.Model, Content: candidateText(resp)}
	if resp.Candidates[0] != nil {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func (g *GeminiClient) Stream(ctx context.Context, req ChatRequest, onDelta func(delta string)) (*ChatResponse, error) {
	if g.cli == nil {
		return nil, ErrMissingAPIKey
	}
	var content strings.Builder
	out := &ChatResponse{Model: req.Model}
	for resp, err := range g.cli.Models.GenerateContentStream(ctx, req.Model, geminiContents(req), geminiConfig(req)) {
		if err != nil {
			out.Content = content.String()
			return out, mapGeminiError(ctx, err)
		}
		if resp == nil {
			continue
		}
		if len(resp.Candidates) > 0 && resp.Candidates[0] != nil && resp.Candidates[0].FinishReason != "" {
			out.FinishReason = string(resp.Candidates[0].FinishReason)
		}
		if resp.UsageMetadata != nil {
			out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
			out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}
		delta := candidateText(resp)
		if delta == "" {
			continue
		}
		content.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	out.Content = content.String()
	return out, nil
}

func geminiContents(req ChatRequest) []*genai.Content {
	return []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}}}
}

func geminiConfig(req ChatRequest) *genai.GenerateContentConfig {
	temp := float32(req.Temperature)
	return &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(req.MaxTokens),
	}
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// mapGeminiError turns genai API errors into *APIError so the status code is
// visible to the classifier.
func mapGeminiError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: ProviderGemini, StatusCode: apiErr.Code, Code: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &APIError{Provider: ProviderGemini, StatusCode: apiErrPtr.Code, Code: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return err
}
