package llmclient_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"

	"travelhub/internal/generation"
	llmclient "travelhub/internal/llmClient"
)

func TestMapGeminiError_Classifies(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want generation.ErrorKind
	}{
		{"quota", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota exceeded"}, generation.RateLimited},
		{"quota pointer", &genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, generation.RateLimited},
		{"unavailable", genai.APIError{Code: 503, Status: "UNAVAILABLE", Message: "overloaded"}, generation.ServiceUnavailable},
		{"unavailable wrapped", fmt.Errorf("generate: %w", genai.APIError{Code: 503, Status: "UNAVAILABLE"}), generation.ServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := llmclient.MapGeminiError(context.Background(), tc.err)

			var apiErr *llmclient.APIError
			require.ErrorAs(t, mapped, &apiErr)
			assert.Equal(t, llmclient.ProviderGemini, apiErr.Provider)
			assert.Equal(t, tc.want, generation.Classify(mapped))
		})
	}
}

func TestMapGeminiError_PrefersContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mapped := llmclient.MapGeminiError(ctx, genai.APIError{Code: 503})
	assert.ErrorIs(t, mapped, context.Canceled)
	assert.Equal(t, generation.Timeout, generation.Classify(mapped))
}
