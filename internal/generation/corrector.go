package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	llmclient "travelhub/internal/llmClient"
	"travelhub/internal/trip"
)

const (
	DefaultValidationTimeout = 5 * time.Second
	maxSuggestionLength      = 200
	correctionMaxTokens      = 100
)

// Corrector asks the cascade's last tier for a corrected answer when local
// validation rejects one. It runs under its own short deadline, makes a
// single attempt, and treats every failure as "no suggestion".
type Corrector struct {
	client  llmclient.ChatClient
	tier    ModelTier
	timeout time.Duration
	log     *slog.Logger
}

func NewCorrector(client llmclient.ChatClient, cascade Cascade, timeout time.Duration, logger *slog.Logger) *Corrector {
	if timeout <= 0 {
		timeout = DefaultValidationTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cascade.Len() == 0 {
		cascade = DefaultCascade()
	}
	return &Corrector{client: client, tier: cascade.Last(), timeout: timeout, log: logger}
}

// Suggest returns a corrected answer for question index, or false when no
// usable suggestion could be produced in time.
func (c *Corrector) Suggest(ctx context.Context, index int, answer, problem string) (string, bool) {
	if c == nil || c.client == nil || index < 0 || index >= trip.QuestionCount {
		return "", false
	}
	if !llmclient.HasCredentials(c.client, c.tier.Provider) {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Complete(ctx, llmclient.ChatRequest{
		Provider:    c.tier.Provider,
		Model:       c.tier.Model,
		Prompt:      correctionPrompt(index, answer, problem),
		MaxTokens:   correctionMaxTokens,
		Temperature: 0.2,
	})
	if err == nil && resp == nil {
		err = llmclient.ErrEmptyResponse
	}
	if err != nil {
		c.log.WarnContext(ctx, "answer correction failed", "question", index, "kind", Classify(err), "error", err)
		return "", false
	}
	s := cleanSuggestion(resp.Content)
	if s == "" || s == strings.TrimSpace(answer) || utf8.RuneCountInString(s) > maxSuggestionLength {
		return "", false
	}
	return s, true
}

func correctionPrompt(index int, answer, problem string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A traveler planning a trip was asked: %q\n", trip.Questions[index])
	fmt.Fprintf(&b, "They answered: %q\n", answer)
	if problem != "" {
		fmt.Fprintf(&b, "The answer was rejected because: %s\n", problem)
	}
	b.WriteString("\nSuggest one corrected answer that keeps the traveler's intent. ")
	b.WriteString("Reply with the corrected answer only, without quotes or explanation.")
	return b.String()
}

func cleanSuggestion(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return strings.Trim(s, "\"'` ")
}
