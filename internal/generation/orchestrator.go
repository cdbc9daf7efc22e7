package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	llmclient "travelhub/internal/llmClient"
	"travelhub/internal/trip"
)

// Orchestrator walks the cascade for one prompt at a time. It holds only
// read-only configuration and is safe for concurrent use.
type Orchestrator struct {
	client     llmclient.ChatClient
	cascade    Cascade
	retry      RetryPolicy
	timeout    time.Duration
	minContent int
	log        *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error

	// configErr is set at construction when credentials are missing and
	// returned by every call.
	configErr error
}

type Option func(*Orchestrator)

func WithCascade(c Cascade) Option { return func(o *Orchestrator) { o.cascade = c } }

func WithRetryPolicy(p RetryPolicy) Option { return func(o *Orchestrator) { o.retry = p } }

// WithTimeout bounds each invocation. Zero leaves only the caller's deadline.
func WithTimeout(d time.Duration) Option { return func(o *Orchestrator) { o.timeout = d } }

func WithMinContentLength(n int) Option { return func(o *Orchestrator) { o.minContent = n } }

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSleep replaces the backoff wait. Tests use it to observe delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// New builds an orchestrator over client. A missing client or missing
// credentials for any provider in the cascade does not fail here; every
// invocation then returns ConfigurationMissing without calling a tier.
func New(client llmclient.ChatClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:     client,
		retry:      DefaultRetryPolicy,
		minContent: DefaultMinContentLength,
		log:        slog.Default(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cascade.Len() == 0 {
		o.cascade = DefaultCascade()
	}
	o.configErr = o.checkConfig()
	return o
}

func (o *Orchestrator) checkConfig() error {
	if o.client == nil {
		return newError(ConfigurationMissing, errors.New("no generation client configured"))
	}
	for _, p := range o.cascade.Providers() {
		if !llmclient.HasCredentials(o.client, p) {
			return newError(ConfigurationMissing, fmt.Errorf("%w for provider %q", llmclient.ErrMissingAPIKey, p))
		}
	}
	return nil
}

func (o *Orchestrator) Cascade() Cascade { return o.cascade }

func (o *Orchestrator) RetryPolicy() RetryPolicy { return o.retry }

// Ready reports the construction-time configuration error, if any.
func (o *Orchestrator) Ready() error { return o.configErr }

// Generate builds the prompt for answers and runs the cascade.
func (o *Orchestrator) Generate(ctx context.Context, answers trip.AnswerSet) (*GenerationResult, Trace, error) {
	prompt, params := trip.BuildPrompt(answers)
	res, trace, err := o.Run(ctx, prompt)
	if res != nil {
		res.Params = params
	}
	return res, trace, err
}

// Run executes the cascade for an already built prompt and returns the
// first acceptable output as one block.
func (o *Orchestrator) Run(ctx context.Context, prompt trip.Prompt) (*GenerationResult, Trace, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()
	call := func(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
		return o.client.Complete(ctx, req)
	}
	return o.run(ctx, prompt, call, nil)
}

func (o *Orchestrator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return context.WithCancel(ctx)
}

type state int

const (
	stateIdle state = iota
	stateTryingTier
	stateRetrying
	stateAdvancingTier
	stateSucceeded
	stateExhausted
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateTryingTier:
		return "trying_tier"
	case stateRetrying:
		return "retrying"
	case stateAdvancingTier:
		return "advancing_tier"
	case stateSucceeded:
		return "succeeded"
	case stateExhausted:
		return "all_tiers_exhausted"
	}
	return "unknown"
}

type callFunc func(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error)

// run is the state machine shared by the block and streaming paths.
// onFailure, when set, runs after every failed attempt before the next one.
func (o *Orchestrator) run(ctx context.Context, prompt trip.Prompt, call callFunc, onFailure func()) (*GenerationResult, Trace, error) {
	if o.configErr != nil {
		o.log.ErrorContext(ctx, "generation not configured", "error", o.configErr)
		return nil, nil, o.configErr
	}

	var (
		st       = stateIdle
		tier     int
		attempt  int
		trace    = make(Trace, 0, o.retry.MaxAttempts(o.cascade.Len()))
		result   *GenerationResult
		lastKind ErrorKind
		lastErr  error
	)
	for {
		switch st {
		case stateIdle:
			o.log.DebugContext(ctx, "generation started", "state", st, "tiers", o.cascade.Len())
			st = stateTryingTier

		case stateTryingTier, stateRetrying:
			if err := ctx.Err(); err != nil {
				return nil, trace, o.timedOut(ctx, err)
			}
			t := o.cascade.At(tier)
			start := time.Now()
			resp, err := call(ctx, o.request(prompt, tier))
			if err == nil && resp == nil {
				err = llmclient.ErrEmptyResponse
			}
			if err == nil {
				err = CheckContent(resp.Content, o.minContent)
			}
			if err == nil {
				trace = append(trace, Attempt{Tier: t, TierIndex: tier, Index: attempt, Outcome: Success, Elapsed: time.Since(start)})
				result = &GenerationResult{Content: resp.Content, Tier: t, TierIndex: tier, ToolCalls: resp.ToolCalls}
				st = stateSucceeded
				continue
			}

			kind := Classify(err)
			if ctx.Err() != nil {
				kind = Timeout
			}
			outcome := TerminalFailure
			if kind.Transient() {
				outcome = TransientFailure
			}
			trace = append(trace, Attempt{Tier: t, TierIndex: tier, Index: attempt, Outcome: outcome, Kind: kind, Elapsed: time.Since(start)})
			if onFailure != nil {
				onFailure()
			}
			o.logFailure(ctx, t, attempt, kind, err)

			switch kind {
			case Timeout:
				return nil, trace, o.timedOut(ctx, err)
			case ConfigurationMissing:
				return nil, trace, newError(kind, err)
			}
			lastKind, lastErr = kind, err

			if !o.retry.ShouldRetry(attempt, kind) {
				st = stateAdvancingTier
				continue
			}
			attempt++
			if err := o.sleep(ctx, o.retry.Backoff(attempt)); err != nil {
				return nil, trace, o.timedOut(ctx, err)
			}
			st = stateRetrying

		case stateAdvancingTier:
			tier++
			attempt = 0
			if tier >= o.cascade.Len() {
				st = stateExhausted
				continue
			}
			o.log.DebugContext(ctx, "advancing tier", "tier", o.cascade.At(tier).Name, "model", o.cascade.At(tier).Model)
			st = stateTryingTier

		case stateSucceeded:
			o.log.InfoContext(ctx, "itinerary generated",
				"tier", result.Tier.Name, "model", result.Tier.Model,
				"attempts", len(trace), "tool_calls", result.ToolCalls)
			return result, trace, nil

		case stateExhausted:
			o.log.WarnContext(ctx, "all tiers exhausted", "attempts", len(trace), "kind", lastKind)
			return nil, trace, newError(lastKind, lastErr)
		}
	}
}

// request builds the call for tier i. Fallback tiers get their note; the
// prompt itself is never modified.
func (o *Orchestrator) request(prompt trip.Prompt, i int) llmclient.ChatRequest {
	t := o.cascade.At(i)
	if i > 0 {
		prompt = prompt.WithNote(t.PromptNote)
	}
	return llmclient.ChatRequest{
		Provider:    t.Provider,
		Model:       t.Model,
		Prompt:      prompt.String(),
		MaxTokens:   t.MaxOutputTokens,
		Temperature: t.Temperature,
		Tools:       t.SupportsTools,
	}
}

func (o *Orchestrator) timedOut(ctx context.Context, cause error) error {
	o.log.WarnContext(ctx, "generation timed out", "error", cause)
	return newError(Timeout, cause)
}

func (o *Orchestrator) logFailure(ctx context.Context, t ModelTier, attempt int, kind ErrorKind, err error) {
	attrs := []any{"tier", t.Name, "model", t.Model, "attempt", attempt, "kind", kind}
	if kind == UnknownProvider {
		if apiErr, ok := llmclient.AsAPIError(err); ok {
			attrs = append(attrs, "status", apiErr.StatusCode, "body", string(apiErr.Raw))
		}
		o.log.ErrorContext(ctx, "attempt failed", append(attrs, "error", err)...)
		return
	}
	o.log.WarnContext(ctx, "attempt failed", append(attrs, "error", err)...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
