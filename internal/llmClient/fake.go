package llmclient

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Step is one scripted backend outcome.
type Step struct {
	Content string
	// Deltas overrides how Content is split when streamed. When empty the
	// content is streamed in word-sized pieces.
	Deltas    []string
	ToolCalls int
	Err       error
	// StreamErr fails a stream after Deltas (or Content) were delivered.
	StreamErr error
}

// ScriptedClient replays Steps per model in order; the last step of a model
// repeats once its script is exhausted. It records every request it sees.
type ScriptedClient struct {
	mu       sync.Mutex
	scripts  map[string][]Step
	pos      map[string]int
	calls    []ChatRequest
	noCreds  map[string]bool
	fallback *Step
}

func NewScriptedClient() *ScriptedClient {
	return &ScriptedClient{
		scripts: map[string][]Step{},
		pos:     map[string]int{},
		noCreds: map[string]bool{},
	}
}

// On appends steps for model.
func (s *ScriptedClient) On(model string, steps ...Step) *ScriptedClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[model] = append(s.scripts[model], steps...)
	return s
}

// Default answers models that have no script.
func (s *ScriptedClient) Default(step Step) *ScriptedClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = &step
	return s
}

// WithoutCredentials makes HasCredentials report false for provider.
func (s *ScriptedClient) WithoutCredentials(provider string) *ScriptedClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noCreds[normalizeProvider(provider)] = true
	return s
}

func (s *ScriptedClient) Name() string { return "Scripted" }
func (s *ScriptedClient) Close() error { return nil }

func (s *ScriptedClient) HasCredentials(provider string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.noCreds[normalizeProvider(provider)]
}

// Calls returns a copy of the recorded requests.
func (s *ScriptedClient) Calls() []ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatRequest(nil), s.calls...)
}

func (s *ScriptedClient) next(req ChatRequest) Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	script := s.scripts[req.Model]
	if len(script) == 0 {
		if s.fallback != nil {
			return *s.fallback
		}
		return Step{Err: fmt.Errorf("scripted: no step for model %q", req.Model)}
	}
	i := s.pos[req.Model]
	if i >= len(script) {
		i = len(script) - 1
	}
	s.pos[req.Model] = i + 1
	return script[i]
}

func (s *ScriptedClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	step := s.next(req)
	if step.Err != nil {
		return nil, step.Err
	}
	return &ChatResponse{Content: step.Content, Model: req.Model, ToolCalls: step.ToolCalls, FinishReason: "stop"}, nil
}

func (s *ScriptedClient) Stream(ctx context.Context, req ChatRequest, onDelta func(string)) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	step := s.next(req)
	if step.Err != nil {
		return nil, step.Err
	}
	deltas := step.Deltas
	if len(deltas) == 0 {
		deltas = splitWords(step.Content)
	}
	var b strings.Builder
	for _, d := range deltas {
		if err := ctx.Err(); err != nil {
			return &ChatResponse{Content: b.String(), Model: req.Model}, err
		}
		b.WriteString(d)
		if onDelta != nil {
			onDelta(d)
		}
	}
	res := &ChatResponse{Content: b.String(), Model: req.Model, ToolCalls: step.ToolCalls, FinishReason: "stop"}
	if step.StreamErr != nil {
		return res, step.StreamErr
	}
	return res, nil
}

// splitWords splits s after each space so the pieces concatenate back to s.
func splitWords(s string) []string {
	var out []string
	for len(s) > 0 {
		i := strings.IndexByte(s, ' ')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}

// OfflineClient writes a deterministic placeholder itinerary from the prompt.
// It backs the CLI's --offline mode and local development without keys.
type OfflineClient struct{}

func (OfflineClient) Name() string { return "Offline" }
func (OfflineClient) Close() error { return nil }

func (o OfflineClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &ChatResponse{Content: offlineItinerary(req), Model: req.Model, FinishReason: "stop"}, nil
}

func (o OfflineClient) Stream(ctx context.Context, req ChatRequest, onDelta func(string)) (*ChatResponse, error) {
	res, err := o.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if onDelta != nil {
		for _, line := range strings.SplitAfter(res.Content, "\n") {
			if line != "" {
				onDelta(line)
			}
		}
	}
	return res, nil
}

func offlineItinerary(req ChatRequest) string {
	var days []string
	for _, line := range strings.Split(req.Prompt, "\n") {
		if t := strings.TrimSpace(line); strings.HasPrefix(t, "- Day ") {
			days = append(days, strings.TrimSuffix(strings.TrimPrefix(t, "- "), ":"))
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "OVERVIEW\n\nOffline itinerary generated by %s without contacting a provider.\n\n", req.Model)
	b.WriteString("DAY-BY-DAY ITINERARY\n\n")
	for _, d := range days {
		fmt.Fprintf(&b, "%s: Morning walk, afternoon museum visit, evening dinner at a local restaurant.\n", d)
	}
	b.WriteString("\nTRAVEL TIPS\n\nCheck opening hours before you go and keep some local cash for small vendors.\n")
	return b.String()
}
