package llmclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Dispatcher routes each request to the client registered for its provider.
// It is populated at startup and read-only afterwards.
type Dispatcher struct {
	clients map[string]ChatClient
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{clients: map[string]ChatClient{}}
}

// Register adds client under provider. Provider keys are case-insensitive.
func (d *Dispatcher) Register(provider string, client ChatClient) *Dispatcher {
	d.clients[normalizeProvider(provider)] = client
	return d
}

func (d *Dispatcher) Name() string {
	names := make([]string, 0, len(d.clients))
	for p := range d.clients {
		names = append(names, p)
	}
	sort.Strings(names)
	return "Dispatch[" + strings.Join(names, ",") + "]"
}

func (d *Dispatcher) Close() error {
	var first error
	for _, c := range d.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (d *Dispatcher) HasCredentials(provider string) bool {
	c, ok := d.clients[normalizeProvider(provider)]
	if !ok {
		return false
	}
	return HasCredentials(c, provider)
}

func (d *Dispatcher) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	c, err := d.route(req.Provider)
	if err != nil {
		return nil, err
	}
	return c.Complete(ctx, req)
}

func (d *Dispatcher) Stream(ctx context.Context, req ChatRequest, onDelta func(string)) (*ChatResponse, error) {
	c, err := d.route(req.Provider)
	if err != nil {
		return nil, err
	}
	return c.Stream(ctx, req, onDelta)
}

func (d *Dispatcher) route(provider string) (ChatClient, error) {
	c, ok := d.clients[normalizeProvider(provider)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return c, nil
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
