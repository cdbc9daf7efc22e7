package llm

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	llmclient "travelhub/internal/llmClient"
)

// UsageLedger aggregates provider usage per UTC day and per model. When a
// path is set, every update is also persisted as JSON so counters survive
// restarts.
type UsageLedger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
	data UsageReport
}

// UsageReport is the serialized ledger.
type UsageReport struct {
	UpdatedAt string              `json:"updated_at"`
	Days      map[string]UsageDay `json:"days"`
}

type UsageDay struct {
	Requests int64                `json:"requests"`
	Tokens   int64                `json:"tokens"`
	Errors   int64                `json:"errors"`
	Models   map[string]UsageStat `json:"models"`
}

type UsageStat struct {
	Requests int64 `json:"requests"`
	Tokens   int64 `json:"tokens"`
	Errors   int64 `json:"errors"`
}

// NewUsageLedger creates a ledger. An empty path keeps it in memory only;
// otherwise existing data at path is loaded.
func NewUsageLedger(path string) *UsageLedger {
	l := &UsageLedger{path: path, now: time.Now, data: UsageReport{Days: map[string]UsageDay{}}}
	if path == "" {
		return l
	}
	if b, err := os.ReadFile(path); err == nil {
		var loaded UsageReport
		if json.Unmarshal(b, &loaded) == nil && loaded.Days != nil {
			l.data = loaded
		}
	}
	return l
}

// WithUsage records every call in ledger.
func WithUsage(ledger *UsageLedger) Middleware {
	return func(next llmclient.ChatClient) llmclient.ChatClient {
		if ledger == nil {
			return next
		}
		return &usageClient{passthrough: passthrough{next}, ledger: ledger}
	}
}

type usageClient struct {
	passthrough
	ledger *UsageLedger
}

func (u *usageClient) Complete(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
	resp, err := u.next.Complete(ctx, req)
	u.ledger.Record(req.Model, callTokens(req, resp), err != nil)
	return resp, err
}

func (u *usageClient) Stream(ctx context.Context, req llmclient.ChatRequest, onDelta func(string)) (*llmclient.ChatResponse, error) {
	resp, err := u.next.Stream(ctx, req, onDelta)
	u.ledger.Record(req.Model, callTokens(req, resp), err != nil)
	return resp, err
}

// callTokens prefers provider-reported usage and falls back to a
// four-bytes-per-token estimate.
func callTokens(req llmclient.ChatRequest, resp *llmclient.ChatResponse) int64 {
	if resp != nil && resp.PromptTokens+resp.CompletionTokens > 0 {
		return int64(resp.PromptTokens + resp.CompletionTokens)
	}
	n := len(req.Prompt)
	if resp != nil {
		n += len(resp.Content)
	}
	t := int64(n / 4)
	if t < 1 {
		t = 1
	}
	return t
}

// Record adds one call for model.
func (l *UsageLedger) Record(model string, tokens int64, failed bool) {
	if model == "" {
		model = "unknown"
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	dayKey := now.Format("2006-01-02")
	d := l.data.Days[dayKey]
	if d.Models == nil {
		d.Models = map[string]UsageStat{}
	}
	d.Requests++
	d.Tokens += tokens
	m := d.Models[model]
	m.Requests++
	m.Tokens += tokens
	if failed {
		d.Errors++
		m.Errors++
	}
	d.Models[model] = m
	l.data.Days[dayKey] = d
	l.data.UpdatedAt = now.Format(time.RFC3339)

	l.persist()
}

// Snapshot returns a deep copy of the ledger.
func (l *UsageLedger) Snapshot() UsageReport {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := UsageReport{UpdatedAt: l.data.UpdatedAt, Days: make(map[string]UsageDay, len(l.data.Days))}
	for k, d := range l.data.Days {
		models := make(map[string]UsageStat, len(d.Models))
		for m, s := range d.Models {
			models[m] = s
		}
		d.Models = models
		out.Days[k] = d
	}
	return out
}

// DayKeys lists the recorded day keys in ascending order.
func (r UsageReport) DayKeys() []string {
	keys := make([]string, 0, len(r.Days))
	for k := range r.Days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// persist writes through a temp file and rename. Failures are ignored; the
// in-memory counters stay authoritative.
func (l *UsageLedger) persist() {
	if l.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return
	}
	b, err := json.MarshalIndent(l.data, "", "  ")
	if err != nil {
		return
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, l.path)
}
