package llm

import (
	"context"
	"os"
	"strconv"
	"time"

	llmclient "travelhub/internal/llmClient"
)

// rpsLimiter is a lightweight token-bucket limiter that throttles to at most
// R requests per second with an optional burst capacity.
type rpsLimiter struct {
	tokens chan struct{}
	stopCh chan struct{}
}

// newRPSLimiter creates a limiter that allows up to rps events per second
// with a burst capacity of 'burst'. If rps <= 0 it returns nil, and Acquire
// on a nil limiter is a no-op.
func newRPSLimiter(rps float64, burst int) *rpsLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}

	l := &rpsLimiter{
		tokens: make(chan struct{}, burst),
		stopCh: make(chan struct{}),
	}
	for i := 0; i < burst; i++ {
		l.tokens <- struct{}{}
	}

	period := time.Duration(float64(time.Second) / rps)
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case l.tokens <- struct{}{}:
				default:
					// bucket full; drop token
				}
			case <-l.stopCh:
				return
			}
		}
	}()

	return l
}

// Acquire blocks until a token is available or the context is canceled.
func (l *rpsLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		return context.Canceled
	case <-l.tokens:
		return nil
	}
}

// TryAcquire takes a token if one is available without waiting.
// A nil limiter always succeeds.
func (l *rpsLimiter) TryAcquire() bool {
	if l == nil {
		return true
	}
	select {
	case <-l.tokens:
		return true
	default:
		return false
	}
}

// AcquireN acquires n tokens sequentially.
func (l *rpsLimiter) AcquireN(ctx context.Context, n int) error {
	if l == nil || n <= 0 {
		return nil
	}
	for i := 0; i < n; i++ {
		if err := l.Acquire(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop terminates the limiter's refill goroutine.
func (l *rpsLimiter) Stop() {
	if l == nil {
		return
	}
	close(l.stopCh)
}

// Limiter is the minimal surface the HTTP layer needs for per-client limits.
type Limiter interface {
	Acquire(ctx context.Context) error
	TryAcquire() bool
	Stop()
}

// NewLimiter returns a token-bucket Limiter, or nil when rps <= 0.
func NewLimiter(rps float64, burst int) Limiter {
	l := newRPSLimiter(rps, burst)
	if l == nil {
		return nil
	}
	return l
}

// RateLimit limits the request rate to the provider.
// If rps <= 0, the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.ChatClient) llmclient.ChatClient {
		return &rateLimited{passthrough: passthrough{next}, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	passthrough
	rl *rpsLimiter
}

func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}

func (c *rateLimited) Complete(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.next.Complete(ctx, req)
}

func (c *rateLimited) Stream(ctx context.Context, req llmclient.ChatRequest, onDelta func(string)) (*llmclient.ChatResponse, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.next.Stream(ctx, req, onDelta)
}

// RateLimitFromEnv reads _RPS/_BURST from environment variables with the
// given prefixes in priority order. For example, ("LLM","GROQ") checks
// LLM_RPS/LLM_BURST first, then GROQ_RPS/GROQ_BURST.
func RateLimitFromEnv(prefixes ...string) Middleware {
	rps, _ := strconv.ParseFloat(envByPrefix("_RPS", prefixes), 64)
	burst, _ := strconv.Atoi(envByPrefix("_BURST", prefixes))
	return RateLimit(rps, burst)
}

// MultiLimit applies minute/day request limits and tokens-per-minute.
// Pass 0 to disable a specific limiter. Burst is the nominal rate.
// The token limiter charges each call its MaxTokens budget, or
// defaultTokensPerRequest when the request has none.
func MultiLimit(rpm, rpd, tpm int) Middleware {
	var rpmL, rpdL, tpmL *rpsLimiter
	if rpm > 0 {
		rpmL = newRPSLimiter(float64(rpm)/60.0, max1(rpm))
	}
	if rpd > 0 {
		rpdL = newRPSLimiter(float64(rpd)/86400.0, max1(rpd))
	}
	if tpm > 0 {
		tpmL = newRPSLimiter(float64(tpm)/60.0, max1(tpm))
	}
	return func(next llmclient.ChatClient) llmclient.ChatClient {
		return &multiLimited{passthrough: passthrough{next}, rpm: rpmL, rpd: rpdL, tpm: tpmL, tpmCap: tpm}
	}
}

// MultiLimitFromEnv reads _RPM, _RPD, _TPM (ints) using prefixes priority.
func MultiLimitFromEnv(prefixes ...string) Middleware {
	rpm, _ := strconv.Atoi(envByPrefix("_RPM", prefixes))
	rpd, _ := strconv.Atoi(envByPrefix("_RPD", prefixes))
	tpm, _ := strconv.Atoi(envByPrefix("_TPM", prefixes))
	return MultiLimit(rpm, rpd, tpm)
}

const defaultTokensPerRequest = 1000

type multiLimited struct {
	passthrough
	rpm    *rpsLimiter
	rpd    *rpsLimiter
	tpm    *rpsLimiter
	tpmCap int
}

func (m *multiLimited) Close() error {
	m.rpm.Stop()
	m.rpd.Stop()
	m.tpm.Stop()
	return m.next.Close()
}

func (m *multiLimited) acquire(ctx context.Context, req llmclient.ChatRequest) error {
	if err := m.rpm.Acquire(ctx); err != nil {
		return err
	}
	if err := m.rpd.Acquire(ctx); err != nil {
		return err
	}
	if m.tpm == nil {
		return nil
	}
	est := req.MaxTokens
	if est < 1 {
		est = defaultTokensPerRequest
	}
	// A single call can never need more than the whole bucket.
	if est > m.tpmCap {
		est = m.tpmCap
	}
	return m.tpm.AcquireN(ctx, est)
}

func (m *multiLimited) Complete(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
	if err := m.acquire(ctx, req); err != nil {
		return nil, err
	}
	return m.next.Complete(ctx, req)
}

func (m *multiLimited) Stream(ctx context.Context, req llmclient.ChatRequest, onDelta func(string)) (*llmclient.ChatResponse, error) {
	if err := m.acquire(ctx, req); err != nil {
		return nil, err
	}
	return m.next.Stream(ctx, req, onDelta)
}

func envByPrefix(suffix string, prefixes []string) string {
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if v := os.Getenv(p + suffix); v != "" {
			return v
		}
	}
	return ""
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
