package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"travelhub/internal/generation"
)

type Config struct {
	Port       string
	Env        string
	Groq       GroqConfig
	Gemini     GeminiConfig
	Generation GenerationConfig
	Limits     LimitConfig
	// UsageLedgerPath persists usage counters as JSON. Empty keeps them in memory.
	UsageLedgerPath string
}

type GroqConfig struct {
	APIKey  string
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
}

type GenerationConfig struct {
	Timeout           time.Duration
	ValidationTimeout time.Duration
	RetryMax          int
	RetryBaseDelay    time.Duration
	MinContentLength  int
	CascadeFile       string
}

type LimitConfig struct {
	LLMRPS   float64
	LLMBurst int
	LLMRPM   int
	LLMRPD   int
	LLMTPM   int
	// RateLimitMaxWait caps how long a call waits on provider rate-limit headers.
	RateLimitMaxWait time.Duration

	ClientRPS       float64
	ClientBurst     int
	ClientCacheSize int
}

// Load reads .env (when present), the environment and command-line flags.
// args excludes the program name; pass os.Args[1:].
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	r := &envReader{}
	cfg := &Config{
		Port: *port,
		Env:  env,
		Groq: GroqConfig{
			APIKey:  strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
			BaseURL: strings.TrimSpace(os.Getenv("GROQ_BASE_URL")),
		},
		Gemini: GeminiConfig{
			APIKey: firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))),
		},
		Generation: GenerationConfig{
			Timeout:           r.duration("GENERATION_TIMEOUT", 90*time.Second),
			ValidationTimeout: r.duration("VALIDATION_TIMEOUT", generation.DefaultValidationTimeout),
			RetryMax:          r.int("RETRY_MAX", generation.DefaultRetryPolicy.MaxRetries),
			RetryBaseDelay:    r.duration("RETRY_BASE_DELAY", generation.DefaultRetryPolicy.BaseDelay),
			MinContentLength:  r.int("MIN_CONTENT_LENGTH", generation.DefaultMinContentLength),
			CascadeFile:       strings.TrimSpace(os.Getenv("CASCADE_FILE")),
		},
		Limits: LimitConfig{
			LLMRPS:           r.float("LLM_RPS", 0),
			LLMBurst:         r.int("LLM_BURST", 1),
			LLMRPM:           r.int("LLM_RPM", 0),
			LLMRPD:           r.int("LLM_RPD", 0),
			LLMTPM:           r.int("LLM_TPM", 0),
			RateLimitMaxWait: r.duration("LLM_RATE_LIMIT_MAX_WAIT", 5*time.Second),
			ClientRPS:        r.float("CLIENT_RPS", 0.5),
			ClientBurst:      r.int("CLIENT_BURST", 3),
			ClientCacheSize:  r.int("CLIENT_CACHE_SIZE", 4096),
		},
		UsageLedgerPath: strings.TrimSpace(os.Getenv("USAGE_LEDGER_PATH")),
	}
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Generation.Timeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT must be positive"))
	}
	if c.Generation.ValidationTimeout <= 0 {
		errs = append(errs, errors.New("VALIDATION_TIMEOUT must be positive"))
	}
	if c.Generation.ValidationTimeout > c.Generation.Timeout {
		errs = append(errs, errors.New("VALIDATION_TIMEOUT must not exceed GENERATION_TIMEOUT"))
	}
	if c.Generation.RetryMax < 0 {
		errs = append(errs, errors.New("RETRY_MAX must not be negative"))
	}
	if c.Generation.MinContentLength < 0 {
		errs = append(errs, errors.New("MIN_CONTENT_LENGTH must not be negative"))
	}
	if c.Limits.ClientCacheSize < 1 {
		errs = append(errs, errors.New("CLIENT_CACHE_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// Cascade returns the tier list from CASCADE_FILE, or the default cascade.
func (c *Config) Cascade() (generation.Cascade, error) {
	if c.Generation.CascadeFile == "" {
		return generation.DefaultCascade(), nil
	}
	return generation.LoadCascadeFile(c.Generation.CascadeFile)
}

func (c *Config) RetryPolicy() generation.RetryPolicy {
	return generation.RetryPolicy{MaxRetries: c.Generation.RetryMax, BaseDelay: c.Generation.RetryBaseDelay}
}

// envReader parses typed values and collects every malformed key so a bad
// deployment reports all problems at once.
type envReader struct {
	errs []error
}

func (r *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare numbers are seconds.
		if n, nerr := strconv.Atoi(v); nerr == nil {
			return time.Duration(n) * time.Second
		}
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *envReader) int(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
