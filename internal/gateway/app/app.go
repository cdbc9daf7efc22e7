package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"travelhub/internal/gateway/config"
	"travelhub/internal/gateway/handler"
	"travelhub/internal/gateway/middleware"
	"travelhub/internal/gateway/server"
	"travelhub/internal/generation"
	"travelhub/internal/llm"
	llmclient "travelhub/internal/llmClient"
)

type App struct {
	server *server.Server
	client llmclient.ChatClient
	log    *slog.Logger
}

// New loads configuration from args and the environment and wires the
// itinerary service.
func New(ctx context.Context, args []string) (*App, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := NewLogger(cfg.Env)

	// Dependencies
	ledger := llm.NewUsageLedger(cfg.UsageLedgerPath)
	client, err := NewClient(ctx, cfg, logger, ledger)
	if err != nil {
		return nil, err
	}
	orch, corrector, err := NewGeneration(cfg, client, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := orch.Ready(); err != nil {
		// Keep serving: every generation answers with the configuration message.
		logger.Error("provider credentials missing", "error", err)
	}
	limiter, err := middleware.NewClientLimiter(cfg.Limits.ClientRPS, cfg.Limits.ClientBurst, cfg.Limits.ClientCacheSize, logger)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("client limiter: %w", err)
	}

	// Routing & Server
	svc := handler.NewService(orch, corrector, ledger, logger)
	mux := server.NewMux(svc, limiter)
	srv := server.New(cfg.Port, mux, logger)

	return &App{server: srv, client: client, log: logger}, nil
}

// NewLogger returns a text logger for local runs and JSON everywhere else.
func NewLogger(env string) *slog.Logger {
	if env == "local" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}

// NewClient builds the provider dispatcher and its middleware stack. The
// outermost layer logs, the innermost records usage, so throttling waits
// show up in the logged latency.
func NewClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, ledger *llm.UsageLedger) (llmclient.ChatClient, error) {
	groq := llmclient.NewGroqClient(cfg.Groq.APIKey, llmclient.WithGroqBaseURL(cfg.Groq.BaseURL))
	gemini, err := llmclient.NewGeminiClient(ctx, cfg.Gemini.APIKey)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	dispatch := llmclient.NewDispatcher().
		Register(llmclient.ProviderGroq, groq).
		Register(llmclient.ProviderGemini, gemini)

	return llm.Wrap(dispatch,
		llm.WithLogging(logger),
		llm.WithHooks(),
		llm.RateLimit(cfg.Limits.LLMRPS, cfg.Limits.LLMBurst),
		llm.MultiLimit(cfg.Limits.LLMRPM, cfg.Limits.LLMRPD, cfg.Limits.LLMTPM),
		llm.RateLimitControl(llmclient.ProviderGroq, groq, cfg.Limits.RateLimitMaxWait),
		llm.WithUsage(ledger),
	), nil
}

// NewGeneration builds the orchestrator and the answer corrector from cfg.
func NewGeneration(cfg *config.Config, client llmclient.ChatClient, logger *slog.Logger) (*generation.Orchestrator, *generation.Corrector, error) {
	cascade, err := cfg.Cascade()
	if err != nil {
		return nil, nil, fmt.Errorf("cascade: %w", err)
	}
	orch := generation.New(client,
		generation.WithCascade(cascade),
		generation.WithRetryPolicy(cfg.RetryPolicy()),
		generation.WithTimeout(cfg.Generation.Timeout),
		generation.WithMinContentLength(cfg.Generation.MinContentLength),
		generation.WithLogger(logger),
	)
	corrector := generation.NewCorrector(client, cascade, cfg.Generation.ValidationTimeout, logger)
	return orch, corrector, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.client.Close(); cerr != nil {
		a.log.Warn("closing provider clients", "error", cerr)
	}
	return err
}
