package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"travelhub/internal/generation"
	"travelhub/internal/llm"
)

// Service serves the itinerary API over plain JSON, SSE, WebSocket and
// Connect. Every transport shares the same orchestrator.
type Service struct {
	orch      *generation.Orchestrator
	corrector *generation.Corrector
	usage     *llm.UsageLedger
	log       *slog.Logger
}

// NewService wires the handlers. corrector and usage may be nil.
func NewService(orch *generation.Orchestrator, corrector *generation.Corrector, usage *llm.UsageLedger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{orch: orch, corrector: corrector, usage: usage, log: logger}
}

// StatusFor maps an error kind to the HTTP status returned to callers.
func StatusFor(kind generation.ErrorKind) int {
	switch kind {
	case generation.ConfigurationMissing, generation.ServiceUnavailable, generation.Timeout:
		return http.StatusServiceUnavailable
	case generation.RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeGenerationError writes the stable message for err; the raw cause
// only reaches the log.
func (s *Service) writeGenerationError(w http.ResponseWriter, r *http.Request, err error) {
	kind := generation.KindOf(err)
	if kind == "" {
		kind = generation.UnknownProvider
	}
	status := StatusFor(kind)
	s.log.WarnContext(r.Context(), "generation failed", "path", r.URL.Path, "kind", kind, "status", status, "error", err)
	w.Header().Set("X-Error-Kind", string(kind))
	if kind == generation.RateLimited {
		w.Header().Set("Retry-After", "60")
	}
	writeJSON(w, status, ErrorResponse{Error: generation.UserMessage(kind), Kind: string(kind)})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Kind: KindInvalidRequest})
}
