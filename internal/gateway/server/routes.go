package server

import (
	"net/http"

	"travelhub/internal/gateway/handler"
	"travelhub/internal/gateway/middleware"
)

// NewMux registers every transport of the itinerary service. Generation
// endpoints are throttled per client; limiter may be nil.
func NewMux(svc *handler.Service, limiter *middleware.ClientLimiter) http.Handler {
	mux := http.NewServeMux()

	// REST + SSE
	mux.Handle("/api/generate-itinerary", limiter.Throttle(http.HandlerFunc(svc.HandleGenerate)))
	mux.Handle("/api/generate-itinerary/stream", limiter.Throttle(http.HandlerFunc(svc.HandleGenerateStream)))
	mux.HandleFunc("/api/validate", svc.HandleValidate)
	mux.HandleFunc("/api/questions", svc.HandleQuestions)

	// WebSocket
	mux.Handle("/ws/itinerary", limiter.Throttle(http.HandlerFunc(svc.HandleItineraryWS)))

	// RPC Handlers
	for path, h := range svc.ConnectHandlers() {
		if path == handler.ValidateProcedure {
			mux.Handle(path, h)
			continue
		}
		mux.Handle(path, limiter.Throttle(h))
	}

	// Debug Handlers
	mux.HandleFunc("/debug/usage", svc.HandleUsage)
	mux.HandleFunc("/healthz", svc.HandleHealth)

	// Middleware
	return middleware.CORS(mux)
}
