package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"travelhub/internal/generation"
	"travelhub/internal/trip"
)

// HandleGenerate serves POST /api/generate-itinerary.
func (s *Service) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in GenerateRequest
	if err := decodeBody(w, r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	answers, err := trip.ParseAnswers(in.Answers)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res, trace, err := s.orch.Generate(r.Context(), answers)
	if err != nil {
		s.writeGenerationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGenerateResponse(res, trace))
}

// HandleGenerateStream serves POST /api/generate-itinerary/stream as
// Server-Sent Events. Configuration errors are reported as a plain JSON
// error before the stream starts; everything after that arrives as events.
func (s *Service) HandleGenerateStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in GenerateRequest
	if err := decodeBody(w, r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	answers, err := trip.ParseAnswers(in.Answers)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.orch.Ready(); err != nil {
		s.writeGenerationError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(ev StreamEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		flusher.Flush()
	}

	res, trace, err := s.orch.GenerateStream(r.Context(), answers, func(c generation.StreamChunk) {
		if ev, ok := streamEvent(c); ok {
			send(ev)
		}
	}, nil)
	send(finalEvent(res, trace, err))
	if err != nil {
		s.log.WarnContext(r.Context(), "stream generation failed", "kind", generation.KindOf(err), "error", err)
	}
}

// HandleValidate serves POST /api/validate. Rejected answers may come back
// with a suggested correction; a failed correction never fails the request.
func (s *Service) HandleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in ValidateRequest
	if err := decodeBody(w, r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	idx, answer, err := prepareValidate(in)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.validateAnswer(r.Context(), idx, answer))
}

func (s *Service) validateAnswer(ctx context.Context, idx int, answer string) ValidateResponse {
	v := trip.Validate(idx, answer)
	out := ValidateResponse{Valid: v.Valid, Message: v.Message}
	if v.Valid || s.corrector == nil {
		return out
	}
	if suggestion, ok := s.corrector.Suggest(ctx, idx, answer, v.Message); ok {
		out.Suggestion = suggestion
	}
	return out
}

type questionView struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	Validated bool   `json:"validated"`
}

// HandleQuestions serves GET /api/questions.
func (s *Service) HandleQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	out := make([]questionView, 0, trip.QuestionCount)
	for i, q := range trip.Questions {
		out = append(out, questionView{Index: i, Text: q, Validated: trip.HasRule(i)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": out})
}

// HandleUsage serves GET /debug/usage.
func (s *Service) HandleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.usage == nil {
		http.Error(w, "usage tracking disabled", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.usage.Snapshot())
}

// HandleHealth serves GET /healthz. It reports configuration problems
// without calling a provider.
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Ready(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "kind": generation.ConfigurationMissing})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "tiers": s.orch.Cascade().Len()})
}
