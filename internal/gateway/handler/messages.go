package handler

import (
	"travelhub/internal/generation"
)

// KindInvalidRequest marks request-shape errors, which never reach the
// orchestrator.
const KindInvalidRequest = "invalid_request"

type GenerateRequest struct {
	Answers []string `json:"answers"`
}

type GenerateResponse struct {
	Success      bool   `json:"success"`
	Itinerary    string `json:"itinerary"`
	Model        string `json:"model"`
	Tier         string `json:"tier"`
	ToolCalls    int    `json:"toolCalls"`
	Attempts     int    `json:"attempts"`
	DurationDays int    `json:"durationDays"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
}

type ValidateRequest struct {
	QuestionIndex *int   `json:"questionIndex"`
	Answer        string `json:"answer"`
}

type ValidateResponse struct {
	Valid      bool   `json:"valid"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// StreamEvent is one message of a streamed generation on every streaming
// transport. Type is "chunk", "reset" or "final".
type StreamEvent struct {
	Type   string            `json:"type"`
	Text   string            `json:"text,omitempty"`
	Result *GenerateResponse `json:"result,omitempty"`
	Error  *ErrorResponse    `json:"error,omitempty"`
}

const (
	EventChunk = "chunk"
	EventReset = "reset"
	EventFinal = "final"
)

func newGenerateResponse(res *generation.GenerationResult, trace generation.Trace) *GenerateResponse {
	return &GenerateResponse{
		Success:      true,
		Itinerary:    res.Content,
		Model:        res.Tier.Model,
		Tier:         res.Tier.Name,
		ToolCalls:    res.ToolCalls,
		Attempts:     len(trace),
		DurationDays: res.Params.DurationDays,
	}
}

// streamEvent converts a non-final chunk. Final chunks are replaced by
// finalEvent, which also carries the result metadata.
func streamEvent(c generation.StreamChunk) (StreamEvent, bool) {
	switch {
	case c.IsFinal:
		return StreamEvent{}, false
	case c.Reset:
		return StreamEvent{Type: EventReset}, true
	default:
		return StreamEvent{Type: EventChunk, Text: c.Text}, true
	}
}

func finalEvent(res *generation.GenerationResult, trace generation.Trace, err error) StreamEvent {
	if err != nil {
		kind := generation.KindOf(err)
		if kind == "" {
			kind = generation.UnknownProvider
		}
		return StreamEvent{Type: EventFinal, Error: &ErrorResponse{Error: generation.UserMessage(kind), Kind: string(kind)}}
	}
	return StreamEvent{Type: EventFinal, Result: newGenerateResponse(res, trace)}
}
