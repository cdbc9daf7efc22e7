package generation

import (
	"context"

	llmclient "travelhub/internal/llmClient"
	"travelhub/internal/trip"
)

// StreamChunk is one unit delivered to a stream sink.
//
// A chunk with Reset set tells the sink to discard every chunk received
// since the previous reset: the attempt that produced them failed and the
// next attempt starts over. The final chunk has IsFinal set; on failure it
// carries the user-facing error message in Text and the kind in Kind.
type StreamChunk struct {
	Text    string    `json:"text"`
	IsFinal bool      `json:"isFinal"`
	Reset   bool      `json:"reset,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
}

// GenerateStream is the streaming counterpart of Generate.
func (o *Orchestrator) GenerateStream(ctx context.Context, answers trip.AnswerSet, onChunk func(StreamChunk), onComplete func(*GenerationResult, error)) (*GenerationResult, Trace, error) {
	prompt, params := trip.BuildPrompt(answers)
	done := onComplete
	onComplete = func(res *GenerationResult, err error) {
		if res != nil {
			res.Params = params
		}
		if done != nil {
			done(res, err)
		}
	}
	return o.RunStream(ctx, prompt, onChunk, onComplete)
}

// RunStream runs the same cascade as Run but forwards text deltas to onChunk
// as they arrive. A failed attempt is never resumed: if it delivered any
// text, a reset chunk follows and the next attempt streams from the start.
// After the last chunk, which always has IsFinal set, onComplete is called
// exactly once.
func (o *Orchestrator) RunStream(ctx context.Context, prompt trip.Prompt, onChunk func(StreamChunk), onComplete func(*GenerationResult, error)) (*GenerationResult, Trace, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	emit := func(c StreamChunk) {
		if onChunk != nil {
			onChunk(c)
		}
	}
	dirty := false
	call := func(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
		return o.client.Stream(ctx, req, func(delta string) {
			if delta == "" {
				return
			}
			dirty = true
			emit(StreamChunk{Text: delta})
		})
	}
	onFailure := func() {
		if dirty {
			dirty = false
			emit(StreamChunk{Reset: true})
		}
	}

	res, trace, err := o.run(ctx, prompt, call, onFailure)
	if err != nil {
		kind := KindOf(err)
		emit(StreamChunk{Text: UserMessage(kind), IsFinal: true, Kind: kind})
	} else {
		emit(StreamChunk{IsFinal: true})
	}
	if onComplete != nil {
		onComplete(res, err)
	}
	return res, trace, err
}

// Collect folds chunks the way a clear-and-replace sink does and returns
// the visible text.
func Collect(chunks []StreamChunk) string {
	var visible []byte
	for _, c := range chunks {
		switch {
		case c.Reset:
			visible = visible[:0]
		case c.IsFinal:
		default:
			visible = append(visible, c.Text...)
		}
	}
	return string(visible)
}
