package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"travelhub/internal/generation"
	"travelhub/internal/trip"
)

const (
	itineraryWSWriteWait = 10 * time.Second
	itineraryWSPongWait  = 60 * time.Second
	itineraryWSPingEvery = (itineraryWSPongWait * 9) / 10
)

var itineraryWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type itineraryWSInbound struct {
	Type    string   `json:"type"`
	Answers []string `json:"answers,omitempty"`
}

// itineraryWSOutbound is a StreamEvent plus the control messages only the
// socket needs.
type itineraryWSOutbound struct {
	StreamEvent
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// HandleItineraryWS serves GET /ws/itinerary. The client sends
// {"type":"generate","answers":[...]} and receives chunk, reset and final
// events; one generation runs at a time per connection and is canceled when
// the socket closes.
func (s *Service) HandleItineraryWS(w http.ResponseWriter, r *http.Request) {
	conn, err := itineraryWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(itineraryWSPongWait)); err != nil {
		s.log.Warn("itinerary ws set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(itineraryWSPongWait))
	})

	writeCh := make(chan itineraryWSOutbound, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(itineraryWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(itineraryWSWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					cancel()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(itineraryWSWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// Chunks must not be dropped, so pushes block until the writer takes
	// them or the connection is gone.
	push := func(out itineraryWSOutbound) {
		select {
		case writeCh <- out:
		case <-ctx.Done():
		}
	}

	var (
		mu      sync.Mutex
		running bool
		jobs    sync.WaitGroup
	)
	defer jobs.Wait()

	for {
		var in itineraryWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			push(itineraryWSOutbound{StreamEvent: StreamEvent{Type: "pong"}})
		case "generate":
			answers, err := trip.ParseAnswers(in.Answers)
			if err != nil {
				push(itineraryWSOutbound{StreamEvent: StreamEvent{Type: "error"}, Code: KindInvalidRequest, Message: err.Error()})
				continue
			}
			mu.Lock()
			busy := running
			running = true
			mu.Unlock()
			if busy {
				push(itineraryWSOutbound{StreamEvent: StreamEvent{Type: "error"}, Code: "busy", Message: "a generation is already running on this connection"})
				continue
			}
			jobs.Add(1)
			go func() {
				defer jobs.Done()
				defer func() {
					mu.Lock()
					running = false
					mu.Unlock()
				}()
				s.streamToSocket(ctx, answers, push)
			}()
		case "":
			push(itineraryWSOutbound{StreamEvent: StreamEvent{Type: "error"}, Code: KindInvalidRequest, Message: "type is required"})
		default:
			push(itineraryWSOutbound{StreamEvent: StreamEvent{Type: "error"}, Code: KindInvalidRequest, Message: "unsupported type: " + in.Type})
		}
	}
}

func (s *Service) streamToSocket(ctx context.Context, answers trip.AnswerSet, push func(itineraryWSOutbound)) {
	res, trace, err := s.orch.GenerateStream(ctx, answers, func(c generation.StreamChunk) {
		if ev, ok := streamEvent(c); ok {
			push(itineraryWSOutbound{StreamEvent: ev})
		}
	}, nil)
	push(itineraryWSOutbound{StreamEvent: finalEvent(res, trace, err)})
	if err != nil {
		s.log.WarnContext(ctx, "ws generation failed", "kind", generation.KindOf(err), "error", err)
	}
}
