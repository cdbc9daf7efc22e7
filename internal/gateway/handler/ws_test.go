package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelhub/internal/generation"
	llmclient "travelhub/internal/llmClient"
)

func dialItineraryWS(t *testing.T, svc *Service) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(svc.HandleItineraryWS))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/itinerary", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readUntilFinal(t *testing.T, conn *websocket.Conn) []itineraryWSOutbound {
	t.Helper()
	var out []itineraryWSOutbound
	for {
		var msg itineraryWSOutbound
		require.NoError(t, conn.ReadJSON(&msg))
		out = append(out, msg)
		if msg.Type == EventFinal {
			return out
		}
	}
}

func TestItineraryWS_PingPong(t *testing.T) {
	conn := dialItineraryWS(t, newTestService(llmclient.NewScriptedClient(), nil))

	require.NoError(t, conn.WriteJSON(itineraryWSInbound{Type: "ping"}))
	var msg itineraryWSOutbound
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Type)
}

func TestItineraryWS_Generate(t *testing.T) {
	full := itinerary("socket")
	client := llmclient.NewScriptedClient().On(primaryModel,
		llmclient.Step{Deltas: []string{"Day 1: "}, StreamErr: errUnavailable},
		llmclient.Step{Content: full},
	)
	conn := dialItineraryWS(t, newTestService(client, nil))

	require.NoError(t, conn.WriteJSON(itineraryWSInbound{Type: "generate", Answers: validAnswers()}))
	msgs := readUntilFinal(t, conn)

	require.GreaterOrEqual(t, len(msgs), 3)
	assert.Equal(t, EventChunk, msgs[0].Type)
	assert.Equal(t, EventReset, msgs[1].Type)

	var chunks []generation.StreamChunk
	for _, m := range msgs[:len(msgs)-1] {
		chunks = append(chunks, generation.StreamChunk{Text: m.Text, Reset: m.Type == EventReset})
	}
	assert.Equal(t, full, generation.Collect(chunks))

	final := msgs[len(msgs)-1]
	require.NotNil(t, final.Result)
	assert.Equal(t, full, final.Result.Itinerary)
	assert.Equal(t, "primary", final.Result.Tier)
}

func TestItineraryWS_GenerateFailure(t *testing.T) {
	client := llmclient.NewScriptedClient().Default(llmclient.Step{Err: errRateLimited})
	conn := dialItineraryWS(t, newTestService(client, nil))

	require.NoError(t, conn.WriteJSON(itineraryWSInbound{Type: "generate", Answers: validAnswers()}))
	msgs := readUntilFinal(t, conn)

	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, string(generation.RateLimited), msgs[0].Error.Kind)
	assert.Equal(t, generation.UserMessage(generation.RateLimited), msgs[0].Error.Error)
}

func TestItineraryWS_RejectsBadMessages(t *testing.T) {
	client := llmclient.NewScriptedClient()
	conn := dialItineraryWS(t, newTestService(client, nil))

	require.NoError(t, conn.WriteJSON(itineraryWSInbound{Type: "generate", Answers: []string{"Lisbon"}}))
	var msg itineraryWSOutbound
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, KindInvalidRequest, msg.Code)

	require.NoError(t, conn.WriteJSON(itineraryWSInbound{Type: "launch"}))
	msg = itineraryWSOutbound{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Message, "launch")

	assert.Empty(t, client.Calls())
}
