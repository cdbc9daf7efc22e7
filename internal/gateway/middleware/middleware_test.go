package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

func TestCORS(t *testing.T) {
	h := CORS(ok)

	req := httptest.NewRequest(http.MethodOptions, "/api/generate-itinerary", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestClientLimiter_Disabled(t *testing.T) {
	c, err := NewClientLimiter(0, 1, 10, nil)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.True(t, c.Allow("anyone"))

	rec := httptest.NewRecorder()
	c.Throttle(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientLimiter_PerClientBuckets(t *testing.T) {
	c, err := NewClientLimiter(0.01, 2, 10, nil)
	require.NoError(t, err)
	h := c.Throttle(ok)

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/generate-itinerary", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.1").Code)
	limited := call("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "rate_limited", limited.Header().Get("X-Error-Kind"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(limited.Body.Bytes(), &body))
	assert.Equal(t, "rate_limited", body["kind"])
	assert.Equal(t, false, body["success"])

	assert.Equal(t, http.StatusOK, call("10.0.0.2").Code, "other clients keep their own bucket")
	assert.Equal(t, 2, c.Len())
}

func TestClientLimiter_EvictsOldest(t *testing.T) {
	c, err := NewClientLimiter(0.01, 1, 2, nil)
	require.NoError(t, err)

	assert.True(t, c.Allow("a"))
	assert.False(t, c.Allow("a"))
	assert.True(t, c.Allow("b"))
	assert.True(t, c.Allow("c"))
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Allow("a"), "evicted client starts with a fresh bucket")
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:41000"
	assert.Equal(t, "192.0.2.7", ClientKey(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientKey(req))
}
