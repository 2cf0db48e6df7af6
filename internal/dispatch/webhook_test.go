package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureServer records the last request body and headers it received.
func captureServer(t *testing.T, status int) (*httptest.Server, *[]byte, *http.Header) {
	t.Helper()
	var body []byte
	var header http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		header = r.Header.Clone()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &body, &header
}

func TestWebhookSinkPayload(t *testing.T) {
	srv, body, header := captureServer(t, http.StatusOK)

	s := NewWebhookSink(srv.URL, "wbor-endec", "", time.Second)
	require.NoError(t, s.Send(context.Background(), headerAlert()))

	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.Empty(t, header.Get(SignatureHeader), "no secret, no signature")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(*body, &payload))
	assert.Equal(t, "wbor-endec", payload["source"])
	assert.Equal(t, "TAKE SHELTER NOW", payload["message"])

	data, ok := payload["eas_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "TOR", data["event_code"])
	assert.Equal(t, "Tornado Warning", data["event_name"])
	assert.Equal(t, float64(30), data["duration_minutes"])
	assert.Equal(t, "ZCZC-WXR-TOR-048113+0030-1721800-KXYZ/FM -", data["raw_header"])
	assert.Equal(t, []any{"Dallas, TX"}, data["location_names"])
}

func TestWebhookSinkPlainTextFallback(t *testing.T) {
	srv, body, _ := captureServer(t, http.StatusOK)

	s := NewWebhookSink(srv.URL, "wbor-endec", "", time.Second)
	require.NoError(t, s.Send(context.Background(), plainAlert()))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(*body, &payload))
	assert.Equal(t, "Station identification test.", payload["message"])

	data, ok := payload["eas_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, PlainTextEventName, data["event_name"])
	assert.Equal(t, NotFound, data["raw_header"])
}

func TestWebhookSinkSignsWhenSecretConfigured(t *testing.T) {
	srv, body, header := captureServer(t, http.StatusOK)

	s := NewWebhookSink(srv.URL, "wbor-endec", "s3cret", time.Second)
	require.NoError(t, s.Send(context.Background(), headerAlert()))

	got := header.Get(SignatureHeader)
	require.NotEmpty(t, got)
	assert.Equal(t, signPayload(*body, "s3cret"), got,
		"signature verifies against the delivered body")
}

func TestWebhookSinkRejectsErrorStatus(t *testing.T) {
	srv, _, _ := captureServer(t, http.StatusInternalServerError)

	s := NewWebhookSink(srv.URL, "wbor-endec", "", time.Second)
	err := s.Send(context.Background(), headerAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestWebhookSinkNameIncludesHost(t *testing.T) {
	s := NewWebhookSink("https://hooks.example.com/endec", "wbor-endec", "", time.Second)
	assert.Equal(t, "webhook(hooks.example.com)", s.Name())
}
