package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeHealth(t *testing.T, resp *http.Response) HealthResponse {
	t.Helper()
	defer resp.Body.Close()
	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthAllUp(t *testing.T) {
	s := New(":0", zap.NewNop(),
		Check{Name: "serial", Probe: func() (bool, string) { return true, "" }},
		Check{Name: "rabbitmq", Probe: func() (bool, string) { return true, "" }},
	)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeHealth(t, resp)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Services["serial"])
	assert.Equal(t, "healthy", body.Services["rabbitmq"])
	assert.NotEmpty(t, body.Timestamp)
	assert.GreaterOrEqual(t, body.UptimeSeconds, int64(0))
}

func TestHealthReportsFailingCheck(t *testing.T) {
	s := New(":0", zap.NewNop(),
		Check{Name: "serial", Probe: func() (bool, string) { return false, "port closed" }},
		Check{Name: "rabbitmq", Probe: func() (bool, string) { return true, "" }},
	)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	body := decodeHealth(t, resp)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "unhealthy: port closed", body.Services["serial"])
	assert.Equal(t, "healthy", body.Services["rabbitmq"])
}

func TestHealthWithoutChecks(t *testing.T) {
	s := New(":0", zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(":0", zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
}
