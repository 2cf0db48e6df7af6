package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WBOR-91-1-FM/wbor-endec/internal/health"
)

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeNotifier) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func beatBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(health.Heartbeat{
		SourceApplication: "wbor-endec",
		EventType:         "health_check",
		TimestampUTC:      time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC),
		Status:            "alive",
		SerialPort:        "/dev/ttyUSB0",
	})
	require.NoError(t, err)
	return body
}

func newTestWatchdog(notifier Notifier) (*Watchdog, *time.Time) {
	w := NewWatchdog(Config{
		RoutingKey:    "health.wbor-endec",
		CheckInterval: 5 * time.Minute,
		Timeout:       10 * time.Minute,
		Location:      time.FixedZone("EDT", -4*3600),
	}, notifier, zap.NewNop())

	clock := time.Date(2025, 7, 4, 16, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }
	return w, &clock
}

func TestHandleDeliveryRecordsBeat(t *testing.T) {
	w, clock := newTestWatchdog(&fakeNotifier{})

	err := w.HandleDelivery(amqp.Delivery{
		RoutingKey: "health.wbor-endec",
		Body:       beatBody(t),
	})
	require.NoError(t, err)
	assert.Equal(t, *clock, w.LastHeartbeat())
}

func TestHandleDeliveryIgnoresForeignRoutingKey(t *testing.T) {
	w, _ := newTestWatchdog(&fakeNotifier{})

	err := w.HandleDelivery(amqp.Delivery{
		RoutingKey: "health.some-other-app",
		Body:       beatBody(t),
	})
	require.NoError(t, err)
	assert.True(t, w.LastHeartbeat().IsZero())
}

func TestHandleDeliveryRejectsBadJSON(t *testing.T) {
	w, _ := newTestWatchdog(&fakeNotifier{})

	err := w.HandleDelivery(amqp.Delivery{
		RoutingKey: "health.wbor-endec",
		Body:       []byte("not json"),
	})
	require.Error(t, err)
	assert.True(t, w.LastHeartbeat().IsZero())
}

func TestCheckBeforeFirstBeat(t *testing.T) {
	notifier := &fakeNotifier{}
	w, _ := newTestWatchdog(notifier)

	w.check(context.Background())
	assert.Empty(t, notifier.sent())
}

func TestCheckQuietWithinThreshold(t *testing.T) {
	notifier := &fakeNotifier{}
	w, clock := newTestWatchdog(notifier)

	require.NoError(t, w.HandleDelivery(amqp.Delivery{
		RoutingKey: "health.wbor-endec",
		Body:       beatBody(t),
	}))
	beatAt := *clock

	*clock = clock.Add(10 * time.Minute)
	w.check(context.Background())

	assert.Empty(t, notifier.sent())
	assert.Equal(t, beatAt, w.LastHeartbeat(), "a quiet check leaves the timer alone")
}

func TestCheckAlertsOncePerSilence(t *testing.T) {
	notifier := &fakeNotifier{}
	w, clock := newTestWatchdog(notifier)

	require.NoError(t, w.HandleDelivery(amqp.Delivery{
		RoutingKey: "health.wbor-endec",
		Body:       beatBody(t),
	}))

	*clock = clock.Add(11 * time.Minute)
	w.check(context.Background())

	messages := notifier.sent()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "No health check received from `wbor-endec` for 660 seconds")
	assert.Contains(t, messages[0], "Last health check: `2025-07-04 12:00:00 EDT`")
	assert.Contains(t, messages[0], "Threshold: `600` seconds")
	assert.True(t, w.LastHeartbeat().IsZero(), "an alert clears the timer")

	// More silence produces no second page.
	*clock = clock.Add(time.Hour)
	w.check(context.Background())
	assert.Len(t, notifier.sent(), 1)

	// A fresh heartbeat re-arms the alert.
	require.NoError(t, w.HandleDelivery(amqp.Delivery{
		RoutingKey: "health.wbor-endec",
		Body:       beatBody(t),
	}))
	*clock = clock.Add(11 * time.Minute)
	w.check(context.Background())
	assert.Len(t, notifier.sent(), 2)
}

func TestRunChecksStopsOnContext(t *testing.T) {
	notifier := &fakeNotifier{}
	w := NewWatchdog(Config{CheckInterval: 5 * time.Millisecond}, notifier, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	require.NoError(t, w.RunChecks(ctx))
	assert.Empty(t, notifier.sent(), "no beats means no alerts, only waiting")
}

func TestDiscordNotifier(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(srv.URL)
	require.NoError(t, n.Notify(context.Background(), "decoder is down"))

	assert.Equal(t, "decoder is down", got["content"])
	assert.Equal(t, "wbor-endec Health Monitor", got["username"])
}

func TestDiscordNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no thanks", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(srv.URL)
	err := n.Notify(context.Background(), "decoder is down")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
