package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/WBOR-91-1-FM/wbor-endec/internal/eas"
)

// Placeholders used when an alert carries no parsed header. Downstream
// consumers key off these exact strings.
const (
	PlainTextEventName = "Plain Text Message"
	NotFound           = "Not found"
)

// WebhookPayload is the JSON body POSTed to generic webhook receivers.
type WebhookPayload struct {
	Source  string `json:"source"`
	Message string `json:"message"`
	EASData any    `json:"eas_data"`
}

// Envelope is the JSON body published to the alert exchange.
type Envelope struct {
	Source                string    `json:"source"`
	AlertID               string    `json:"alert_id"`
	TimestampProcessedUTC time.Time `json:"timestamp_processed_utc"`
	MessageText           string    `json:"message_text"`
	EASData               any       `json:"eas_data"`
}

// easData renders the structured half of a payload: the full header when
// one was parsed, otherwise a labeled plain-text stand-in so consumers
// never have to guess at a missing key.
func easData(alert *eas.Alert) any {
	if alert.Header != nil {
		return alert.Header
	}
	return map[string]string{
		"event_name": PlainTextEventName,
		"raw_header": NotFound,
	}
}

// postJSON sends one JSON POST and fails on any non-2xx status. The first
// bytes of an error response ride along for log context.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// truncate caps s at max runes without splitting a multibyte character.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
