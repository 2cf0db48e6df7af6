package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/WBOR-91-1-FM/wbor-endec/internal/eas"
)

// WebhookSink POSTs each alert as JSON to one receiver URL. With a shared
// secret configured, every request carries an HMAC-SHA256 signature header
// so the receiver can authenticate the payload.
type WebhookSink struct {
	name   string
	url    string
	source string
	secret string
	client *http.Client
}

// NewWebhookSink builds a sink for one receiver. The sink name includes the
// receiver host so log lines from different webhooks stay distinguishable.
func NewWebhookSink(rawURL, source, secret string, timeout time.Duration) *WebhookSink {
	name := "webhook"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		name = fmt.Sprintf("webhook(%s)", u.Host)
	}
	return &WebhookSink{
		name:   name,
		url:    rawURL,
		source: source,
		secret: secret,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *WebhookSink) Name() string {
	return s.name
}

func (s *WebhookSink) Send(ctx context.Context, alert *eas.Alert) error {
	body, err := json.Marshal(WebhookPayload{
		Source:  s.source,
		Message: alert.Text,
		EASData: easData(alert),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	header := http.Header{}
	if s.secret != "" {
		header.Set(SignatureHeader, signPayload(body, s.secret))
	}
	return postJSON(ctx, s.client, s.url, body, header)
}
