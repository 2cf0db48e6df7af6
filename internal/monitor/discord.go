package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const notifierUsername = "wbor-endec Health Monitor"

// DiscordNotifier posts watchdog alerts to a Discord webhook.
type DiscordNotifier struct {
	url    string
	client *http.Client
}

func NewDiscordNotifier(url string) *DiscordNotifier {
	return &DiscordNotifier{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *DiscordNotifier) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(map[string]string{
		"content":  message,
		"username": notifierUsername,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build Discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post Discord alert: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}
