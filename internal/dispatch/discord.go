package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/WBOR-91-1-FM/wbor-endec/internal/eas"
)

// Discord's hard message limits.
const (
	discordContentLimit     = 2000
	discordDescriptionLimit = 4096
)

// DiscordSink delivers alerts to a Discord channel webhook. Parsed alerts
// render as an embed with the header broken out into fields; plain-text
// blocks fall back to a labeled content message.
type DiscordSink struct {
	url      string
	username string
	client   *http.Client
}

func NewDiscordSink(url, username string, timeout time.Duration) *DiscordSink {
	return &DiscordSink{
		url:      url,
		username: username,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *DiscordSink) Name() string {
	return "discord"
}

type discordMessage struct {
	Username string         `json:"username,omitempty"`
	Content  string         `json:"content,omitempty"`
	Embeds   []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

func (s *DiscordSink) Send(ctx context.Context, alert *eas.Alert) error {
	msg := discordMessage{Username: s.username}
	if alert.Header != nil {
		msg.Embeds = []discordEmbed{buildEmbed(alert)}
	} else {
		msg.Content = truncate(
			fmt.Sprintf("**%s**\n%s", PlainTextEventName, alert.Text),
			discordContentLimit,
		)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return postJSON(ctx, s.client, s.url, body, nil)
}

func buildEmbed(alert *eas.Alert) discordEmbed {
	h := alert.Header
	return discordEmbed{
		Title:       h.EventName,
		Description: truncate(alert.Text, discordDescriptionLimit),
		Color:       eventColor(h.EventName),
		Timestamp:   h.IssuedAt.Format(time.RFC3339),
		Fields: []discordField{
			{Name: "Locations", Value: strings.Join(h.LocationNames, ", ")},
			{Name: "Duration", Value: fmt.Sprintf("%d min", h.DurationMin), Inline: true},
			{Name: "Starts", Value: h.IssuedAtLocal.Format("Mon Jan 2 15:04 MST"), Inline: true},
			{Name: "Sender", Value: h.Sender, Inline: true},
			{Name: "Originator", Value: fmt.Sprintf("%s (%s)", h.OriginatorName, h.Originator)},
			{Name: "Raw Header", Value: fmt.Sprintf("`%s`", h.Raw)},
		},
	}
}

// eventColor picks the embed stripe by severity so a tornado warning does
// not look like a weekly test at a glance.
func eventColor(eventName string) int {
	switch {
	case strings.Contains(eventName, "Warning") || strings.Contains(eventName, "Emergency"):
		return 0xD32F2F // red
	case strings.Contains(eventName, "Watch"):
		return 0xF57C00 // orange
	case strings.Contains(eventName, "Test"):
		return 0x455A64 // slate
	default:
		return 0x1976D2 // blue
	}
}
