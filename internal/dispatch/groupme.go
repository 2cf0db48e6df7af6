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

const (
	groupmeAPIURL = "https://api.groupme.com/v3/bots/post"

	// GroupMe rejects bot posts longer than 500 characters.
	groupmeSegmentMax = 500
)

// groupmeFooter trails every alert so group members can tell where the
// message came from.
const groupmeFooter = "\n\nThis message was sent using wbor-endec [github.com/WBOR-91-1-FM/wbor-endec]\n----------"

// GroupMeSink relays alerts to GroupMe groups through bot posts. Long
// alerts go out as ordered segments, and every segment is copied to each
// configured bot.
type GroupMeSink struct {
	apiURL string
	bots   []string
	client *http.Client
}

func NewGroupMeSink(botIDs []string, timeout time.Duration) *GroupMeSink {
	return &GroupMeSink{
		apiURL: groupmeAPIURL,
		bots:   botIDs,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *GroupMeSink) Name() string {
	return "groupme"
}

type groupmePost struct {
	BotID string `json:"bot_id"`
	Text  string `json:"text"`
}

func (s *GroupMeSink) Send(ctx context.Context, alert *eas.Alert) error {
	segments := segment(groupmeText(alert)+groupmeFooter, groupmeSegmentMax)
	for i, seg := range segments {
		for _, bot := range s.bots {
			body, err := json.Marshal(groupmePost{BotID: bot, Text: seg})
			if err != nil {
				return fmt.Errorf("marshal payload: %w", err)
			}
			if err := postJSON(ctx, s.client, s.apiURL, body, nil); err != nil {
				return fmt.Errorf("segment %d/%d: %w", i+1, len(segments), err)
			}
		}
	}
	return nil
}

// groupmeText flattens the alert for a plain-text chat. GroupMe has no
// structured payload to carry the header, so its headline rides in front of
// the body.
func groupmeText(alert *eas.Alert) string {
	if alert.Header == nil {
		return fmt.Sprintf("%s: %s", PlainTextEventName, alert.Text)
	}
	h := alert.Header
	return fmt.Sprintf("%s for %s. %s", h.EventName, strings.Join(h.LocationNames, "; "), alert.Text)
}

// segment splits s into max-rune chunks without breaking a multibyte
// character.
func segment(s string, max int) []string {
	runes := []rune(s)
	var parts []string
	for start := 0; start < len(runes); start += max {
		end := start + max
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
