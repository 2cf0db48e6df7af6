package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WBOR-91-1-FM/wbor-endec/internal/eas"
)

// groupmeCapture collects every bot post in arrival order.
func groupmeCapture(t *testing.T) (*httptest.Server, *[]groupmePost) {
	t.Helper()
	var posts []groupmePost
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var post groupmePost
		require.NoError(t, json.Unmarshal(body, &post))
		posts = append(posts, post)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)
	return srv, &posts
}

func TestGroupMeSinkShortMessage(t *testing.T) {
	srv, posts := groupmeCapture(t)

	s := NewGroupMeSink([]string{"bot-1"}, time.Second)
	s.apiURL = srv.URL
	require.NoError(t, s.Send(context.Background(), headerAlert()))

	require.Len(t, *posts, 1)
	post := (*posts)[0]
	assert.Equal(t, "bot-1", post.BotID)
	assert.True(t, strings.HasPrefix(post.Text, "Tornado Warning for Dallas, TX. TAKE SHELTER NOW"))
	assert.True(t, strings.HasSuffix(post.Text, "----------"))
}

func TestGroupMeSinkSegmentsLongMessages(t *testing.T) {
	srv, posts := groupmeCapture(t)

	alert := &eas.Alert{ID: "x", Text: strings.Repeat("A", 600)}
	s := NewGroupMeSink([]string{"bot-1", "bot-2"}, time.Second)
	s.apiURL = srv.URL
	require.NoError(t, s.Send(context.Background(), alert))

	// Two segments, each copied to both bots, segment order preserved.
	require.Len(t, *posts, 4)
	assert.Equal(t, "bot-1", (*posts)[0].BotID)
	assert.Equal(t, "bot-2", (*posts)[1].BotID)
	assert.Equal(t, "bot-1", (*posts)[2].BotID)
	assert.Equal(t, "bot-2", (*posts)[3].BotID)

	for _, post := range *posts {
		assert.LessOrEqual(t, len(post.Text), groupmeSegmentMax)
	}

	// A bot's segments reassemble into the full message.
	full := (*posts)[0].Text + (*posts)[2].Text
	assert.True(t, strings.HasPrefix(full, PlainTextEventName+": "+strings.Repeat("A", 600)))
	assert.True(t, strings.HasSuffix(full, groupmeFooter))
}

func TestGroupMeSinkErrorStopsDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad bot", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	s := NewGroupMeSink([]string{"bot-1"}, time.Second)
	s.apiURL = srv.URL

	err := s.Send(context.Background(), plainAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestSegment(t *testing.T) {
	assert.Equal(t, []string{"abc"}, segment("abc", 5))
	assert.Equal(t, []string{"abcde", "fg"}, segment("abcdefg", 5))
	assert.Nil(t, segment("", 5))

	// Multibyte runes never split down the middle.
	parts := segment(strings.Repeat("é", 7), 3)
	require.Len(t, parts, 3)
	assert.Equal(t, "ééé", parts[0])
	assert.Equal(t, "é", parts[2])
}
