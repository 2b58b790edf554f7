package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastHookFiltersByViewer(t *testing.T) {
	hook := NewBroadcastHook()
	mine, cancelMine := hook.SubscribeViewer("session:a")
	defer cancelMine()
	all, cancelAll := hook.Subscribe()
	defer cancelAll()

	require.NoError(t, hook.WidgetUpdated(context.Background(), WidgetEvent{Viewer: "session:b", SKU: "9", Status: StatusReady}))
	require.NoError(t, hook.WidgetUpdated(context.Background(), WidgetEvent{Viewer: "session:a", SKU: "7", Status: StatusLoading}))

	select {
	case e := <-mine:
		assert.Equal(t, "7", e.SKU)
	default:
		t.Fatal("expected event for session:a")
	}
	select {
	case e := <-mine:
		t.Fatalf("unexpected extra event %+v", e)
	default:
	}
	assert.Len(t, all, 2)
}

func TestBroadcastHookCancelIsIdempotent(t *testing.T) {
	hook := NewBroadcastHook()
	_, cancel := hook.Subscribe()
	assert.Equal(t, 1, hook.Subscribers())
	cancel()
	cancel()
	assert.Equal(t, 0, hook.Subscribers())
}

func TestBroadcastHookKeepsNewestForSlowSubscriber(t *testing.T) {
	hook := NewBroadcastHook()
	events, cancel := hook.SubscribeViewer("session:a")
	defer cancel()

	for i := 0; i < subscriberBuffer+3; i++ {
		require.NoError(t, hook.WidgetUpdated(context.Background(), WidgetEvent{
			Viewer: "session:a",
			SKU:    strconv.Itoa(i),
			Status: StatusLoading,
		}))
	}

	var last WidgetEvent
	for len(events) > 0 {
		last = <-events
	}
	assert.Equal(t, strconv.Itoa(subscriberBuffer+2), last.SKU)
}

func TestBroadcastHookServeSSE(t *testing.T) {
	hook := NewBroadcastHook()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hook.ServeSSE(w, r, "session:a")
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return hook.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hook.WidgetUpdated(ctx, WidgetEvent{Viewer: "session:a", SKU: "7", Status: StatusReady}))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ready\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	var event WidgetEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &event))
	assert.Equal(t, "7", event.SKU)
}
