package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(baseURL string) *TelegramNotifier {
	n := NewTelegramNotifier("token", "chat-42", "")
	n.APIBase = baseURL
	n.backoff = func(int) time.Duration { return time.Millisecond }
	return n
}

func TestSendPostsHTMLMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).Send("<b>daily report</b>"))
	assert.Equal(t, "chat-42", got["chat_id"])
	assert.Equal(t, "<b>daily report</b>", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendRejectsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL).Send("hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestSendWithRetryRecoversFromTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "flood control", http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).SendWithRetry(context.Background(), "hi"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendWithRetryHonorsConfiguredBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL)
	n.Retries = 2
	err := n.SendWithRetry(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestSendWithRetryStopsOnCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL)
	n.backoff = func(int) time.Duration { return time.Minute }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.SendWithRetry(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"plain chatter", "what is the dp index", "", false},
		{"bare command", "/status", "/status", true},
		{"group mention stripped", "/dp@SomeBot", "/dp", true},
		{"arguments preserved", "/cap   AAPL,MSFT", "/cap AAPL,MSFT", true},
		{"mention with arguments", "/top@SomeBot 5", "/top 5", true},
		{"empty text", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseCommand(&incomingMessage{Text: tt.text})
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := parseCommand(nil)
	assert.False(t, ok, "update without a message carries no command")
}

func TestStartPollingDispatchesCommands(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	firstBatch := `{"ok":true,"result":[
		{"update_id":7,"message":{"text":"hello there"}},
		{"update_id":8,"message":{"text":"/top@SomeBot"}},
		{"update_id":9,"message":{"text":"/cap AAPL"}}]}`

	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken/getUpdates" {
			fmt.Fprint(w, `{"ok":true}`)
			return
		}
		switch polls.Add(1) {
		case 1:
			fmt.Fprint(w, firstBatch)
		default:
			assert.Equal(t, "10", r.URL.Query().Get("offset"), "offset advances past consumed updates")
			cancel()
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		}
	}))
	defer srv.Close()

	var mu sync.Mutex
	var got []string
	handler := func(cmd string) string {
		mu.Lock()
		got = append(got, cmd)
		mu.Unlock()
		return "ack"
	}

	done := make(chan struct{})
	go func() {
		newTestNotifier(srv.URL).StartPolling(ctx, handler)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/top", "/cap AAPL"}, got, "chatter is dropped, commands are dispatched")
}
