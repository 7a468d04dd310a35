package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// CommandHandler resolves one bot command ("/top", "/dp", "/cap AAPL", ...)
// to a reply. An empty reply means nothing is sent back.
type CommandHandler func(command string) string

type incomingMessage struct {
	Text string `json:"text"`
}

type telegramUpdate struct {
	UpdateID int              `json:"update_id"`
	Message  *incomingMessage `json:"message"`
}

// StartPolling long-polls getUpdates and dispatches slash commands to
// handler. Plain chatter is dropped before it reaches the handler, and an
// @botname suffix is stripped so "/top@SomeBot" works from group chats.
// Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	// Separate client: the long poll holds the connection open for up to 30s.
	client := &http.Client{Timeout: 35 * time.Second}

	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] Telegram polling stopped")
			return
		default:
		}

		apiURL := fmt.Sprintf("%s?offset=%d&timeout=30", t.methodURL("getUpdates"), offset)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			log.Printf("[ERROR] create polling request: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[WARN] polling request failed: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Printf("[WARN] read polling response: %v", err)
			continue
		}

		var result struct {
			OK     bool             `json:"ok"`
			Result []telegramUpdate `json:"result"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			log.Printf("[WARN] decode polling response: %v", err)
			continue
		}

		for _, update := range result.Result {
			offset = update.UpdateID + 1
			cmd, ok := parseCommand(update.Message)
			if !ok {
				continue
			}
			log.Printf("[INFO] received command: %s", cmd)
			if reply := handler(cmd); reply != "" {
				if err := t.Send(reply); err != nil {
					log.Printf("[ERROR] send reply: %v", err)
				}
			}
		}
	}
}

// parseCommand extracts a slash command from a message, preserving arguments
// ("/cap AAPL,MSFT") and dropping the @botname mention Telegram appends in
// group chats. Anything that is not a command is reported as no command.
func parseCommand(msg *incomingMessage) (string, bool) {
	if msg == nil {
		return "", false
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	fields := strings.Fields(text)
	if name, _, found := strings.Cut(fields[0], "@"); found {
		fields[0] = name
	}
	return strings.Join(fields, " "), true
}
