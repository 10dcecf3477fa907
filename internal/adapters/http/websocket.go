package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	natsadapter "github.com/samirrijal/terramind/internal/adapters/nats"
	"github.com/samirrijal/terramind/internal/core/domain"
	"github.com/samirrijal/terramind/internal/pkg/metrics"
)

// wsMessage is sent from client to follow or stop following a session.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Session string `json:"session"` // session id
}

// WebSocketHandler relays the run events of map sessions to the browser.
// Clients send {"action":"subscribe","session":"<id>"}; the session given
// in the ?session= query parameter is followed on connect.
func WebSocketHandler(events *natsadapter.Subscriber) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		subs := make(map[string]func()) // session -> unsubscribe
		subscribe := func(session string) {
			if !sessionIDPattern.MatchString(session) {
				_ = writeJSON(map[string]string{"error": "invalid session id"})
				return
			}
			if _, exists := subs[session]; exists {
				_ = writeJSON(map[string]string{"status": "already subscribed", "session": session})
				return
			}
			if events == nil {
				_ = writeJSON(map[string]string{"error": "event relay not configured"})
				return
			}
			if !events.Connected() {
				_ = writeJSON(map[string]string{"error": "event relay disconnected"})
				return
			}
			unsub, err := events.SubscribeSession(session, func(ev *domain.RunEvent) {
				_ = writeJSON(ev)
			})
			if err != nil {
				_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
				return
			}
			subs[session] = unsub
			_ = writeJSON(map[string]string{"status": "subscribed", "session": session})
		}

		if s := c.Query("session"); s != "" {
			subscribe(s)
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "subscribe":
				subscribe(m.Session)
			case "unsubscribe":
				if unsub, exists := subs[m.Session]; exists {
					unsub()
					delete(subs, m.Session)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "session": m.Session})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + m.Session})
				}
			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, unsub := range subs {
			unsub()
		}
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
