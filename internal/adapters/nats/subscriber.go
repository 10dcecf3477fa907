package natsadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/terramind/internal/core/domain"
)

// Subscriber delivers the run events of one session.
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber wraps an existing connection.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

// SubscribeSession calls handler for every run event of sessionID until the
// returned function is called. Malformed messages are logged and dropped.
func (s *Subscriber) SubscribeSession(sessionID string, handler func(ev *domain.RunEvent)) (func(), error) {
	sub, err := s.conn.Subscribe(RunSubject(sessionID), func(msg *nats.Msg) {
		var ev domain.RunEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("dropping malformed run event", "subject", msg.Subject, "error", err)
			return
		}
		handler(&ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", sessionID, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Connected reports whether the connection is up.
func (s *Subscriber) Connected() bool {
	return s.conn != nil && s.conn.IsConnected()
}
