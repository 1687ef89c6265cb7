package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"nostrss/internal/domain"
	"nostrss/internal/nostrevent"
	"nostrss/internal/nostrkey"
	"nostrss/pkg/logger"
)

// Sender delivers a single serialized nostr protocol message to one relay
// target. It is extracted as an interface so tests can substitute a fake
// without opening real sockets; WebSocketSender is the production default.
type Sender interface {
	Send(ctx context.Context, target string, message []byte) error
}

// WebSocketSender dials a relay over WebSocket and sends one `["EVENT", ...]`
// message per call. A fresh connection per publish keeps the publisher
// stateless and avoids holding many idle sockets open across ticks; relay
// connection pooling is a possible future optimization, not required here.
type WebSocketSender struct {
	DialTimeout time.Duration
}

// Send implements Sender.
func (w *WebSocketSender) Send(ctx context.Context, target string, message []byte) error {
	dialer := websocket.Dialer{HandshakeTimeout: w.dialTimeout()}

	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dialing relay %s: %w", target, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return fmt.Errorf("writing to relay %s: %w", target, err)
	}

	return nil
}

func (w *WebSocketSender) dialTimeout() time.Duration {
	if w.DialTimeout > 0 {
		return w.DialTimeout
	}
	return 10 * time.Second
}

// WebSocketPublisher is the default Publisher: it signs (optionally mining
// PoW) and broadcasts a text note to every active relay target.
type WebSocketPublisher struct {
	Sender Sender
	Clock  func() time.Time
}

// NewWebSocketPublisher builds a publisher using WebSocketSender.
func NewWebSocketPublisher() *WebSocketPublisher {
	return &WebSocketPublisher{Sender: &WebSocketSender{}}
}

func (p *WebSocketPublisher) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}

// Publish signs content+tags with the profile's key (mining PoW at
// profile.PoWLevel, or the feed-level override the caller already resolved
// into this value) and broadcasts to every active relay. It returns an
// error if the private key does not parse, if building or encoding the
// event fails, if no relay is active, or if every active relay rejected
// the broadcast; per-relay failures among a partial success are logged,
// not propagated, matching the spec's per-profile-recoverable policy.
func (p *WebSocketPublisher) Publish(ctx context.Context, profile domain.Profile, relays []domain.Relay, content string, tags [][]string) (*nostrevent.Event, error) {
	priv, err := nostrkey.ParsePrivateKey(profile.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parsing private key for profile %s: %w", profile.ID, err)
	}

	ev, err := nostrevent.Build(priv, content, tags, profile.PoWLevel, p.now())
	if err != nil {
		return nil, fmt.Errorf("building event for profile %s: %w", profile.ID, err)
	}

	payload, err := json.Marshal([]any{"EVENT", ev})
	if err != nil {
		return nil, fmt.Errorf("encoding relay message: %w", err)
	}

	active := activeRelays(relays)
	if len(active) == 0 {
		return ev, fmt.Errorf("profile %s has no active relays to publish to", profile.ID)
	}

	var delivered int
	for _, r := range active {
		if err := p.Sender.Send(ctx, r.Target, payload); err != nil {
			logger.Log.Warn("relay publish failed",
				"profile_id", profile.ID,
				"relay", r.Target,
				"error", err,
			)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return ev, fmt.Errorf("event %s rejected by all %d active relays", ev.ID, len(active))
	}

	return ev, nil
}

func activeRelays(relays []domain.Relay) []domain.Relay {
	out := make([]domain.Relay, 0, len(relays))
	for _, r := range relays {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}
