// Package relay provides the RelayPublisher collaborator interface and its
// default WebSocket-based implementation, grounded on
// github.com/gorilla/websocket (the idiomatic transport for a nostr
// relay's protocol, named per the out-of-pack-dependency rule since no
// relay client appears in the retrieval pack).
package relay

import (
	"context"

	"nostrss/internal/domain"
	"nostrss/internal/nostrevent"
)

// Publisher signs an event with a profile key, optionally mining
// proof-of-work, and broadcasts it to the given relays.
type Publisher interface {
	Publish(ctx context.Context, profile domain.Profile, relays []domain.Relay, content string, tags [][]string) (*nostrevent.Event, error)
}
