// Package broker fans newly posted messages out to the live subscribers of
// a chat. It is a live-only feed: nothing is buffered for subscribers that
// are not yet registered, and history is served by the store, not here.
package broker

import (
	"context"

	"flight-tracker-chat/backend/chat/models"
)

// Listener receives every message published to a chat while its
// subscription is open. Listeners must not block; the websocket gateway
// hands messages off to a buffered channel.
type Listener func(message *models.Message)

// Subscription is a live registration of one listener on one chat.
type Subscription interface {
	// Close removes the listener. It is idempotent, and once it returns
	// the listener will not be invoked again.
	Close()
}

// Broker routes published messages to the current subscribers of a chat.
type Broker interface {
	Publish(ctx context.Context, chatID string, message *models.Message) error
	Subscribe(chatID string, listener Listener) (Subscription, error)
}
