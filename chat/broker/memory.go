package broker

import (
	"context"
	"sync"

	"flight-tracker-chat/backend/chat/models"
)

// MemoryBroker is the in-process Broker. The registry maps chat IDs to
// their live subscriptions; a chat with no subscribers has no entry.
//
// Publish delivers under the read lock, so publishes to different chats
// proceed in parallel while Close, which takes the write lock, cannot
// return until every in-flight delivery to its listener has finished.
type MemoryBroker struct {
	mu    sync.RWMutex
	chats map[string]map[*memorySubscription]Listener
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		chats: make(map[string]map[*memorySubscription]Listener),
	}
}

func (b *MemoryBroker) Publish(_ context.Context, chatID string, message *models.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, listener := range b.chats[chatID] {
		listener(message)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(chatID string, listener Listener) (Subscription, error) {
	sub := &memorySubscription{broker: b, chatID: chatID}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.chats[chatID]
	if !ok {
		subs = make(map[*memorySubscription]Listener)
		b.chats[chatID] = subs
	}
	subs[sub] = listener

	return sub, nil
}

// SubscriberCount reports the number of live subscriptions for a chat.
func (b *MemoryBroker) SubscriberCount(chatID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.chats[chatID])
}

type memorySubscription struct {
	broker *MemoryBroker
	chatID string
	once   sync.Once
}

func (s *memorySubscription) Close() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		defer s.broker.mu.Unlock()

		subs, ok := s.broker.chats[s.chatID]
		if !ok {
			return
		}
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.broker.chats, s.chatID)
		}
	})
}
