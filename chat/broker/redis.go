package broker

import (
	"context"
	"encoding/json"
	"sync"

	"flight-tracker-chat/backend/chat/models"
	"flight-tracker-chat/backend/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "chat:"

// RedisBroker routes messages through Redis pub/sub, one channel per chat.
// It lets several server instances share one topic space; within a single
// process it behaves like MemoryBroker except that removal is best-effort
// rather than linearizable, since a frame already in flight from Redis may
// still be delivered while Close runs.
type RedisBroker struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewRedisBroker(rdb *redis.Client, log *logger.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, log: log}
}

func (b *RedisBroker) Publish(ctx context.Context, chatID string, message *models.Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channelPrefix+chatID, payload).Err()
}

func (b *RedisBroker) Subscribe(chatID string, listener Listener) (Subscription, error) {
	pubsub := b.rdb.Subscribe(context.Background(), channelPrefix+chatID)

	// Force the subscription to be established before returning, so a
	// publish issued after Subscribe returns is never missed.
	if _, err := pubsub.Receive(context.Background()); err != nil {
		pubsub.Close()
		return nil, err
	}

	go func() {
		for raw := range pubsub.Channel() {
			var message models.Message
			if err := json.Unmarshal([]byte(raw.Payload), &message); err != nil {
				b.log.LogError(err, "dropping undecodable broker payload", "chat_id", chatID)
				continue
			}
			listener(&message)
		}
	}()

	return &redisSubscription{pubsub: pubsub}, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	once   sync.Once
}

func (s *redisSubscription) Close() {
	s.once.Do(func() {
		_ = s.pubsub.Close()
	})
}
