package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flight-tracker-chat/backend/chat/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMessage(chatID, content string) *models.Message {
	return &models.Message{
		ID:        uuid.Must(uuid.NewV7()),
		ChatID:    chatID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func TestPublishReachesAllSubscribersOfChat(t *testing.T) {
	b := NewMemoryBroker()

	var first, second []string
	subA, err := b.Subscribe("BA123", func(m *models.Message) { first = append(first, m.Content) })
	require.NoError(t, err)
	defer subA.Close()
	subB, err := b.Subscribe("BA123", func(m *models.Message) { second = append(second, m.Content) })
	require.NoError(t, err)
	defer subB.Close()

	var other []string
	subC, err := b.Subscribe("LH456", func(m *models.Message) { other = append(other, m.Content) })
	require.NoError(t, err)
	defer subC.Close()

	require.NoError(t, b.Publish(context.Background(), "BA123", newTestMessage("BA123", "hello")))
	require.NoError(t, b.Publish(context.Background(), "BA123", newTestMessage("BA123", "world")))

	assert.Equal(t, []string{"hello", "world"}, first)
	assert.Equal(t, []string{"hello", "world"}, second)
	assert.Empty(t, other, "subscriber of a different chat must receive nothing")
}

func TestPublishToChatWithoutSubscribers(t *testing.T) {
	b := NewMemoryBroker()

	err := b.Publish(context.Background(), "BA123", newTestMessage("BA123", "into the void"))
	assert.NoError(t, err)
}

func TestSubscribeDoesNotReplay(t *testing.T) {
	b := NewMemoryBroker()

	require.NoError(t, b.Publish(context.Background(), "BA123", newTestMessage("BA123", "before")))

	var got []string
	sub, err := b.Subscribe("BA123", func(m *models.Message) { got = append(got, m.Content) })
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, b.Publish(context.Background(), "BA123", newTestMessage("BA123", "after")))
	assert.Equal(t, []string{"after"}, got)
}

func TestCloseIsIdempotent(t *testing.T) {
	b := NewMemoryBroker()

	sub, err := b.Subscribe("BA123", func(*models.Message) {})
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, b.SubscriberCount("BA123"))
}

func TestEmptyChatIsNotTracked(t *testing.T) {
	b := NewMemoryBroker()

	sub1, err := b.Subscribe("BA123", func(*models.Message) {})
	require.NoError(t, err)
	sub2, err := b.Subscribe("BA123", func(*models.Message) {})
	require.NoError(t, err)

	sub1.Close()
	assert.Len(t, b.chats, 1)

	sub2.Close()
	assert.Empty(t, b.chats, "registry must not retain chats without subscribers")
}

func TestNoDeliveryAfterCloseReturns(t *testing.T) {
	b := NewMemoryBroker()

	var closed atomic.Bool
	sub, err := b.Subscribe("BA123", func(*models.Message) {
		if closed.Load() {
			t.Error("listener invoked after Close returned")
		}
	})
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		msg := newTestMessage("BA123", "racing")
		for {
			select {
			case <-stop:
				return
			default:
				_ = b.Publish(context.Background(), "BA123", msg)
			}
		}
	}()

	time.Sleep(10 * time.Millisecond)
	sub.Close()
	closed.Store(true)

	time.Sleep(10 * time.Millisecond)
	close(stop)
	wg.Wait()
}

func TestPublishesToDifferentChatsDoNotSerialize(t *testing.T) {
	b := NewMemoryBroker()

	blocked := make(chan struct{})
	release := make(chan struct{})
	subSlow, err := b.Subscribe("SLOW", func(*models.Message) {
		close(blocked)
		<-release
	})
	require.NoError(t, err)
	defer subSlow.Close()

	var delivered atomic.Int32
	subFast, err := b.Subscribe("FAST", func(*models.Message) { delivered.Add(1) })
	require.NoError(t, err)
	defer subFast.Close()

	go b.Publish(context.Background(), "SLOW", newTestMessage("SLOW", "stuck"))
	<-blocked

	done := make(chan struct{})
	go func() {
		_ = b.Publish(context.Background(), "FAST", newTestMessage("FAST", "quick"))
		close(done)
	}()

	select {
	case <-done:
		assert.Equal(t, int32(1), delivered.Load())
	case <-time.After(time.Second):
		t.Fatal("publish to an independent chat blocked behind another chat's delivery")
	}
	close(release)
}
