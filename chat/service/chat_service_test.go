package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"flight-tracker-chat/backend/chat/broker"
	"flight-tracker-chat/backend/chat/models"
	"flight-tracker-chat/backend/chat/repository"
	"flight-tracker-chat/backend/pkg/errors"
	"flight-tracker-chat/backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMessageRepository keeps messages in memory with the same ordering
// and cursor semantics as the SQL store
type fakeMessageRepository struct {
	mu       sync.Mutex
	messages []models.Message
}

func (f *fakeMessageRepository) Create(_ context.Context, message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *message)
	return nil
}

func (f *fakeMessageRepository) ListByChat(_ context.Context, chatID string, cursor *uuid.UUID, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []models.Message
	for _, m := range f.messages {
		if m.ChatID == chatID {
			all = append(all, m)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	end := len(all)
	if cursor != nil {
		idx := -1
		for i, m := range all {
			if m.ID == *cursor {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, repository.ErrCursorNotFound
		}
		end = idx + 1
	}

	start := end - limit
	if start < 0 {
		start = 0
	}
	return all[start:end], nil
}

func (f *fakeMessageRepository) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type fakeSessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]models.Session
}

func newFakeSessionRepository() *fakeSessionRepository {
	return &fakeSessionRepository{sessions: make(map[uuid.UUID]models.Session)}
}

func (f *fakeSessionRepository) Create(_ context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = *session
	return nil
}

func (f *fakeSessionRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &session, nil
}

type fixture struct {
	svc      *ChatService
	messages *fakeMessageRepository
	sessions *fakeSessionRepository
	broker   *broker.MemoryBroker
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		messages: &fakeMessageRepository{},
		sessions: newFakeSessionRepository(),
		broker:   broker.NewMemoryBroker(),
	}
	log := logger.New(logger.DefaultConfig())
	f.svc = NewChatService(f.messages, f.sessions, f.broker, nil, log, opts)
	return f
}

func (f *fixture) newSession(t *testing.T, name string) string {
	t.Helper()
	session := models.Session{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	require.NoError(t, f.sessions.Create(context.Background(), &session))
	return session.ID.String()
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok, "expected *errors.AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

func TestPostMessageIsRetrievableInOrder(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	sessionID := f.newSession(t, "Swift Concorde")

	for _, content := range []string{"first", "second", "third"} {
		_, err := f.svc.PostMessage(context.Background(), sessionID, "BA123", content)
		require.NoError(t, err)
	}

	page, next, err := f.svc.GetHistory(context.Background(), sessionID, "BA123", nil, 10)
	require.NoError(t, err)
	require.Nil(t, next)
	require.Len(t, page, 3)
	assert.Equal(t, "first", page[0].Content)
	assert.Equal(t, "second", page[1].Content)
	assert.Equal(t, "third", page[2].Content)
	assert.Equal(t, "Swift Concorde", page[0].SenderName)
}

func TestPostMessageEmptyContent(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	sessionID := f.newSession(t, "Calm Boeing 747")

	var published int
	sub, err := f.broker.Subscribe("BA123", func(*models.Message) { published++ })
	require.NoError(t, err)
	defer sub.Close()

	_, err = f.svc.PostMessage(context.Background(), sessionID, "BA123", "")
	assertErrorCode(t, err, "INVALID_INPUT")

	assert.Zero(t, f.messages.count(), "validation failures must not write to the store")
	assert.Zero(t, published, "validation failures must not publish")
}

func TestPostMessageOversizedContent(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxContentBytes = 8
	f := newFixture(t, opts)
	sessionID := f.newSession(t, "Brave ATR 72")

	_, err := f.svc.PostMessage(context.Background(), sessionID, "BA123", "far too long for this limit")
	assertErrorCode(t, err, "INVALID_INPUT")
}

func TestPostMessageWithoutSession(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	_, err := f.svc.PostMessage(context.Background(), "", "BA123", "hello")
	assertErrorCode(t, err, "SESSION_REQUIRED")
	assert.Zero(t, f.messages.count())
}

func TestPostMessageUnknownSession(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	_, err := f.svc.PostMessage(context.Background(), uuid.NewString(), "BA123", "hello")
	assertErrorCode(t, err, "SESSION_REQUIRED")
}

func TestGetHistoryWithoutSession(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	_, _, err := f.svc.GetHistory(context.Background(), "", "BA123", nil, 10)
	assertErrorCode(t, err, "SESSION_REQUIRED")
}

func TestGetHistoryMalformedCursor(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	sessionID := f.newSession(t, "Eager Cessna 172")

	bad := "not-a-uuid"
	_, _, err := f.svc.GetHistory(context.Background(), sessionID, "BA123", &bad, 10)
	assertErrorCode(t, err, "INVALID_INPUT")
}

func TestGetHistoryUnknownCursorIsEndOfHistory(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	sessionID := f.newSession(t, "Quiet DC-3")

	_, err := f.svc.PostMessage(context.Background(), sessionID, "BA123", "hello")
	require.NoError(t, err)

	gone := uuid.Must(uuid.NewV7()).String()
	page, next, err := f.svc.GetHistory(context.Background(), sessionID, "BA123", &gone, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Nil(t, next)
}

func TestGetHistoryBoundaryExactPage(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	sessionID := f.newSession(t, "Steady Fokker 100")

	for _, content := range []string{"m1", "m2", "m3"} {
		_, err := f.svc.PostMessage(context.Background(), sessionID, "BA123", content)
		require.NoError(t, err)
	}

	// Exactly P messages: all returned, no cursor.
	page, next, err := f.svc.GetHistory(context.Background(), sessionID, "BA123", nil, 3)
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.Nil(t, next)
}

func TestGetHistoryBoundaryOneBeyondPage(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	sessionID := f.newSession(t, "Lucky Piper Cub")

	var posted []models.Message
	for _, content := range []string{"m1", "m2", "m3", "m4"} {
		m, err := f.svc.PostMessage(context.Background(), sessionID, "BA123", content)
		require.NoError(t, err)
		posted = append(posted, *m)
	}

	// P+1 messages: P returned, cursor names the row immediately
	// preceding the page.
	page, next, err := f.svc.GetHistory(context.Background(), sessionID, "BA123", nil, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "m2", page[0].Content)
	require.NotNil(t, next)
	assert.Equal(t, posted[0].ID.String(), *next)
}

func TestGetHistoryPagingIsLossless(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	sessionID := f.newSession(t, "Mighty Airbus A380")

	const total = 10
	const pageSize = 3
	for i := 0; i < total; i++ {
		_, err := f.svc.PostMessage(context.Background(), sessionID, "BA123", string(rune('a'+i)))
		require.NoError(t, err)
	}

	seen := make(map[uuid.UUID]struct{})
	var collected []models.Message
	var cursor *string
	pages := 0
	for {
		page, next, err := f.svc.GetHistory(context.Background(), sessionID, "BA123", cursor, pageSize)
		require.NoError(t, err)
		for _, m := range page {
			_, dup := seen[m.ID]
			require.False(t, dup, "message %s served twice", m.ID)
			seen[m.ID] = struct{}{}
		}
		collected = append(page, collected...)
		pages++
		require.Less(t, pages, 10, "paging failed to terminate")
		if next == nil {
			break
		}
		cursor = next
	}

	require.Len(t, collected, total, "paging dropped messages")
	for i := 1; i < len(collected); i++ {
		prev, curr := collected[i-1], collected[i]
		less := prev.CreatedAt.Before(curr.CreatedAt) ||
			(prev.CreatedAt.Equal(curr.CreatedAt) && prev.ID.String() < curr.ID.String())
		assert.True(t, less, "pages must stitch into ascending order")
	}
}

func TestSubscribeLiveReceivesSubsequentPosts(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	alice := f.newSession(t, "Daring Concorde")
	bob := f.newSession(t, "Gentle Boeing 737")

	// Bob subscribes before Alice posts.
	events, cancel, err := f.svc.SubscribeLive(context.Background(), bob, "X")
	require.NoError(t, err)
	defer cancel()

	_, err = f.svc.PostMessage(context.Background(), alice, "X", "hello")
	require.NoError(t, err)
	_, err = f.svc.PostMessage(context.Background(), alice, "X", "world")
	require.NoError(t, err)

	first := <-events
	second := <-events
	assert.Equal(t, "hello", first.Content)
	assert.Equal(t, "world", second.Content)

	// History agrees with the live feed.
	page, next, err := f.svc.GetHistory(context.Background(), alice, "X", nil, 10)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, page, 2)
	assert.Equal(t, "hello", page[0].Content)
	assert.Equal(t, "world", page[1].Content)
}

func TestSubscribeLiveCancelStopsDelivery(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	alice := f.newSession(t, "Keen Embraer E190")

	events, cancel, err := f.svc.SubscribeLive(context.Background(), "", "X")
	require.NoError(t, err)

	cancel()
	cancel() // idempotent

	_, err = f.svc.PostMessage(context.Background(), alice, "X", "after cancel")
	require.NoError(t, err)

	select {
	case m := <-events:
		t.Fatalf("received %q after cancel", m.Content)
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, 0, f.broker.SubscriberCount("X"))
}

func TestSubscribeLiveDefaultPolicyIsPublic(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	_, cancel, err := f.svc.SubscribeLive(context.Background(), "", "X")
	require.NoError(t, err)
	cancel()
}

func TestSubscribeLiveTightenedPolicy(t *testing.T) {
	opts := DefaultOptions()
	opts.LiveFeedRequiresSession = true
	f := newFixture(t, opts)

	_, _, err := f.svc.SubscribeLive(context.Background(), "", "X")
	assertErrorCode(t, err, "SESSION_REQUIRED")

	sessionID := f.newSession(t, "Patient Gulfstream G650")
	_, cancel, err := f.svc.SubscribeLive(context.Background(), sessionID, "X")
	require.NoError(t, err)
	cancel()
}
