package service

import (
	"context"
	"sync"
	"time"

	"flight-tracker-chat/backend/chat/broker"
	"flight-tracker-chat/backend/chat/metrics"
	"flight-tracker-chat/backend/chat/models"
	"flight-tracker-chat/backend/chat/repository"
	"flight-tracker-chat/backend/pkg/cache"
	"flight-tracker-chat/backend/pkg/errors"
	"flight-tracker-chat/backend/pkg/logger"

	"github.com/google/uuid"
)

// Options tune the chat service
type Options struct {
	// MaxContentBytes rejects oversized messages; zero disables the check
	MaxContentBytes int
	// LiveFeedRequiresSession tightens SubscribeLive to authenticated
	// callers. Off by default: watching a chat is a public read, posting
	// to it is not.
	LiveFeedRequiresSession bool
	// SubscriberBuffer is the per-subscription event buffer
	SubscriberBuffer int
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		MaxContentBytes:  4096,
		SubscriberBuffer: 64,
	}
}

// ChatService orchestrates posting, history reads and live subscriptions.
// Posting appends to the store first and publishes second; the store is
// the source of truth and live delivery is best-effort.
type ChatService struct {
	messages repository.MessageRepository
	sessions repository.SessionRepository
	broker   broker.Broker
	cache    *cache.Cache // optional sender lookup cache
	log      *logger.Logger
	opts     Options
}

func NewChatService(
	messages repository.MessageRepository,
	sessions repository.SessionRepository,
	b broker.Broker,
	sessionCache *cache.Cache,
	log *logger.Logger,
	opts Options,
) *ChatService {
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = DefaultOptions().SubscriberBuffer
	}
	return &ChatService{
		messages: messages,
		sessions: sessions,
		broker:   b,
		cache:    sessionCache,
		log:      log,
		opts:     opts,
	}
}

// PostMessage validates, persists and then publishes a message. A publish
// failure after a successful append is logged and counted but not rolled
// back; the caller still gets the stored message.
func (s *ChatService) PostMessage(ctx context.Context, sessionID, chatID, content string) (*models.Message, error) {
	if sessionID == "" {
		return nil, errors.NewUnauthorizedError("SESSION_REQUIRED", "A session is required to post messages")
	}
	if chatID == "" {
		return nil, errors.NewBadRequestError("INVALID_INPUT", "Chat ID must not be empty")
	}
	if len(content) == 0 {
		return nil, errors.NewBadRequestError("INVALID_INPUT", "Message content must not be empty")
	}
	if s.opts.MaxContentBytes > 0 && len(content) > s.opts.MaxContentBytes {
		return nil, errors.NewBadRequestError("INVALID_INPUT", "Message content is too long")
	}

	sender, err := s.lookupSender(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		s.log.LogError(err, "failed to mint message id")
		return nil, errors.NewInternalServerError("SERVER_ERROR", "Could not store message")
	}

	message := &models.Message{
		ID:         id,
		ChatID:     chatID,
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.messages.Create(ctx, message); err != nil {
		s.log.LogError(err, "failed to store message", "chat_id", chatID, "session_id", sessionID)
		return nil, errors.NewInternalServerError("SERVER_ERROR", "Could not store message")
	}
	metrics.MessagesPosted.Inc()

	if err := s.broker.Publish(ctx, chatID, message); err != nil {
		// The message is durable; live viewers catch up via history.
		metrics.PublishFailures.Inc()
		s.log.LogError(err, "failed to publish stored message",
			"chat_id", chatID,
			"message_id", message.ID,
		)
	}

	return message, nil
}

// GetHistory returns one backward-walking page of a chat's messages in
// ascending (created_at, id) order. It fetches pageSize+1 rows and trims
// the extra oldest one; nextCursor is the id of that trimmed row, so it is
// only present when strictly more history exists and the next call's page
// finishes with it.
func (s *ChatService) GetHistory(ctx context.Context, sessionID, chatID string, cursor *string, pageSize int) ([]models.Message, *string, error) {
	if sessionID == "" {
		return nil, nil, errors.NewUnauthorizedError("SESSION_REQUIRED", "A session is required to read history")
	}
	if chatID == "" {
		return nil, nil, errors.NewBadRequestError("INVALID_INPUT", "Chat ID must not be empty")
	}
	if pageSize <= 0 {
		return nil, nil, errors.NewBadRequestError("INVALID_INPUT", "Page size must be positive")
	}

	var cursorID *uuid.UUID
	if cursor != nil {
		parsed, err := uuid.Parse(*cursor)
		if err != nil {
			return nil, nil, errors.NewBadRequestError("INVALID_INPUT", "Cursor is not a valid message id")
		}
		cursorID = &parsed
	}

	page, err := s.messages.ListByChat(ctx, chatID, cursorID, pageSize+1)
	if err == repository.ErrCursorNotFound {
		// The cursor's message is gone; there is nothing older to serve.
		return []models.Message{}, nil, nil
	}
	if err != nil {
		s.log.LogError(err, "failed to list messages", "chat_id", chatID)
		return nil, nil, errors.NewInternalServerError("SERVER_ERROR", "Could not load history")
	}

	var nextCursor *string
	if len(page) == pageSize+1 {
		id := page[0].ID.String()
		nextCursor = &id
		page = page[1:]
	}

	return page, nextCursor, nil
}

// SubscribeLive opens a live feed of new messages for a chat. The feed
// replays nothing and never ends on its own; the returned cancel func
// deregisters from the broker before it returns and is safe to call more
// than once.
func (s *ChatService) SubscribeLive(ctx context.Context, sessionID, chatID string) (<-chan *models.Message, func(), error) {
	if s.opts.LiveFeedRequiresSession && sessionID == "" {
		return nil, nil, errors.NewUnauthorizedError("SESSION_REQUIRED", "A session is required to watch this chat")
	}
	if chatID == "" {
		return nil, nil, errors.NewBadRequestError("INVALID_INPUT", "Chat ID must not be empty")
	}

	events := make(chan *models.Message, s.opts.SubscriberBuffer)
	done := make(chan struct{})

	sub, err := s.broker.Subscribe(chatID, func(message *models.Message) {
		select {
		case <-done:
			return
		default:
		}
		select {
		case events <- message:
		default:
			// A subscriber that cannot keep up loses live events rather
			// than stalling the publisher; history remains complete.
			metrics.DroppedEvents.Inc()
			s.log.Warn("dropping live event on slow subscriber",
				"chat_id", chatID,
				"message_id", message.ID,
			)
		}
	})
	if err != nil {
		s.log.LogError(err, "failed to subscribe to chat", "chat_id", chatID)
		return nil, nil, errors.NewInternalServerError("SERVER_ERROR", "Could not open live feed")
	}

	metrics.LiveSubscribers.Inc()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			sub.Close()
			close(done)
			metrics.LiveSubscribers.Dec()
		})
	}

	return events, cancel, nil
}

// lookupSender resolves the posting session, caching hits since sessions
// are immutable
func (s *ChatService) lookupSender(ctx context.Context, sessionID string) (*models.Session, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, errors.NewUnauthorizedError("SESSION_REQUIRED", "Session credential is not valid")
	}

	cacheKey := "session:" + sessionID
	if s.cache != nil {
		if cached, ok := s.cache.Get(cacheKey); ok {
			if session, ok := cached.(*models.Session); ok {
				return session, nil
			}
		}
	}

	session, err := s.sessions.GetByID(ctx, id)
	if err == repository.ErrSessionNotFound {
		// A signed token for a pruned session degrades to re-bootstrap.
		return nil, errors.NewUnauthorizedError("SESSION_REQUIRED", "Session no longer exists")
	}
	if err != nil {
		s.log.LogError(err, "failed to load session", "session_id", sessionID)
		return nil, errors.NewInternalServerError("SERVER_ERROR", "Could not resolve session")
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, session)
	}
	return session, nil
}
