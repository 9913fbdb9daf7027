package repository

import (
	"context"
	"errors"

	"flight-tracker-chat/backend/chat/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrCursorNotFound marks a cursor whose message no longer satisfies the
// query. Callers treat it as end-of-history, not as a failure.
var ErrCursorNotFound = errors.New("cursor message not found")

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	// ListByChat returns up to limit messages of a chat in ascending
	// (created_at, id) order, counted backward from the newest end. When
	// cursor is set the window ends at the cursor message inclusive, so the
	// caller can hand the id of a message it has not yet seen and receive
	// the page that finishes with it.
	ListByChat(ctx context.Context, chatID string, cursor *uuid.UUID, limit int) ([]models.Message, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *GormMessageRepository) ListByChat(ctx context.Context, chatID string, cursor *uuid.UUID, limit int) ([]models.Message, error) {
	query := r.db.WithContext(ctx).Where("chat_id = ?", chatID)

	if cursor != nil {
		var boundary models.Message
		err := r.db.WithContext(ctx).
			Where("chat_id = ? AND id = ?", chatID, *cursor).
			First(&boundary).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCursorNotFound
		}
		if err != nil {
			return nil, err
		}
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id <= ?)",
			boundary.CreatedAt, boundary.CreatedAt, boundary.ID,
		)
	}

	var messages []models.Message
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Rows come back newest-first; the wire order is oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
