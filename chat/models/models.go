package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is an anonymous participant identity. Sessions are created on
// first contact, never mutated and never explicitly destroyed; the client
// holds a signed token referencing the ID.
type Session struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single chat entry. The ID is a v7 UUID so ids sort with
// creation time and break ties when timestamps collide.
type Message struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ChatID     string    `json:"chat_id" gorm:"index:idx_messages_chat_created,priority:1"`
	SenderID   uuid.UUID `json:"sender_id" gorm:"type:uuid;index"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at" gorm:"index:idx_messages_chat_created,priority:2"`
}
