package models

import (
	"time"
)

// Message is a persisted chat message.
type Message struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"roomId"`
	SenderID    string     `json:"senderId"`
	Content     string     `json:"content"`
	MessageType string     `json:"messageType"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// Message types.
const (
	MessageTypeText  = "TEXT"
	MessageTypeImage = "IMAGE"
	MessageTypeFile  = "FILE"
)
