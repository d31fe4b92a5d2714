package websocket

import (
	"time"

	"github.com/roomchat/backend/internal/storage/models"
)

// EventBroadcaster builds room events and publishes them to the hub.
// Sessions and the REST API both publish through it.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastUserJoined announces that a user started receiving a room's events.
func (b *EventBroadcaster) BroadcastUserJoined(roomID string, sender *SenderInfo) PublishResult {
	return b.hub.Publish(&Envelope{
		Type:      TypeUserJoined,
		RoomID:    roomID,
		Sender:    sender,
		CreatedAt: time.Now().UTC(),
	})
}

// BroadcastUserLeft announces that a user stopped receiving a room's events.
func (b *EventBroadcaster) BroadcastUserLeft(roomID string, sender *SenderInfo) PublishResult {
	return b.hub.Publish(&Envelope{
		Type:      TypeUserLeft,
		RoomID:    roomID,
		Sender:    sender,
		CreatedAt: time.Now().UTC(),
	})
}

// BroadcastTyping relays a typing indicator.
func (b *EventBroadcaster) BroadcastTyping(roomID string, sender *SenderInfo, isTyping bool) PublishResult {
	return b.hub.Publish(&Envelope{
		Type:      TypeTyping,
		RoomID:    roomID,
		Sender:    sender,
		IsTyping:  &isTyping,
		CreatedAt: time.Now().UTC(),
	})
}

// BroadcastChat publishes a message that has already been persisted.
// The envelope carries the stored id and timestamp, never the client's.
func (b *EventBroadcaster) BroadcastChat(msg *models.Message, sender *SenderInfo) PublishResult {
	return b.hub.Publish(NewChatEnvelope(msg, sender))
}

// NewChatEnvelope builds the CHAT event for a persisted message.
func NewChatEnvelope(msg *models.Message, sender *SenderInfo) *Envelope {
	return &Envelope{
		Type:      TypeChat,
		RoomID:    msg.RoomID,
		MessageID: msg.ID,
		Content:   msg.Content,
		Sender:    sender,
		CreatedAt: msg.CreatedAt,
	}
}
