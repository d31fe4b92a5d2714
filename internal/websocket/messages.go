package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the kind of envelope.
type MessageType string

const (
	// Client -> Server commands
	TypeChat   MessageType = "CHAT"
	TypeJoin   MessageType = "JOIN"
	TypeLeave  MessageType = "LEAVE"
	TypeTyping MessageType = "TYPING"

	// Server -> Client events (CHAT and TYPING are echoed as events too)
	TypeUserJoined MessageType = "USER_JOINED"
	TypeUserLeft   MessageType = "USER_LEFT"
	TypeError      MessageType = "ERROR"
)

// Error codes carried by ERROR envelopes.
const (
	ErrCodeInvalidMessage  = "invalid_message"
	ErrCodeMissingRoom     = "missing_room"
	ErrCodeUnauthenticated = "unauthenticated"
	ErrCodeEmptyContent    = "empty_content"
	ErrCodePersistFailed   = "persist_failed"
	ErrCodeRateLimited     = "rate_limited"
)

// ErrMalformed wraps every decode failure.
var ErrMalformed = errors.New("malformed envelope")

// SenderInfo summarizes the user an envelope originates from.
type SenderInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Envelope is the unit exchanged over the wire and on the hub.
// Envelopes published to the hub are shared between subscribers and
// must not be modified after construction.
type Envelope struct {
	Type         MessageType `json:"type"`
	RoomID       string      `json:"roomId,omitempty"`
	MessageID    string      `json:"messageId,omitempty"`
	Content      string      `json:"content,omitempty"`
	Sender       *SenderInfo `json:"sender,omitempty"`
	IsTyping     *bool       `json:"isTyping,omitempty"`
	ErrorCode    string      `json:"errorCode,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	CreatedAt    time.Time   `json:"createdAt,omitzero"`
}

// JSON serializes the envelope to JSON bytes.
func (e *Envelope) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewErrorEnvelope builds an ERROR envelope addressed to a single connection.
func NewErrorEnvelope(code, message string) *Envelope {
	return &Envelope{
		Type:         TypeError,
		ErrorCode:    code,
		ErrorMessage: message,
		CreatedAt:    time.Now().UTC(),
	}
}

// DecodeEnvelope parses an inbound frame. Unknown kinds, invalid JSON and
// room IDs that are not UUIDs are reported as ErrMalformed. A missing
// room is not a decode error; handlers decide whether they need one.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeChat, TypeJoin, TypeLeave, TypeTyping:
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: unsupported type %q", ErrMalformed, env.Type)
	}

	if env.RoomID != "" {
		id, err := uuid.Parse(env.RoomID)
		if err != nil {
			return nil, fmt.Errorf("%w: room id: %v", ErrMalformed, err)
		}
		env.RoomID = id.String()
	}

	return &env, nil
}
