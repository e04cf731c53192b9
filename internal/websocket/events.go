package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/domain"
)

type EventType string

const (
	EventPresenceChanged       EventType = "presence-changed"
	EventFriendRequestCreated  EventType = "friend-request-created"
	EventFriendRequestResolved EventType = "friend-request-resolved"
	EventMessageDelivered      EventType = "message-delivered"
)

// Event is the envelope for every server -> client push. Delivery is
// at-most-once and unordered relative to concurrent HTTP responses; clients
// treat events as hints to reconcile, not as the sole source of truth.
type Event struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewEvent(eventType EventType, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

type PresencePayload struct {
	UserID   uuid.UUID `json:"userId"`
	IsOnline bool      `json:"isOnline"`
}

type RequestResolvedPayload struct {
	RequestID  uuid.UUID            `json:"requestId"`
	FromUserID uuid.UUID            `json:"fromUserId"`
	ToUserID   uuid.UUID            `json:"toUserId"`
	Status     domain.RequestStatus `json:"status"`
}
