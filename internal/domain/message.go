package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is immutable once created; conversations are append-only.
type Message struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SenderID   uuid.UUID `json:"senderId" gorm:"type:uuid;index;not null"`
	ReceiverID uuid.UUID `json:"receiverId" gorm:"type:uuid;index;not null"`
	Sender     string    `json:"sender" gorm:"not null"`
	Content    string    `json:"content" gorm:"not null"`
	CreatedAt  time.Time `json:"time"`
	IsRead     bool      `json:"isRead" gorm:"not null;default:false"`
}
