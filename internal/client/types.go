// Package client is the consuming side of the API: a durable session store,
// an HTTP client that transparently rotates expired tokens, and observable
// TTL caches kept consistent with server pushes.
package client

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoSession       = errors.New("no stored session")
	ErrSessionExpired  = errors.New("session expired, log in again")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrUnavailable     = errors.New("service unavailable")
)

type UserInfo struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type Friend struct {
	UserID     uuid.UUID `json:"userId"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	IsPending  bool      `json:"isPending"`
	IsRejected bool      `json:"isRejected"`
	IsOnline   bool      `json:"isOnline"`
}

type FriendRequest struct {
	ID          uuid.UUID  `json:"id"`
	FromUserID  uuid.UUID  `json:"fromUserId"`
	ToUserID    uuid.UUID  `json:"toUserId"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt"`
}

type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"senderId"`
	ReceiverID uuid.UUID `json:"receiverId"`
	Sender     string    `json:"sender"`
	Content    string    `json:"content"`
	Time       time.Time `json:"time"`
	IsRead     bool      `json:"isRead"`
}
