package domain

import (
	"time"

	"github.com/google/uuid"
)

// Friendship is one directed edge of a friend relationship, held in the
// owner's friend list. An accepted friendship is two edges, one per side.
// A pending request shows only as the requester's edge.
type Friendship struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OwnerID    uuid.UUID `json:"ownerId" gorm:"type:uuid;not null;uniqueIndex:idx_owner_friend"`
	FriendID   uuid.UUID `json:"friendId" gorm:"type:uuid;not null;uniqueIndex:idx_owner_friend"`
	Username   string    `json:"username" gorm:"not null"`
	Email      string    `json:"email" gorm:"not null"`
	IsPending  bool      `json:"isPending" gorm:"not null;default:false"`
	IsRejected bool      `json:"isRejected" gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// FriendRequest is created by the sender, resolved exactly once by the
// recipient, and never deleted.
type FriendRequest struct {
	ID          uuid.UUID     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	FromUserID  uuid.UUID     `json:"fromUserId" gorm:"type:uuid;index;not null"`
	ToUserID    uuid.UUID     `json:"toUserId" gorm:"type:uuid;index;not null"`
	Status      RequestStatus `json:"status" gorm:"type:varchar(10);not null;default:'pending'"`
	CreatedAt   time.Time     `json:"createdAt"`
	RespondedAt *time.Time    `json:"respondedAt"`
}
