package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	// BumpTokenEpoch atomically increments the user's token epoch, which
	// invalidates every token minted before the call.
	BumpTokenEpoch(ctx context.Context, id uuid.UUID) error
}

type FriendshipRepository interface {
	// Upsert inserts the edge or, if an edge for (owner, friend) already
	// exists, overwrites its snapshot and flags.
	Upsert(ctx context.Context, edge *domain.Friendship) error
	Get(ctx context.Context, ownerID, friendID uuid.UUID) (*domain.Friendship, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Friendship, error)
}

type FriendRequestRepository interface {
	Create(ctx context.Context, req *domain.FriendRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error)
	GetPendingByPair(ctx context.Context, fromID, toID uuid.UUID) (*domain.FriendRequest, error)
	ListPendingForUser(ctx context.Context, toID uuid.UUID) ([]*domain.FriendRequest, error)
	Update(ctx context.Context, req *domain.FriendRequest) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListConversation returns every message between the two users in
	// arrival order, regardless of direction.
	ListConversation(ctx context.Context, a, b uuid.UUID) ([]*domain.Message, error)
	MarkRead(ctx context.Context, readerID, senderID uuid.UUID) error
}

type Repositories struct {
	User          UserRepository
	Friendship    FriendshipRepository
	FriendRequest FriendRequestRepository
	Message       MessageRepository
}
