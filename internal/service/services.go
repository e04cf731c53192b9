package service

import (
	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/config"
	"github.com/marco/chatlink/internal/domain"
	"github.com/marco/chatlink/internal/metrics"
	"github.com/marco/chatlink/internal/repository"
)

// Notifier delivers fire-and-forget events to a user's active connection.
// Delivery to an offline user is a silent no-op, so none of these return
// errors.
type Notifier interface {
	FriendRequestCreated(toUserID uuid.UUID, req *domain.FriendRequest)
	FriendRequestResolved(userID uuid.UUID, req *domain.FriendRequest)
	MessageDelivered(msg *domain.Message)
}

type Services struct {
	Auth    *AuthService
	Friend  *FriendService
	Message *MessageService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, notifier Notifier, collector *metrics.Collector) *Services {
	return &Services{
		Auth:    NewAuthService(repos.User, cfg, collector),
		Friend:  NewFriendService(repos.User, repos.Friendship, repos.FriendRequest, notifier),
		Message: NewMessageService(repos.User, repos.Message, notifier, collector),
	}
}
