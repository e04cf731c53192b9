package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/domain"
	"github.com/marco/chatlink/internal/metrics"
	"github.com/marco/chatlink/internal/repository"
	"gorm.io/gorm"
)

type MessageService struct {
	userRepo    repository.UserRepository
	messageRepo repository.MessageRepository
	notifier    Notifier
	collector   *metrics.Collector
}

func NewMessageService(
	userRepo repository.UserRepository,
	messageRepo repository.MessageRepository,
	notifier Notifier,
	collector *metrics.Collector,
) *MessageService {
	return &MessageService{
		userRepo:    userRepo,
		messageRepo: messageRepo,
		notifier:    notifier,
		collector:   collector,
	}
}

// Send appends a message to the conversation and pushes it to the receiver's
// connection plus an echo to the sender's. Message order is arrival order at
// the server.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyMessage
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	msg := &domain.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Sender:     sender.Username,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	if s.collector != nil {
		s.collector.RecordMessageSent()
	}
	s.notifier.MessageDelivered(msg)
	return msg, nil
}

func (s *MessageService) Conversation(ctx context.Context, userID, friendID uuid.UUID) ([]*domain.Message, error) {
	return s.messageRepo.ListConversation(ctx, userID, friendID)
}

// MarkRead flips the read flag on every unread message the reader received
// from the given friend.
func (s *MessageService) MarkRead(ctx context.Context, readerID, friendID uuid.UUID) error {
	return s.messageRepo.MarkRead(ctx, readerID, friendID)
}
