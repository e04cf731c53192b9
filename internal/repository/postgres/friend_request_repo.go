package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/domain"
	"gorm.io/gorm"
)

type friendRequestRepository struct {
	db *gorm.DB
}

func NewFriendRequestRepository(db *gorm.DB) *friendRequestRepository {
	return &friendRequestRepository{db: db}
}

func (r *friendRequestRepository) Create(ctx context.Context, req *domain.FriendRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *friendRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *friendRequestRepository) GetPendingByPair(ctx context.Context, fromID, toID uuid.UUID) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	err := r.db.WithContext(ctx).
		First(&req, "from_user_id = ? AND to_user_id = ? AND status = ?",
			fromID, toID, domain.RequestStatusPending).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *friendRequestRepository) ListPendingForUser(ctx context.Context, toID uuid.UUID) ([]*domain.FriendRequest, error) {
	var reqs []*domain.FriendRequest
	err := r.db.WithContext(ctx).
		Where("to_user_id = ? AND status = ?", toID, domain.RequestStatusPending).
		Order("created_at ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *friendRequestRepository) Update(ctx context.Context, req *domain.FriendRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}
