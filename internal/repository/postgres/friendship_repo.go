package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type friendshipRepository struct {
	db *gorm.DB
}

func NewFriendshipRepository(db *gorm.DB) *friendshipRepository {
	return &friendshipRepository{db: db}
}

func (r *friendshipRepository) Upsert(ctx context.Context, edge *domain.Friendship) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "friend_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "email", "is_pending", "is_rejected", "updated_at",
		}),
	}).Create(edge).Error
}

func (r *friendshipRepository) Get(ctx context.Context, ownerID, friendID uuid.UUID) (*domain.Friendship, error) {
	var edge domain.Friendship
	err := r.db.WithContext(ctx).
		First(&edge, "owner_id = ? AND friend_id = ?", ownerID, friendID).Error
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

func (r *friendshipRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Friendship, error) {
	var edges []*domain.Friendship
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("username ASC").
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	return edges, nil
}
