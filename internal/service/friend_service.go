package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/domain"
	"github.com/marco/chatlink/internal/repository"
	"gorm.io/gorm"
)

// FriendService drives the friend-request state machine:
// pending -> accepted or pending -> rejected, both terminal. Accepting
// writes a friendship edge on each side; rejecting writes rejected edges on
// each side so the state is visible, but it does not block a later request
// for the same pair.
type FriendService struct {
	userRepo       repository.UserRepository
	friendshipRepo repository.FriendshipRepository
	requestRepo    repository.FriendRequestRepository
	notifier       Notifier
}

func NewFriendService(
	userRepo repository.UserRepository,
	friendshipRepo repository.FriendshipRepository,
	requestRepo repository.FriendRequestRepository,
	notifier Notifier,
) *FriendService {
	return &FriendService{
		userRepo:       userRepo,
		friendshipRepo: friendshipRepo,
		requestRepo:    requestRepo,
		notifier:       notifier,
	}
}

type SendRequestInput struct {
	FromUserID uuid.UUID
	// Target is resolved by id when set, otherwise by username.
	ToUserID   uuid.UUID
	ToUsername string
}

func (s *FriendService) SendRequest(ctx context.Context, input SendRequestInput) (*domain.FriendRequest, error) {
	target, err := s.resolveTarget(ctx, input)
	if err != nil {
		return nil, err
	}

	if input.FromUserID == target.ID {
		return nil, domain.ErrSelfRequest
	}

	// At most one pending request per ordered pair.
	if _, err := s.requestRepo.GetPendingByPair(ctx, input.FromUserID, target.ID); err == nil {
		return nil, domain.ErrDuplicateRequest
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// A non-rejected edge in either direction means the pair is already
	// friends or has a request pending the other way.
	for _, pair := range [][2]uuid.UUID{{input.FromUserID, target.ID}, {target.ID, input.FromUserID}} {
		edge, err := s.friendshipRepo.Get(ctx, pair[0], pair[1])
		if err == nil && !edge.IsRejected {
			return nil, domain.ErrAlreadyFriends
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	req := &domain.FriendRequest{
		ID:         uuid.New(),
		FromUserID: input.FromUserID,
		ToUserID:   target.ID,
		Status:     domain.RequestStatusPending,
		CreatedAt:  time.Now(),
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	// Pending edge on the requester's side only; the recipient sees nothing
	// until they check their pending requests.
	edge := &domain.Friendship{
		ID:        uuid.New(),
		OwnerID:   input.FromUserID,
		FriendID:  target.ID,
		Username:  target.Username,
		Email:     target.Email,
		IsPending: true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.friendshipRepo.Upsert(ctx, edge); err != nil {
		return nil, err
	}

	s.notifier.FriendRequestCreated(target.ID, req)
	return req, nil
}

// Respond resolves a pending request. Only the addressed user may respond;
// anyone else gets not-found so request ids cannot be probed.
func (s *FriendService) Respond(ctx context.Context, requestID, responderID uuid.UUID, accept bool) (*domain.FriendRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}

	if req.ToUserID != responderID {
		return nil, domain.ErrRequestNotFound
	}
	if req.Status != domain.RequestStatusPending {
		return nil, domain.ErrRequestAlreadyResolved
	}

	from, err := s.userRepo.GetByID(ctx, req.FromUserID)
	if err != nil {
		return nil, err
	}
	to, err := s.userRepo.GetByID(ctx, req.ToUserID)
	if err != nil {
		return nil, err
	}

	rejected := !accept
	edges := []*domain.Friendship{
		{
			ID:         uuid.New(),
			OwnerID:    from.ID,
			FriendID:   to.ID,
			Username:   to.Username,
			Email:      to.Email,
			IsRejected: rejected,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		},
		{
			ID:         uuid.New(),
			OwnerID:    to.ID,
			FriendID:   from.ID,
			Username:   from.Username,
			Email:      from.Email,
			IsRejected: rejected,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		},
	}
	for _, edge := range edges {
		if err := s.friendshipRepo.Upsert(ctx, edge); err != nil {
			return nil, err
		}
	}

	if accept {
		req.Status = domain.RequestStatusAccepted
	} else {
		req.Status = domain.RequestStatusRejected
	}
	now := time.Now()
	req.RespondedAt = &now

	if err := s.requestRepo.Update(ctx, req); err != nil {
		return nil, err
	}

	s.notifier.FriendRequestResolved(req.FromUserID, req)
	return req, nil
}

func (s *FriendService) ListFriends(ctx context.Context, ownerID uuid.UUID) ([]*domain.Friendship, error) {
	return s.friendshipRepo.ListByOwner(ctx, ownerID)
}

func (s *FriendService) ListPending(ctx context.Context, toUserID uuid.UUID) ([]*domain.FriendRequest, error) {
	return s.requestRepo.ListPendingForUser(ctx, toUserID)
}

func (s *FriendService) resolveTarget(ctx context.Context, input SendRequestInput) (*domain.User, error) {
	var (
		target *domain.User
		err    error
	)
	if input.ToUserID != uuid.Nil {
		target, err = s.userRepo.GetByID(ctx, input.ToUserID)
	} else {
		target, err = s.userRepo.GetByUsername(ctx, input.ToUsername)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return target, nil
}
