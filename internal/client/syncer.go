package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/websocket"
)

const (
	defaultFriendsTTL  = 30 * time.Second
	defaultMessagesTTL = 15 * time.Second
)

// Syncer owns the per-resource observable caches: the friends list, pending
// friend requests, and one cache per open conversation. Local mutations and
// inbound push events are applied the same way, so subscribers cannot tell
// where a change originated. The friends cache also self-refreshes on a
// timer equal to its TTL, bounding presence drift even with no UI activity.
type Syncer struct {
	api *API

	friends *Cache[[]Friend]
	pending *Cache[[]FriendRequest]

	mu          sync.Mutex
	convs       map[uuid.UUID]*Cache[[]Message]
	messagesTTL time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type SyncerOptions struct {
	FriendsTTL  time.Duration
	MessagesTTL time.Duration
}

func NewSyncer(api *API, opts SyncerOptions) *Syncer {
	if opts.FriendsTTL <= 0 {
		opts.FriendsTTL = defaultFriendsTTL
	}
	if opts.MessagesTTL <= 0 {
		opts.MessagesTTL = defaultMessagesTTL
	}

	s := &Syncer{
		api:         api,
		convs:       make(map[uuid.UUID]*Cache[[]Message]),
		messagesTTL: opts.MessagesTTL,
		stop:        make(chan struct{}),
	}
	s.friends = NewCache(opts.FriendsTTL, api.Friends)
	s.pending = NewCache(opts.FriendsTTL, api.PendingRequests)

	go s.refreshLoop(opts.FriendsTTL)
	return s
}

// Close stops the background refresh. The owning session calls this on
// teardown; it is safe to call more than once.
func (s *Syncer) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *Syncer) refreshLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			_, _ = s.friends.Refresh(ctx)
			cancel()
		}
	}
}

func (s *Syncer) Friends(ctx context.Context) ([]Friend, error) {
	return s.friends.Get(ctx)
}

func (s *Syncer) PendingRequests(ctx context.Context) ([]FriendRequest, error) {
	return s.pending.Get(ctx)
}

func (s *Syncer) SubscribeFriends(fn func([]Friend)) func() {
	return s.friends.Subscribe(fn)
}

func (s *Syncer) SubscribePending(fn func([]FriendRequest)) func() {
	return s.pending.Subscribe(fn)
}

// Conversation returns the cached message stream with the given friend.
func (s *Syncer) Conversation(ctx context.Context, friendID uuid.UUID) ([]Message, error) {
	return s.conversationCache(friendID).Get(ctx)
}

func (s *Syncer) SubscribeConversation(friendID uuid.UUID, fn func([]Message)) func() {
	return s.conversationCache(friendID).Subscribe(fn)
}

// SendMessage performs the mutation and appends the known result directly
// to the conversation cache, avoiding a redundant refetch.
func (s *Syncer) SendMessage(ctx context.Context, friendID uuid.UUID, content string) (*Message, error) {
	msg, err := s.api.SendMessage(ctx, friendID, content)
	if err != nil {
		return nil, err
	}
	s.applyMessage(*msg)
	return msg, nil
}

// SendFriendRequest invalidates the friends cache rather than patching it:
// the true post-mutation state of a relationship needs server recomputation.
func (s *Syncer) SendFriendRequest(ctx context.Context, toUsername string) (*FriendRequest, error) {
	req, err := s.api.SendFriendRequest(ctx, toUsername)
	if err != nil {
		return nil, err
	}
	s.friends.Invalidate()
	return req, nil
}

func (s *Syncer) RespondToRequest(ctx context.Context, requestID uuid.UUID, accept bool) (*FriendRequest, error) {
	req, err := s.api.RespondToRequest(ctx, requestID, accept)
	if err != nil {
		return nil, err
	}
	s.pending.Invalidate()
	s.friends.Invalidate()
	return req, nil
}

// ApplyEvent routes an inbound push event into the caches. Events are hints
// to reconcile: applying one is idempotent, and an event for a resource
// that was never fetched is a no-op because the next read fetches anyway.
func (s *Syncer) ApplyEvent(ev *websocket.Event) {
	switch ev.Type {
	case websocket.EventPresenceChanged:
		var p websocket.PresencePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return
		}
		s.friends.Update(func(friends []Friend) []Friend {
			for i := range friends {
				if friends[i].UserID == p.UserID {
					friends[i].IsOnline = p.IsOnline
				}
			}
			return friends
		})

	case websocket.EventFriendRequestCreated:
		var req FriendRequest
		if err := json.Unmarshal(ev.Payload, &req); err != nil {
			return
		}
		s.pending.Update(func(pending []FriendRequest) []FriendRequest {
			for _, existing := range pending {
				if existing.ID == req.ID {
					return pending
				}
			}
			return append(pending, req)
		})

	case websocket.EventFriendRequestResolved:
		s.pending.Invalidate()
		s.friends.Invalidate()

	case websocket.EventMessageDelivered:
		var msg Message
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			return
		}
		s.applyMessage(msg)
	}
}

// applyMessage appends to the conversation cache if that conversation is
// held locally. Duplicate applies (local echo plus push echo) are
// deduplicated by message id.
func (s *Syncer) applyMessage(msg Message) {
	other := msg.SenderID
	if user := s.api.User(); user != nil && other == user.ID {
		other = msg.ReceiverID
	}

	s.mu.Lock()
	cache, ok := s.convs[other]
	s.mu.Unlock()
	if !ok {
		return
	}

	cache.Update(func(msgs []Message) []Message {
		for _, existing := range msgs {
			if existing.ID == msg.ID {
				return msgs
			}
		}
		return append(msgs, msg)
	})
}

// conversationCache keys by the friend's id. Each syncer serves exactly one
// local user, so the friend id alone identifies the conversation, and the
// key is stable whether the cache was created before or after login.
func (s *Syncer) conversationCache(friendID uuid.UUID) *Cache[[]Message] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cache, ok := s.convs[friendID]; ok {
		return cache
	}

	cache := NewCache(s.messagesTTL, func(ctx context.Context) ([]Message, error) {
		return s.api.Conversation(ctx, friendID)
	})
	s.convs[friendID] = cache
	return cache
}
