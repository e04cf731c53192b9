package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/domain"
	"github.com/marco/chatlink/internal/repository/postgres"
	"github.com/marco/chatlink/internal/service"
	"github.com/marco/chatlink/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures dispatched events for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	created  []uuid.UUID
	resolved []uuid.UUID
	messages []*domain.Message
}

func (n *recordingNotifier) FriendRequestCreated(toUserID uuid.UUID, req *domain.FriendRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, toUserID)
}

func (n *recordingNotifier) FriendRequestResolved(userID uuid.UUID, req *domain.FriendRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resolved = append(n.resolved, userID)
}

func (n *recordingNotifier) MessageDelivered(msg *domain.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) createdTargets() []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]uuid.UUID(nil), n.created...)
}

func (n *recordingNotifier) resolvedTargets() []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]uuid.UUID(nil), n.resolved...)
}

func (n *recordingNotifier) deliveredMessages() []*domain.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*domain.Message(nil), n.messages...)
}

func newFriendService(t *testing.T) (*service.FriendService, *testutil.TestDB, *recordingNotifier) {
	t.Helper()

	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	notifier := &recordingNotifier{}
	svc := service.NewFriendService(repos.User, repos.Friendship, repos.FriendRequest, notifier)
	return svc, testDB, notifier
}

func TestFriendService_SendRequest(t *testing.T) {
	svc, testDB, notifier := newFriendService(t)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().WithUsername("alice").Build(t, testDB.DB)
	bob, _ := testutil.NewUserBuilder().WithUsername("bob").Build(t, testDB.DB)

	req, err := svc.SendRequest(ctx, service.SendRequestInput{
		FromUserID: alice.ID,
		ToUsername: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, req.FromUserID)
	assert.Equal(t, bob.ID, req.ToUserID)
	assert.Equal(t, domain.RequestStatusPending, req.Status)

	// The requester gets a pending edge; the recipient gets nothing yet.
	edges, err := svc.ListFriends(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, bob.ID, edges[0].FriendID)
	assert.True(t, edges[0].IsPending)

	bobEdges, err := svc.ListFriends(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, bobEdges)

	// The recipient was notified.
	assert.Equal(t, []uuid.UUID{bob.ID}, notifier.createdTargets())
}

func TestFriendService_SendRequest_Guards(t *testing.T) {
	svc, testDB, _ := newFriendService(t)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().WithUsername("alice").Build(t, testDB.DB)
	bob, _ := testutil.NewUserBuilder().WithUsername("bob").Build(t, testDB.DB)

	t.Run("self request", func(t *testing.T) {
		_, err := svc.SendRequest(ctx, service.SendRequestInput{
			FromUserID: alice.ID,
			ToUserID:   alice.ID,
		})
		assert.ErrorIs(t, err, domain.ErrSelfRequest)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := svc.SendRequest(ctx, service.SendRequestInput{
			FromUserID: alice.ID,
			ToUsername: "nobody",
		})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("duplicate pending request", func(t *testing.T) {
		_, err := svc.SendRequest(ctx, service.SendRequestInput{
			FromUserID: alice.ID,
			ToUserID:   bob.ID,
		})
		require.NoError(t, err)

		_, err = svc.SendRequest(ctx, service.SendRequestInput{
			FromUserID: alice.ID,
			ToUserID:   bob.ID,
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateRequest)
	})

	t.Run("reverse request while pending", func(t *testing.T) {
		_, err := svc.SendRequest(ctx, service.SendRequestInput{
			FromUserID: bob.ID,
			ToUserID:   alice.ID,
		})
		assert.ErrorIs(t, err, domain.ErrAlreadyFriends)
	})
}

func TestFriendService_Respond_Accept(t *testing.T) {
	svc, testDB, notifier := newFriendService(t)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().WithUsername("alice").Build(t, testDB.DB)
	bob, _ := testutil.NewUserBuilder().WithUsername("bob").Build(t, testDB.DB)

	req, err := svc.SendRequest(ctx, service.SendRequestInput{FromUserID: alice.ID, ToUserID: bob.ID})
	require.NoError(t, err)

	resolved, err := svc.Respond(ctx, req.ID, bob.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusAccepted, resolved.Status)
	require.NotNil(t, resolved.RespondedAt)

	// Both sides hold a clean edge now.
	for _, tc := range []struct {
		owner, friend *domain.User
	}{
		{alice, bob},
		{bob, alice},
	} {
		edges, err := svc.ListFriends(ctx, tc.owner.ID)
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, tc.friend.ID, edges[0].FriendID)
		assert.Equal(t, tc.friend.Username, edges[0].Username)
		assert.False(t, edges[0].IsPending)
		assert.False(t, edges[0].IsRejected)
	}

	// The original requester was notified of the resolution.
	assert.Equal(t, []uuid.UUID{alice.ID}, notifier.resolvedTargets())

	// A repeat request against an accepted friendship is refused.
	_, err = svc.SendRequest(ctx, service.SendRequestInput{FromUserID: alice.ID, ToUserID: bob.ID})
	assert.ErrorIs(t, err, domain.ErrAlreadyFriends)
}

func TestFriendService_Respond_Reject(t *testing.T) {
	svc, testDB, _ := newFriendService(t)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().WithUsername("alice").Build(t, testDB.DB)
	bob, _ := testutil.NewUserBuilder().WithUsername("bob").Build(t, testDB.DB)

	req, err := svc.SendRequest(ctx, service.SendRequestInput{FromUserID: alice.ID, ToUserID: bob.ID})
	require.NoError(t, err)

	resolved, err := svc.Respond(ctx, req.ID, bob.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, resolved.Status)

	for _, ownerID := range []uuid.UUID{alice.ID, bob.ID} {
		edges, err := svc.ListFriends(ctx, ownerID)
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.True(t, edges[0].IsRejected)
		assert.False(t, edges[0].IsPending)
	}

	// Rejection is not permanent: a new request may be sent and the rejected
	// edge is overwritten as pending.
	_, err = svc.SendRequest(ctx, service.SendRequestInput{FromUserID: alice.ID, ToUserID: bob.ID})
	require.NoError(t, err)

	edges, err := svc.ListFriends(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.True(t, edges[0].IsPending)
	assert.False(t, edges[0].IsRejected)
}

func TestFriendService_Respond_Guards(t *testing.T) {
	svc, testDB, _ := newFriendService(t)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().WithUsername("alice").Build(t, testDB.DB)
	bob, _ := testutil.NewUserBuilder().WithUsername("bob").Build(t, testDB.DB)
	carol, _ := testutil.NewUserBuilder().WithUsername("carol").Build(t, testDB.DB)

	req, err := svc.SendRequest(ctx, service.SendRequestInput{FromUserID: alice.ID, ToUserID: bob.ID})
	require.NoError(t, err)

	t.Run("unknown request id", func(t *testing.T) {
		_, err := svc.Respond(ctx, uuid.New(), bob.ID, true)
		assert.ErrorIs(t, err, domain.ErrRequestNotFound)
	})

	t.Run("only the recipient may respond", func(t *testing.T) {
		_, err := svc.Respond(ctx, req.ID, carol.ID, true)
		assert.ErrorIs(t, err, domain.ErrRequestNotFound)

		_, err = svc.Respond(ctx, req.ID, alice.ID, true)
		assert.ErrorIs(t, err, domain.ErrRequestNotFound)
	})

	t.Run("resolution is terminal", func(t *testing.T) {
		_, err := svc.Respond(ctx, req.ID, bob.ID, true)
		require.NoError(t, err)

		_, err = svc.Respond(ctx, req.ID, bob.ID, false)
		assert.ErrorIs(t, err, domain.ErrRequestAlreadyResolved)
	})

	t.Run("pending list reflects resolution", func(t *testing.T) {
		pending, err := svc.ListPending(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}
