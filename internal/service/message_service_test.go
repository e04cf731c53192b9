package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/domain"
	"github.com/marco/chatlink/internal/repository/postgres"
	"github.com/marco/chatlink/internal/service"
	"github.com/marco/chatlink/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMessageService(t *testing.T) (*service.MessageService, *testutil.TestDB, *recordingNotifier) {
	t.Helper()

	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	notifier := &recordingNotifier{}
	svc := service.NewMessageService(repos.User, repos.Message, notifier, nil)
	return svc, testDB, notifier
}

func TestMessageService_Send(t *testing.T) {
	svc, testDB, notifier := newMessageService(t)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().WithUsername("alice").Build(t, testDB.DB)
	bob, _ := testutil.NewUserBuilder().WithUsername("bob").Build(t, testDB.DB)

	t.Run("empty message", func(t *testing.T) {
		_, err := svc.Send(ctx, alice.ID, bob.ID, "   \t\n")
		assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	})

	t.Run("unknown receiver", func(t *testing.T) {
		_, err := svc.Send(ctx, alice.ID, uuid.New(), "hello")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("unknown sender", func(t *testing.T) {
		_, err := svc.Send(ctx, uuid.New(), bob.ID, "hello")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("successful send", func(t *testing.T) {
		msg, err := svc.Send(ctx, alice.ID, bob.ID, "hello bob")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, msg.SenderID)
		assert.Equal(t, bob.ID, msg.ReceiverID)
		assert.Equal(t, "alice", msg.Sender)
		assert.Equal(t, "hello bob", msg.Content)
		assert.False(t, msg.IsRead)

		delivered := notifier.deliveredMessages()
		require.Len(t, delivered, 1)
		assert.Equal(t, msg.ID, delivered[0].ID)
	})
}

func TestMessageService_Conversation(t *testing.T) {
	svc, testDB, _ := newMessageService(t)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().WithUsername("alice").Build(t, testDB.DB)
	bob, _ := testutil.NewUserBuilder().WithUsername("bob").Build(t, testDB.DB)
	carol, _ := testutil.NewUserBuilder().WithUsername("carol").Build(t, testDB.DB)

	for _, send := range []struct {
		from, to uuid.UUID
		content  string
	}{
		{alice.ID, bob.ID, "first"},
		{bob.ID, alice.ID, "second"},
		{alice.ID, carol.ID, "other conversation"},
		{alice.ID, bob.ID, "third"},
	} {
		_, err := svc.Send(ctx, send.from, send.to, send.content)
		require.NoError(t, err)
	}

	// Only the alice<->bob pair, in arrival order, from either side.
	for _, pair := range [][2]uuid.UUID{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		msgs, err := svc.Conversation(ctx, pair[0], pair[1])
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "first", msgs[0].Content)
		assert.Equal(t, "second", msgs[1].Content)
		assert.Equal(t, "third", msgs[2].Content)
	}

	msgs, err := svc.Conversation(ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "other conversation", msgs[0].Content)
}

func TestMessageService_MarkRead(t *testing.T) {
	svc, testDB, _ := newMessageService(t)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().WithUsername("alice").Build(t, testDB.DB)
	bob, _ := testutil.NewUserBuilder().WithUsername("bob").Build(t, testDB.DB)

	_, err := svc.Send(ctx, alice.ID, bob.ID, "unread one")
	require.NoError(t, err)
	_, err = svc.Send(ctx, alice.ID, bob.ID, "unread two")
	require.NoError(t, err)
	_, err = svc.Send(ctx, bob.ID, alice.ID, "reply")
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, bob.ID, alice.ID))

	msgs, err := svc.Conversation(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// Only what bob received from alice is flipped; bob's own outbound
	// message stays unread until alice marks it.
	for _, msg := range msgs {
		if msg.ReceiverID == bob.ID {
			assert.True(t, msg.IsRead, "message %q should be read", msg.Content)
		} else {
			assert.False(t, msg.IsRead, "message %q should stay unread", msg.Content)
		}
	}
}
