package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/domain"
	"github.com/marco/chatlink/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getConversation(t *testing.T, ts *testutil.TestServer, userID, token, friendID string) []domain.Message {
	t.Helper()

	req := testutil.CreateAuthenticatedRequest(t, http.MethodGet,
		ts.BaseURL()+"/messages/"+userID+"?friendId="+friendID, nil, token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var msgs []domain.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	return msgs
}

func TestMessageFlow(t *testing.T) {
	ts := testutil.NewTestServer(t)

	alice, aliceToken := testutil.NewUserBuilder().WithUsername("alice").BuildAndAuthenticate(t, ts)
	bob, bobToken := testutil.NewUserBuilder().WithUsername("bob").BuildAndAuthenticate(t, ts)

	resp, raw := doJSON(t, http.MethodPost, ts.BaseURL()+"/messages",
		map[string]string{"receiverId": bob.ID.String(), "content": "hello bob"}, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sent domain.Message
	rebuild(t, raw, &sent)
	assert.Equal(t, alice.ID, sent.SenderID)
	assert.Equal(t, "alice", sent.Sender)
	assert.False(t, sent.IsRead)

	_, raw = doJSON(t, http.MethodPost, ts.BaseURL()+"/messages",
		map[string]string{"receiverId": alice.ID.String(), "content": "hi alice"}, bobToken)
	var reply domain.Message
	rebuild(t, raw, &reply)

	// Both sides read the same ordered stream.
	aliceView := getConversation(t, ts, alice.ID.String(), aliceToken, bob.ID.String())
	bobView := getConversation(t, ts, bob.ID.String(), bobToken, alice.ID.String())
	require.Len(t, aliceView, 2)
	require.Len(t, bobView, 2)
	assert.Equal(t, sent.ID, aliceView[0].ID)
	assert.Equal(t, reply.ID, aliceView[1].ID)
	assert.Equal(t, sent.ID, bobView[0].ID)

	// Bob marks alice's messages read.
	resp, _ = doJSON(t, http.MethodPost, ts.BaseURL()+"/messages/read",
		map[string]string{"friendId": alice.ID.String()}, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	bobView = getConversation(t, ts, bob.ID.String(), bobToken, alice.ID.String())
	for _, msg := range bobView {
		if msg.ReceiverID == bob.ID {
			assert.True(t, msg.IsRead)
		} else {
			assert.False(t, msg.IsRead)
		}
	}
}

func TestSendMessageValidation(t *testing.T) {
	ts := testutil.NewTestServer(t)

	alice, aliceToken := testutil.NewUserBuilder().WithUsername("alice").BuildAndAuthenticate(t, ts)
	bob, _ := testutil.NewUserBuilder().WithUsername("bob").BuildAndAuthenticate(t, ts)

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "empty content",
			body:       map[string]string{"receiverId": bob.ID.String(), "content": "   "},
			wantStatus: http.StatusBadRequest,
			wantCode:   "ValidationFailed",
		},
		{
			name:       "malformed receiver id",
			body:       map[string]string{"receiverId": "nope", "content": "hello"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "ValidationFailed",
		},
		{
			name:       "unknown receiver",
			body:       map[string]string{"receiverId": uuid.New().String(), "content": "hello"},
			wantStatus: http.StatusNotFound,
			wantCode:   "NotFound",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, decoded := doJSON(t, http.MethodPost, ts.BaseURL()+"/messages", tt.body, aliceToken)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, errorCode(t, decoded))
		})
	}

	t.Run("missing friendId query", func(t *testing.T) {
		resp, decoded := doJSON(t, http.MethodGet,
			ts.BaseURL()+"/messages/"+alice.ID.String(), nil, aliceToken)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "ValidationFailed", errorCode(t, decoded))
	})

	t.Run("cannot read someone else's conversation", func(t *testing.T) {
		_, otherToken := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
		resp, decoded := doJSON(t, http.MethodGet,
			ts.BaseURL()+"/messages/"+alice.ID.String()+"?friendId="+bob.ID.String(), nil, otherToken)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Unauthenticated", errorCode(t, decoded))
	})
}
