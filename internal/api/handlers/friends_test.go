package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/marco/chatlink/internal/domain"
	"github.com/marco/chatlink/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendRequestFlow(t *testing.T) {
	ts := testutil.NewTestServer(t)

	alice, aliceToken := testutil.NewUserBuilder().WithUsername("alice").BuildAndAuthenticate(t, ts)
	bob, bobToken := testutil.NewUserBuilder().WithUsername("bob").BuildAndAuthenticate(t, ts)

	// Alice requests bob by username.
	resp, raw := doJSON(t, http.MethodPost, ts.BaseURL()+"/friend-requests",
		map[string]string{"toUsername": "bob"}, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created domain.FriendRequest
	rebuild(t, raw, &created)
	assert.Equal(t, alice.ID, created.FromUserID)
	assert.Equal(t, bob.ID, created.ToUserID)
	assert.Equal(t, domain.RequestStatusPending, created.Status)

	t.Run("duplicate request conflicts", func(t *testing.T) {
		resp, decoded := doJSON(t, http.MethodPost, ts.BaseURL()+"/friend-requests",
			map[string]string{"toUsername": "bob"}, aliceToken)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "Conflict", errorCode(t, decoded))
	})

	// Bob sees it pending.
	req := testutil.CreateAuthenticatedRequest(t, http.MethodGet,
		ts.BaseURL()+"/friend-requests/pending/"+bob.ID.String(), nil, bobToken)
	pendingResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer pendingResp.Body.Close()
	require.Equal(t, http.StatusOK, pendingResp.StatusCode)

	var pending []domain.FriendRequest
	require.NoError(t, json.NewDecoder(pendingResp.Body).Decode(&pending))
	require.Len(t, pending, 1)
	assert.Equal(t, created.ID, pending[0].ID)

	// Bob accepts.
	resp, raw = doJSON(t, http.MethodPost,
		ts.BaseURL()+"/friend-requests/"+created.ID.String()+"/respond",
		map[string]bool{"accept": true}, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var resolved domain.FriendRequest
	rebuild(t, raw, &resolved)
	assert.Equal(t, domain.RequestStatusAccepted, resolved.Status)

	// Both friend lists show the other side, no longer pending.
	for _, side := range []struct {
		id, token, wantUsername string
	}{
		{alice.ID.String(), aliceToken, "bob"},
		{bob.ID.String(), bobToken, "alice"},
	} {
		req := testutil.CreateAuthenticatedRequest(t, http.MethodGet,
			ts.BaseURL()+"/friends/"+side.id, nil, side.token)
		listResp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer listResp.Body.Close()
		require.Equal(t, http.StatusOK, listResp.StatusCode)

		var friends []struct {
			Username  string `json:"username"`
			IsPending bool   `json:"isPending"`
			IsOnline  bool   `json:"isOnline"`
		}
		require.NoError(t, json.NewDecoder(listResp.Body).Decode(&friends))
		require.Len(t, friends, 1)
		assert.Equal(t, side.wantUsername, friends[0].Username)
		assert.False(t, friends[0].IsPending)
		assert.False(t, friends[0].IsOnline)
	}

	t.Run("responding again conflicts", func(t *testing.T) {
		resp, decoded := doJSON(t, http.MethodPost,
			ts.BaseURL()+"/friend-requests/"+created.ID.String()+"/respond",
			map[string]bool{"accept": false}, bobToken)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "Conflict", errorCode(t, decoded))
	})
}

func TestSendFriendRequestValidation(t *testing.T) {
	ts := testutil.NewTestServer(t)

	alice, aliceToken := testutil.NewUserBuilder().WithUsername("alice").BuildAndAuthenticate(t, ts)

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing target",
			body:       map[string]string{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "ValidationFailed",
		},
		{
			name:       "unknown username",
			body:       map[string]string{"toUsername": "nobody"},
			wantStatus: http.StatusNotFound,
			wantCode:   "NotFound",
		},
		{
			name:       "self request",
			body:       map[string]string{"toUsername": "alice"},
			wantStatus: http.StatusConflict,
			wantCode:   "Conflict",
		},
		{
			name:       "malformed target id",
			body:       map[string]string{"toUserId": "not-a-uuid"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "ValidationFailed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, decoded := doJSON(t, http.MethodPost, ts.BaseURL()+"/friend-requests", tt.body, aliceToken)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, errorCode(t, decoded))
		})
	}

	t.Run("requires authentication", func(t *testing.T) {
		resp, decoded := doJSON(t, http.MethodPost, ts.BaseURL()+"/friend-requests",
			map[string]string{"toUsername": "alice"}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Unauthenticated", errorCode(t, decoded))
	})

	t.Run("cannot read someone else's lists", func(t *testing.T) {
		_, otherToken := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

		for _, path := range []string{
			"/friends/" + alice.ID.String(),
			"/friend-requests/pending/" + alice.ID.String(),
		} {
			resp, decoded := doJSON(t, http.MethodGet, ts.BaseURL()+path, nil, otherToken)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Unauthenticated", errorCode(t, decoded))
		}
	})
}
