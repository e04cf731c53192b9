package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// API is the authenticated HTTP client. When a request comes back 401 with
// the TokenExpired code, it rotates the refresh token and retries the
// request exactly once. Rotation is single-flight: however many requests
// discover the expiry concurrently, exactly one refresh call reaches the
// server and every caller reuses its outcome. A failed rotation clears the
// stored session and forces logout.
type API struct {
	baseURL    string
	httpClient *http.Client
	store      SessionStore

	mu      sync.RWMutex
	session SessionState

	rotateGroup    singleflight.Group
	onForcedLogout func()
}

type Options struct {
	BaseURL string
	Store   SessionStore
	// HTTPClient overrides the default 30s-timeout client.
	HTTPClient *http.Client
	// OnForcedLogout runs after a failed rotation has cleared the session.
	OnForcedLogout func()
}

func New(opts Options) *API {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &API{
		baseURL:        opts.BaseURL,
		httpClient:     httpClient,
		store:          opts.Store,
		onForcedLogout: opts.OnForcedLogout,
	}
}

type authResponse struct {
	User         UserInfo `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

func (c *API) Signup(ctx context.Context, username, email, password string) (*UserInfo, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	var resp authResponse
	if err := c.doPublic(ctx, http.MethodPost, "/auth/signup", body, &resp); err != nil {
		return nil, err
	}
	c.setSession(&resp)
	return c.User(), nil
}

func (c *API) Login(ctx context.Context, email, password string) (*UserInfo, error) {
	body := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.doPublic(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	c.setSession(&resp)
	return c.User(), nil
}

// Restore re-hydrates a persisted session. An expired access token is
// rotated on the spot; a session the server refuses is cleared. An
// unreachable server keeps the stored state so the next startup can try
// again.
func (c *API) Restore(ctx context.Context) (*UserInfo, error) {
	state, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	if state == nil || state.AccessToken == "" || state.User == nil {
		return nil, ErrNoSession
	}

	c.mu.Lock()
	c.session = *state
	c.mu.Unlock()

	var verified struct {
		User UserInfo `json:"user"`
	}
	err = c.doPublic(ctx, http.MethodPost, "/auth/verify-token",
		map[string]string{"accessToken": state.AccessToken}, &verified)
	if err == nil {
		return c.User(), nil
	}
	if errors.Is(err, ErrUnavailable) {
		return nil, err
	}

	// Stale access token is fine as long as the refresh token still works.
	_, rerr := c.rotate(ctx)
	if rerr == nil {
		return c.User(), nil
	}
	if errors.Is(rerr, ErrUnavailable) {
		return nil, rerr
	}

	c.clearSession()
	return nil, ErrNoSession
}

// Logout revokes every token for this user server-side, then drops local
// state regardless of whether the call succeeded.
func (c *API) Logout(ctx context.Context) error {
	user := c.User()
	var err error
	if user != nil {
		err = c.do(ctx, http.MethodPost, "/auth/logout/"+user.ID.String(), nil, nil)
	}
	c.clearSession()
	return err
}

func (c *API) User() *UserInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session.User == nil {
		return nil
	}
	u := *c.session.User
	return &u
}

func (c *API) Friends(ctx context.Context) ([]Friend, error) {
	user := c.User()
	if user == nil {
		return nil, ErrNoSession
	}
	var friends []Friend
	err := c.do(ctx, http.MethodGet, "/friends/"+user.ID.String(), nil, &friends)
	return friends, err
}

func (c *API) PendingRequests(ctx context.Context) ([]FriendRequest, error) {
	user := c.User()
	if user == nil {
		return nil, ErrNoSession
	}
	var pending []FriendRequest
	err := c.do(ctx, http.MethodGet, "/friend-requests/pending/"+user.ID.String(), nil, &pending)
	return pending, err
}

func (c *API) SendFriendRequest(ctx context.Context, toUsername string) (*FriendRequest, error) {
	var req FriendRequest
	err := c.do(ctx, http.MethodPost, "/friend-requests",
		map[string]string{"toUsername": toUsername}, &req)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *API) RespondToRequest(ctx context.Context, requestID uuid.UUID, accept bool) (*FriendRequest, error) {
	var req FriendRequest
	err := c.do(ctx, http.MethodPost, "/friend-requests/"+requestID.String()+"/respond",
		map[string]bool{"accept": accept}, &req)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *API) Conversation(ctx context.Context, friendID uuid.UUID) ([]Message, error) {
	user := c.User()
	if user == nil {
		return nil, ErrNoSession
	}
	var msgs []Message
	err := c.do(ctx, http.MethodGet,
		"/messages/"+user.ID.String()+"?friendId="+friendID.String(), nil, &msgs)
	return msgs, err
}

func (c *API) SendMessage(ctx context.Context, receiverID uuid.UUID, content string) (*Message, error) {
	var msg Message
	err := c.do(ctx, http.MethodPost, "/messages",
		map[string]string{"receiverId": receiverID.String(), "content": content}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *API) MarkRead(ctx context.Context, friendID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/messages/read",
		map[string]string{"friendId": friendID.String()}, nil)
}

// AccessToken returns the current access token, for the websocket dial.
func (c *API) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.AccessToken
}

// BaseURL returns the configured server base URL.
func (c *API) BaseURL() string {
	return c.baseURL
}

// do performs an authenticated request, recovering from an expired access
// token with a single-flight rotation and one retry. Any other
// authentication failure means the session is dead (the server revoked it
// out from under us), so it is cleared and the forced-logout hook fires.
func (c *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	status, code, err := c.roundTrip(ctx, method, path, body, out, c.AccessToken())
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		if code != "TokenExpired" {
			return c.forceLogout()
		}

		access, rerr := c.rotate(ctx)
		if rerr != nil {
			return c.forceLogout()
		}
		status, code, err = c.roundTrip(ctx, method, path, body, out, access)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return c.forceLogout()
		}
	}

	return statusToErr(status, code)
}

// forceLogout drops the session everywhere and notifies the owner.
func (c *API) forceLogout() error {
	c.clearSession()
	if c.onForcedLogout != nil {
		c.onForcedLogout()
	}
	return ErrSessionExpired
}

// doPublic performs an unauthenticated request.
func (c *API) doPublic(ctx context.Context, method, path string, body, out interface{}) error {
	status, code, err := c.roundTrip(ctx, method, path, body, out, "")
	if err != nil {
		return err
	}
	return statusToErr(status, code)
}

// rotate exchanges the refresh token for a new pair. Concurrent callers are
// collapsed into one network call; all of them see the same result.
func (c *API) rotate(ctx context.Context) (string, error) {
	result, err, _ := c.rotateGroup.Do("rotate", func() (interface{}, error) {
		c.mu.RLock()
		refresh := c.session.RefreshToken
		c.mu.RUnlock()
		if refresh == "" {
			return nil, ErrNoSession
		}

		var resp authResponse
		status, code, err := c.roundTrip(ctx, http.MethodPost, "/auth/refresh-token",
			map[string]string{"refreshToken": refresh}, &resp, "")
		if err != nil {
			return nil, err
		}
		if err := statusToErr(status, code); err != nil {
			return nil, err
		}

		c.setSession(&resp)
		return resp.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// roundTrip performs one HTTP exchange. It reports the error code from the
// JSON envelope alongside the status so callers can tell TokenExpired apart
// from other 401s.
func (c *API) roundTrip(ctx context.Context, method, path string, body, out interface{}, accessToken string) (int, string, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, "", err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &envelope)
		return resp.StatusCode, envelope.Error, nil
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return 0, "", err
		}
	}
	return resp.StatusCode, "", nil
}

func (c *API) setSession(resp *authResponse) {
	user := resp.User
	state := SessionState{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         &user,
	}

	c.mu.Lock()
	c.session = state
	c.mu.Unlock()

	if c.store != nil {
		_ = c.store.Save(&state)
	}
}

func (c *API) clearSession() {
	c.mu.Lock()
	c.session = SessionState{}
	c.mu.Unlock()

	if c.store != nil {
		_ = c.store.Clear()
	}
}

func statusToErr(status int, code string) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthenticated
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadRequest:
		return ErrValidation
	default:
		return fmt.Errorf("%w: status %d %s", ErrUnavailable, status, code)
	}
}
