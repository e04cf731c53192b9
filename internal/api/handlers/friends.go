package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/api/middleware"
	"github.com/marco/chatlink/internal/domain"
	"github.com/marco/chatlink/internal/service"
	"github.com/marco/chatlink/internal/websocket"
)

type FriendHandler struct {
	friendService *service.FriendService
	registry      *websocket.Registry
}

func NewFriendHandler(friendService *service.FriendService, registry *websocket.Registry) *FriendHandler {
	return &FriendHandler{
		friendService: friendService,
		registry:      registry,
	}
}

type FriendResponse struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	IsPending  bool   `json:"isPending"`
	IsRejected bool   `json:"isRejected"`
	IsOnline   bool   `json:"isOnline"`
}

type SendRequestRequest struct {
	ToUserID   string `json:"toUserId"`
	ToUsername string `json:"toUsername"`
}

type RespondRequest struct {
	Accept bool `json:"accept"`
}

// List returns the caller's friend list with live presence annotations.
func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerMatchesPath(w, r)
	if !ok {
		return
	}

	edges, err := h.friendService.ListFriends(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeUnavailable)
		return
	}

	resp := make([]FriendResponse, 0, len(edges))
	for _, edge := range edges {
		resp = append(resp, FriendResponse{
			UserID:     edge.FriendID.String(),
			Username:   edge.Username,
			Email:      edge.Email,
			IsPending:  edge.IsPending,
			IsRejected: edge.IsRejected,
			IsOnline:   h.registry.IsOnline(edge.FriendID),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return
	}

	var req SendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	input := service.SendRequestInput{
		FromUserID: userID,
		ToUsername: req.ToUsername,
	}
	if req.ToUserID != "" {
		toID, err := uuid.Parse(req.ToUserID)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed)
			return
		}
		input.ToUserID = toID
	} else if req.ToUsername == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	created, err := h.friendService.SendRequest(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			writeError(w, http.StatusNotFound, CodeNotFound)
		case errors.Is(err, domain.ErrSelfRequest),
			errors.Is(err, domain.ErrDuplicateRequest),
			errors.Is(err, domain.ErrAlreadyFriends):
			writeError(w, http.StatusConflict, CodeConflict)
		default:
			writeError(w, http.StatusInternalServerError, CodeUnavailable)
		}
		return
	}

	writeJSON(w, http.StatusOK, created)
}

func (h *FriendHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerMatchesPath(w, r)
	if !ok {
		return
	}

	pending, err := h.friendService.ListPending(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, pending)
}

func (h *FriendHandler) Respond(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	resolved, err := h.friendService.Respond(r.Context(), requestID, userID, req.Accept)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRequestNotFound):
			writeError(w, http.StatusNotFound, CodeNotFound)
		case errors.Is(err, domain.ErrRequestAlreadyResolved):
			writeError(w, http.StatusConflict, CodeConflict)
		default:
			writeError(w, http.StatusInternalServerError, CodeUnavailable)
		}
		return
	}

	writeJSON(w, http.StatusOK, resolved)
}

// callerMatchesPath enforces that the {id} path segment is the
// authenticated caller.
func callerMatchesPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return uuid.Nil, false
	}

	pathID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil || pathID != userID {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return uuid.Nil, false
	}

	return userID, true
}
