package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/api/middleware"
	"github.com/marco/chatlink/internal/domain"
	"github.com/marco/chatlink/internal/service"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

type MarkReadRequest struct {
	FriendID string `json:"friendId"`
}

// Conversation returns the arrival-ordered message stream between the
// caller and ?friendId=.
func (h *MessageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerMatchesPath(w, r)
	if !ok {
		return
	}

	friendID, err := uuid.Parse(r.URL.Query().Get("friendId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	msgs, err := h.messageService.Conversation(r.Context(), userID, friendID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, msgs)
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	msg, err := h.messageService.Send(r.Context(), userID, receiverID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, CodeValidationFailed)
		case errors.Is(err, domain.ErrUserNotFound):
			writeError(w, http.StatusNotFound, CodeNotFound)
		default:
			writeError(w, http.StatusInternalServerError, CodeUnavailable)
		}
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return
	}

	var req MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	friendID, err := uuid.Parse(req.FriendID)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	if err := h.messageService.MarkRead(r.Context(), userID, friendID); err != nil {
		writeError(w, http.StatusInternalServerError, CodeUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
