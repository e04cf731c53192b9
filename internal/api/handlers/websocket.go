package handlers

import (
	"net/http"

	ws "github.com/gorilla/websocket"
	"github.com/marco/chatlink/internal/service"
	"github.com/marco/chatlink/internal/websocket"
	"go.uber.org/zap"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub         *websocket.Hub
	authService *service.AuthService
	log         *zap.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, authService *service.AuthService, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		authService: authService,
		log:         log,
	}
}

func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return
	}

	userID, err := h.authService.Verify(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, userID, h.log)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
