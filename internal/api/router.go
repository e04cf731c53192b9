package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/marco/chatlink/internal/api/handlers"
	"github.com/marco/chatlink/internal/api/middleware"
	"github.com/marco/chatlink/internal/config"
	"github.com/marco/chatlink/internal/metrics"
	"github.com/marco/chatlink/internal/service"
	"github.com/marco/chatlink/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func NewRouter(
	services *service.Services,
	hub *websocket.Hub,
	registry *websocket.Registry,
	cfg *config.Config,
	gatherer prometheus.Gatherer,
	log *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Logging(log))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)
	r.Use(middleware.NewRateLimit(cfg.RateLimitRPM, cfg.AuthRateLimitRPM).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	authHandler := handlers.NewAuthHandler(services.Auth)
	friendHandler := handlers.NewFriendHandler(services.Friend, registry)
	messageHandler := handlers.NewMessageHandler(services.Message)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth, log)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh-token", authHandler.Refresh)
		r.Post("/verify-token", authHandler.Verify)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))
			r.Post("/logout/{id}", authHandler.Logout)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(services.Auth))

		r.Get("/friends/{id}", friendHandler.List)

		r.Route("/friend-requests", func(r chi.Router) {
			r.Post("/", friendHandler.SendRequest)
			r.Get("/pending/{id}", friendHandler.ListPending)
			r.Post("/{id}/respond", friendHandler.Respond)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/{id}", messageHandler.Conversation)
			r.Post("/", messageHandler.Send)
			r.Post("/read", messageHandler.MarkRead)
		})
	})

	// WebSocket endpoint authenticates via the token query parameter since
	// browser websocket clients cannot set headers.
	r.Get("/ws", wsHandler.Handle)

	return r
}
