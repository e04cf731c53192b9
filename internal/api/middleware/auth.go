package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/domain"
	"github.com/marco/chatlink/internal/service"
)

type contextKey string

const UserIDKey contextKey = "userID"

// Auth validates the bearer access token. An expired token gets the
// TokenExpired body, which tells the client wrapper to rotate and retry
// once; every other failure is a plain Unauthenticated.
func Auth(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, "Unauthenticated")
				return
			}

			userID, err := authService.Verify(r.Context(), parts[1])
			if err != nil {
				if errors.Is(err, domain.ErrTokenExpired) {
					unauthorized(w, "TokenExpired")
					return
				}
				unauthorized(w, "Unauthenticated")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

func unauthorized(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": code})
}
