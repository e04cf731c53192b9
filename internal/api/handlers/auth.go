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
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type VerifyRequest struct {
	AccessToken string `json:"accessToken"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
	}
}

func toAuthResponse(result *service.AuthResult) AuthResponse {
	return AuthResponse{
		User:         toUserResponse(result.User),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUsernameExists) || errors.Is(err, domain.ErrEmailExists) {
			writeError(w, http.StatusConflict, CodeConflict)
			return
		}
		writeError(w, http.StatusInternalServerError, CodeUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
			return
		}
		writeError(w, http.StatusInternalServerError, CodeUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// Refresh exchanges a refresh token for a new pair. The server side of the
// single-flight contract is plain: rotation is idempotent per epoch, the
// serialization happens in the client wrapper.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	result, err := h.authService.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			writeError(w, http.StatusUnauthorized, CodeTokenExpired)
			return
		}
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// Verify lets a client validate a re-hydrated access token at startup.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed)
		return
	}

	userID, err := h.authService.Verify(r.Context(), req.AccessToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			writeError(w, http.StatusUnauthorized, CodeTokenExpired)
			return
		}
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return
	}

	writeJSON(w, http.StatusOK, map[string]UserResponse{"user": toUserResponse(user)})
}

// Logout invalidates every outstanding token for the user by bumping their
// token epoch.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return
	}

	pathID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil || pathID != userID {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return
	}

	if err := h.authService.InvalidateAll(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, CodeUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
