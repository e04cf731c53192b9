package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/config"
	"github.com/marco/chatlink/internal/domain"
	"github.com/marco/chatlink/internal/metrics"
	"github.com/marco/chatlink/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// AuthService owns the token lifecycle: issuing, verification, rotation,
// and revocation. Tokens are never persisted; validity is signature, expiry,
// and the epoch claim matching the user's current token epoch. Bumping the
// epoch kills every outstanding token without a blocklist.
type AuthService struct {
	userRepo  repository.UserRepository
	cfg       *config.Config
	collector *metrics.Collector
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config, collector *metrics.Collector) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		cfg:       cfg,
		collector: collector,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if existing, err := s.userRepo.GetByUsername(ctx, input.Username); err == nil && existing != nil {
		return nil, domain.ErrUsernameExists
	}
	if existing, err := s.userRepo.GetByEmail(ctx, input.Email); err == nil && existing != nil {
		return nil, domain.ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		TokenEpoch:   0,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issueTokens(user)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issueTokens(user)
}

// issueTokens stamps both tokens with the user's current token epoch.
func (s *AuthService) issueTokens(user *domain.User) (*AuthResult, error) {
	accessToken, err := s.signToken(user, tokenTypeAccess, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.signToken(user, tokenTypeRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AuthService) signToken(user *domain.User, tokenType string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"epoch": user.TokenEpoch,
		"typ":   tokenType,
		"exp":   time.Now().Add(ttl).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// Verify checks an access token and returns the user it belongs to. An
// expired signature maps to ErrTokenExpired (retryable via rotation); every
// other failure, including an epoch mismatch after a forced logout, maps to
// ErrInvalidToken.
func (s *AuthService) Verify(ctx context.Context, tokenString string) (uuid.UUID, error) {
	return s.verifyToken(ctx, tokenString, tokenTypeAccess)
}

// Rotate exchanges a valid refresh token for a fresh token pair. The new
// tokens carry the same epoch; the bump is reserved for forced logout.
func (s *AuthService) Rotate(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, err := s.verifyToken(ctx, refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	result, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	if s.collector != nil {
		s.collector.RecordTokenRotation()
	}
	return result, nil
}

// InvalidateAll bumps the user's token epoch, which immediately invalidates
// every previously issued access and refresh token, expired or not.
func (s *AuthService) InvalidateAll(ctx context.Context, userID uuid.UUID) error {
	return s.userRepo.BumpTokenEpoch(ctx, userID)
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *AuthService) verifyToken(ctx context.Context, tokenString, wantType string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, domain.ErrTokenExpired
		}
		return uuid.Nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, domain.ErrInvalidToken
	}

	typ, _ := claims["typ"].(string)
	if typ != wantType {
		return uuid.Nil, domain.ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}

	epochClaim, ok := claims["epoch"].(float64)
	if !ok {
		return uuid.Nil, domain.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}

	// Stale epoch means the user forced a logout after this token was
	// minted; reject even if the token is not technically expired.
	if int(epochClaim) != user.TokenEpoch {
		return uuid.Nil, domain.ErrInvalidToken
	}

	return userID, nil
}
