// Package service hosts the application services that sit between the HTTP
// layer and the data gateway.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/config"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

// Common auth errors.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrOffline              = errors.New("remote store unreachable")
	ErrEmailTaken           = errors.New("email already registered")
	ErrSessionAlreadyActive = errors.New("another session is already active")
)

// TokenType distinguishes student vs admin tokens.
type TokenType string

const (
	TokenTypeStudent TokenType = "student"
	TokenTypeAdmin   TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	Stream    string    `json:"stream,omitempty"` // Student only
}

// AuthService handles authentication, JWT, and session management.
// Password verification happens inside the remote store's authentication
// procedure; this service never sees a stored hash during login.
type AuthService struct {
	cfg *config.Config
	gw  gateway.Gateway
	rdb *redis.Client
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, gw gateway.Gateway, rdb *redis.Client) *AuthService {
	return &AuthService{cfg: cfg, gw: gw, rdb: rdb}
}

// Login verifies credentials against the remote store and issues a token.
// Connectivity is probed first so an offline device gets a clean offline
// error instead of a credential failure.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *gateway.Identity, error) {
	if !s.gw.CheckConnectivity(ctx) {
		return "", nil, ErrOffline
	}

	identity, err := s.gw.Authenticate(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrAuthentication):
			return "", nil, ErrInvalidCredentials
		case errors.Is(err, gateway.ErrConnectivity):
			return "", nil, ErrOffline
		default:
			return "", nil, fmt.Errorf("authenticate: %w", err)
		}
	}

	tokenType := TokenTypeStudent
	if identity.Role == string(model.RoleAdmin) {
		tokenType = TokenTypeAdmin
	}
	token, err := s.generateToken(ctx, identity, tokenType)
	if err != nil {
		return "", nil, err
	}
	return token, identity, nil
}

// Register creates a student account. The password hash is computed here
// and written through the gateway; login still goes through the remote
// verification procedure.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	if !s.gw.CheckConnectivity(ctx) {
		return nil, ErrOffline
	}

	existing, err := s.gw.Query(ctx, "users", gateway.Filters{"email": req.Email})
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:        uuid.New(),
		Name:      req.Name,
		Email:     req.Email,
		Role:      model.RoleStudent,
		Stream:    model.Stream(req.Stream),
		CreatedAt: time.Now().UTC(),
	}
	rec := gateway.Record{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"password_hash": string(hash),
		"role":          string(user.Role),
		"stream":        string(user.Stream),
		"created_at":    user.CreatedAt,
	}
	if err := s.gw.Upsert(ctx, "users", []gateway.Record{rec}, "email"); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// generateToken creates a signed JWT. Student tokens additionally register
// a single-device session in Redis; a second login while one is active is
// rejected until the session expires or is reset.
func (s *AuthService) generateToken(ctx context.Context, identity *gateway.Identity, tokenType TokenType) (string, error) {
	userID, err := uuid.Parse(identity.UserID)
	if err != nil {
		return "", fmt.Errorf("parse user id: %w", err)
	}
	jti := uuid.New().String()
	now := time.Now()

	if tokenType == TokenTypeStudent {
		sessionKey := config.CacheKey.UserSessionKey(identity.UserID)
		existing, err := s.rdb.Get(ctx, sessionKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("check session: %w", err)
		}
		if existing != "" {
			return "", ErrSessionAlreadyActive
		}
		if err := s.rdb.Set(ctx, sessionKey, jti, s.cfg.JWTExpiry).Err(); err != nil {
			return "", fmt.Errorf("store session: %w", err)
		}
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: tokenType,
		UserID:    userID,
		Name:      identity.Name,
		Stream:    identity.Stream,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateUserSession checks that the token's JTI matches the active
// session in Redis.
func (s *AuthService) ValidateUserSession(ctx context.Context, userID uuid.UUID, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.UserSessionKey(userID.String())).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errors.New("no active session")
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return errors.New("session invalidated")
	}
	return nil
}

// ResetUserSession removes a user's session from Redis, allowing a new login.
func (s *AuthService) ResetUserSession(ctx context.Context, userID uuid.UUID) error {
	return s.rdb.Del(ctx, config.CacheKey.UserSessionKey(userID.String())).Err()
}
