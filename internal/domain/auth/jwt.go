// Package auth issues and validates the bearer tokens that identify the
// actor (cashier or manager) behind every sale operation.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "retailpos/internal/core/context"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		Issuer:         "retailpos",
		AccessTokenTTL: 12 * time.Hour,
	}
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string   `json:"uid"`
	Name     string   `json:"name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles"`
	DeviceID string   `json:"dev,omitempty"`
}

// Actor is the identity a token is issued for.
type Actor struct {
	UserID   string
	Name     string
	Email    string
	Roles    []string
	DeviceID string
}

var (
	ErrMissingActor = errors.New("actor id is required")
	ErrUnknownRole  = errors.New("unknown role")
)

var knownRoles = []string{appctx.RoleCashier, appctx.RoleManager}

// JWTService handles JWT operations.
type JWTService struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	if config.AccessTokenTTL <= 0 {
		config.AccessTokenTTL = 12 * time.Hour
	}
	return &JWTService{config: config, now: time.Now}
}

// GenerateAccessToken issues a signed token for actor.
func (s *JWTService) GenerateAccessToken(actor Actor) (string, time.Time, error) {
	if actor.UserID == "" {
		return "", time.Time{}, ErrMissingActor
	}
	for _, r := range actor.Roles {
		if !slices.Contains(knownRoles, r) {
			return "", time.Time{}, fmt.Errorf("%w: %s", ErrUnknownRole, r)
		}
	}

	now := s.now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   actor.UserID,
		Name:     actor.Name,
		Email:    actor.Email,
		Roles:    actor.Roles,
		DeviceID: actor.DeviceID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates JWT and returns user context.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserID == "" {
		return nil, ErrMissingActor
	}

	return &appctx.UserContext{
		UserID:    claims.UserID,
		Name:      claims.Name,
		Email:     claims.Email,
		Roles:     claims.Roles,
		DeviceID:  claims.DeviceID,
		SessionID: claims.ID,
	}, nil
}
