// Package auth verifies identities: JWT access/refresh tokens, password
// hashing and the password-reset token store.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/clock"
	"github.com/tolga/reserva/internal/model"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the payload of both token types.
type Claims struct {
	UserID    uint       `json:"userId"`
	Role      model.Role `json:"role"`
	TokenType string     `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is the response of login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// TokenManager issues and verifies HS256 bearer tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clock.Clock
}

// NewTokenManager creates a TokenManager. TTL defaults are 15 minutes for
// access and 7 days for refresh tokens.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration, clk clock.Clock) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      clk,
	}
}

// IssuePair mints a fresh access/refresh token pair for the user.
func (m *TokenManager) IssuePair(userID uint, role model.Role) (*TokenPair, error) {
	now := m.clock.Now()

	access, err := m.sign(userID, role, TokenTypeAccess, now, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(userID, role, TokenTypeRefresh, now, m.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(m.accessTTL.Seconds()),
	}, nil
}

func (m *TokenManager) sign(userID uint, role model.Role, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:    userID,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// Verify parses and validates a token of the expected type.
func (m *TokenManager) Verify(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.Unauthenticated("token expired")
		}
		return nil, apperror.Unauthenticated("invalid token")
	}
	if !token.Valid {
		return nil, apperror.Unauthenticated("invalid token")
	}
	if claims.TokenType != wantType {
		return nil, apperror.Newf(apperror.KindUnauthenticated, "expected %s token", wantType)
	}
	return claims, nil
}

// Refresh validates a refresh token and rotates the pair. Both tokens are
// replaced; the old refresh token should be discarded by the client.
func (m *TokenManager) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := m.Verify(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return m.IssuePair(claims.UserID, claims.Role)
}
