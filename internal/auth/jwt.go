package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Token scopes. Session tokens come from login, API key tokens from
// POST /auth/key; both authenticate identically against protected
// endpoints.
const (
	ScopeSession = "session"
	ScopeAPIKey  = "api_key"
)

const (
	SessionTokenTTL = 24 * time.Hour
	APIKeyTokenTTL  = 365 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the validated content of a bearer token
type Claims struct {
	AccountID int64
	Scope     string
}

// GenerateToken creates a signed HS256 token for an account with the
// given scope and lifetime
func GenerateToken(secret []byte, accountID int64, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   accountID,
		"scope": scope,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// GenerateSessionToken creates a short-lived login token
func GenerateSessionToken(secret []byte, accountID int64) (string, error) {
	return GenerateToken(secret, accountID, ScopeSession, SessionTokenTTL)
}

// GenerateAPIKeyToken creates a long-lived API key token
func GenerateAPIKeyToken(secret []byte, accountID int64) (string, error) {
	return GenerateToken(secret, accountID, ScopeAPIKey, APIKeyTokenTTL)
}

// ValidateToken verifies a bearer token and extracts its claims
func ValidateToken(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	// Safe type assertions; JSON numbers decode as float64
	sub, ok := mapClaims["sub"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}
	scope, ok := mapClaims["scope"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	return &Claims{
		AccountID: int64(sub),
		Scope:     scope,
	}, nil
}
