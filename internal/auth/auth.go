// Package auth provides the JWT token service the chat core uses to decode
// access tokens into a (user id, numeric token) pair.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenDuration defines the validity period for an issued token.
const tokenDuration = 24 * time.Hour

// AuthService issues and decodes HS256-signed tokens carrying a user id and
// the per-session numeric token used to detect stale or replayed tokens.
type AuthService struct {
	jwtSecret []byte
}

// NewAuthService creates and returns a new AuthService instance.
// It requires a non-empty JWT secret key.
func NewAuthService(secret string) (*AuthService, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	return &AuthService{jwtSecret: []byte(secret)}, nil
}

// CreateToken generates a signed token for the given user and numeric token.
func (s *AuthService) CreateToken(userID int, numToken int) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.Itoa(userID),
		"num": numToken,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// DecodeToken parses and validates a token string and unpacks the
// (user id, numeric token) pair stored in its claims. No I/O is performed.
func (s *AuthService) DecodeToken(tokenString string) (int, int, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the signing method is HMAC, as we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return 0, 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, 0, errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, 0, errors.New("token subject is missing")
	}
	userID, err := strconv.Atoi(sub)
	if err != nil || userID <= 0 {
		return 0, 0, errors.New("token subject is not a valid user id")
	}

	num, ok := claims["num"].(float64)
	if !ok {
		return 0, 0, errors.New("token numeric claim is missing")
	}

	return userID, int(num), nil
}
