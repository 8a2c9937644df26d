package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Authenticator interface {
	GenerateToken(userID string, ttl time.Duration) (string, error)
	ValidateToken(token string) (*jwt.Token, error)
	// Subject returns the user id carried by a validated token.
	Subject(token *jwt.Token) (string, error)
}
