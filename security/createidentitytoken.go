package security

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer   = "punchsync"
	Audience = "punchsync-local"
)

// Operator is a person or device allowed to use the local API.
type Operator struct {
	Id       int
	UserName string
	Provider string
	Email    string
}

type Identity struct {
	ID         int    `json:"nameid"`
	UniqueName string `json:"unique_name"`
	Email      string `json:"email"`
	SID        string `json:"sid"`
	Provider   string `json:"provider"`
}

type IdentityClaims struct {
	Identity
	jwt.RegisteredClaims
}

// DecodeSecret turns the configured base64 signing secret into key bytes.
func DecodeSecret(base64Secret string) ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, errors.New("empty signing secret")
	}
	return secret, nil
}

func CreateIdentityToken(operator *Operator, base64Secret string, expiresIn time.Duration) (string, error) {
	secretBytes, err := DecodeSecret(base64Secret)
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := IdentityClaims{
		Identity: Identity{
			ID:         operator.Id,
			UniqueName: operator.UserName,
			Email:      operator.Email,
			SID:        uuid.NewString(),
			Provider:   operator.Provider,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  []string{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}

	// Use HS256 signing method (symmetric key)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secretBytes)
}

// ParseIdentityToken verifies signature, expiry, issuer and audience.
func ParseIdentityToken(tokenStr string, secret []byte) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}
