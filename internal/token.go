// Package sessiontoken issues and verifies the HMAC-signed bearer tokens
// that authenticate API requests.
package sessiontoken

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
)

const tokenLifetime = 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingUser  = errors.New("token carries no user id")
)

type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Issue creates a signed token for the given user id.
func (s *Signer) Issue(userID, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses a token string and returns the user id it was issued for.
func (s *Signer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.NewValidationError("unexpected signing method", jwt.ValidationErrorSignatureInvalid)
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrMissingUser
	}
	return sub, nil
}
