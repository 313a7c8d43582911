package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. Session tokens authenticate API requests; registration
// tokens are short-lived claims minted around the invitation flow. A token
// minted for one purpose never validates for another.
const (
	PurposeSession      = "session"
	PurposeRegistration = "registration"
)

type Claims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

// TokenCodec encodes and decodes signed, time-limited claim sets. Tokens
// are self-contained; there is no revocation list, which is why Authorize
// re-reads the user row on every request.
type TokenCodec struct {
	secret []byte
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

func (c *TokenCodec) Mint(subjectID, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose: purpose,
	})
	return token.SignedString(c.secret)
}

// Decode verifies the signature and expiry and returns the subject ID.
// A token without an exp claim is rejected outright.
func (c *TokenCodec) Decode(tokenString, purpose string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", ErrInvalidOrExpiredToken
	}
	if !token.Valid || claims.Purpose != purpose || claims.Subject == "" {
		return "", ErrInvalidOrExpiredToken
	}

	return claims.Subject, nil
}

// ExpiresAt reports the expiry of a minted token without re-validating it;
// used to echo the expiry back to clients.
func (c *TokenCodec) ExpiresAt(tokenString string) (time.Time, error) {
	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	); err != nil {
		return time.Time{}, ErrInvalidOrExpiredToken
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no expiry")
	}
	return claims.ExpiresAt.Time, nil
}
