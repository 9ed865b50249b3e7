// Package auth holds the credential primitives of the server: the session
// token codec (HS256 JWT) and the bcrypt password hasher.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/garagebook/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claim is the identity carried by a session token.
type Claim struct {
	AccountID  int64
	Email      string
	GarageName string
}

// tokenClaims is the JWT payload: registered claims plus the session claim.
type tokenClaims struct {
	jwt.RegisteredClaims
	AccountID  int64  `json:"account_id"`
	Email      string `json:"email"`
	GarageName string `json:"garage_name"`
}

// TokenCodec issues and verifies session tokens signed with a server-held
// secret. Changing the secret invalidates every token issued before.
type TokenCodec struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewTokenCodec returns a codec signing with secret. A validity of zero
// issues tokens without an expiry.
func NewTokenCodec(secret []byte, validity time.Duration) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	return &TokenCodec{secret: secret, validity: validity, now: time.Now}, nil
}

// Issue signs claim into a compact JWT.
func (c *TokenCodec) Issue(claim Claim) (string, error) {
	now := c.now()
	registered := jwt.RegisteredClaims{
		IssuedAt: jwt.NewNumericDate(now),
	}
	if c.validity > 0 {
		registered.ExpiresAt = jwt.NewNumericDate(now.Add(c.validity))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: registered,
		AccountID:        claim.AccountID,
		Email:            claim.Email,
		GarageName:       claim.GarageName,
	})

	s, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Verify checks the signature and expiry of tokenString and returns its claim.
// Expired tokens yield common.ErrTokenExpired; anything else that fails
// yields common.ErrInvalidToken.
func (c *TokenCodec) Verify(tokenString string) (Claim, error) {
	claims := &tokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claim{}, common.ErrTokenExpired
		}
		return Claim{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.AccountID <= 0 {
		return Claim{}, common.ErrInvalidToken
	}

	return Claim{AccountID: claims.AccountID, Email: claims.Email, GarageName: claims.GarageName}, nil
}
