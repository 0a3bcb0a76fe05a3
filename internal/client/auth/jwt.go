// Package auth reads the identity the remote issued to this device out of
// its access token. The owner id of every record is the token subject.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/taxiledger/internal/common"
)

// Claims are the access token claims the client cares about.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// UserID is the token subject.
func (c Claims) UserID() string { return c.Subject }

// GenerateToken issues an HS256 token for userID. The CLI uses it for
// local development logins; production tokens come from the remote.
func GenerateToken(userID, email string, secret []byte, validity time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Email: email,
	})
	return token.SignedString(secret)
}

// ParseToken validates tokenString at time now. With an empty secret the
// signature cannot be checked and only the claims are validated.
func ParseToken(tokenString string, secret []byte, now time.Time) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)

	var err error
	if len(secret) == 0 {
		_, _, err = parser.ParseUnverified(tokenString, claims)
		if err == nil {
			err = jwt.NewValidator(
				jwt.WithTimeFunc(func() time.Time { return now }),
				jwt.WithExpirationRequired(),
			).Validate(claims)
		}
	} else {
		_, err = parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		})
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, common.ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}
	return claims, nil
}
