package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenExpired = errors.New("token expired")

// CheckExpiry looks at the exp claim of a JWT-shaped token without verifying
// its signature; the chores API owns the signing key. Opaque tokens and JWTs
// without exp pass.
func CheckExpiry(tokenString string, now time.Time) error {
	if tokenString == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if !now.Before(exp.Time) {
		return ErrTokenExpired
	}
	return nil
}
