package session

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// expiryOf returns the exp claim of a JWT credential without verifying its
// signature; the backend owns the key. Opaque credentials have no expiry.
func expiryOf(rawToken string) time.Time {
	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
