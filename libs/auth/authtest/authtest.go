// Package authtest mints bearer tokens for tests. Real tokens are issued by
// the identity provider; the service only verifies them.
package authtest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/md-rashed-zaman/servicehub/libs/auth"
)

// Claims returns claims for userID expiring ttl from now.
func Claims(userID, role string, ttl time.Duration) auth.Claims {
	now := time.Now()
	return auth.Claims{Role: role, StandardClaims: jwt.StandardClaims{
		Subject:   userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}}
}

// Token signs an hour-long HS256 token for userID with secret.
func Token(t testing.TB, secret, userID, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims(userID, role, time.Hour)).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}
