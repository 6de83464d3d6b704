package auth

import (
	"errors"

	"github.com/golang-jwt/jwt"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// Claims is the marketplace access token payload. The subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

// Valid adds the subject requirement to the standard time checks.
func (c Claims) Valid() error {
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if c.Subject == "" {
		return errors.New("token has no subject")
	}
	return nil
}

// KnownRole reports whether the role claim is one the marketplace issues.
func (c Claims) KnownRole() bool {
	switch c.Role {
	case RoleCustomer, RoleProvider, RoleAdmin:
		return true
	}
	return false
}
