package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// RoleAdmin is the role claim value allowed to manage gateway settings.
const RoleAdmin = "admin"

// ErrForbidden is returned when a valid token lacks the required role.
var ErrForbidden = errors.New("auth: role not permitted")

// TokenValidator validates the claims of a parsed admin token.
type TokenValidator struct {
	Issuer       string
	ClockSkew    time.Duration
	Algorithm    jwa.SignatureAlgorithm
	RequiredRole string
}

// Validate checks algorithm, issuer, expiry and role. A missing role claim
// fails when RequiredRole is set.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithRequiredClaim(jwt.SubjectKey),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if err := jwt.Validate(tok, options...); err != nil {
		return err
	}

	if v.RequiredRole == "" {
		return nil
	}
	if RoleOf(tok) != v.RequiredRole {
		return ErrForbidden
	}
	return nil
}

// RoleOf returns the string role claim of tok, or "".
func RoleOf(tok jwt.Token) string {
	raw, ok := tok.Get("role")
	if !ok {
		return ""
	}
	role, _ := raw.(string)
	return role
}
