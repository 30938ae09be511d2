// Package jwtx provides client-side inspection of Lectern access tokens.
//
// The client never verifies token signatures, that is the server's job. It
// only needs the registered claims (mainly "exp") to decide when a token is
// due for renewal, so everything here is built on an unverified parse.
package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed reports a token that could not be decoded or that carries no
// expiry claim. Callers treat such tokens as already expired.
var ErrMalformed = errors.New("jwtx: malformed token")

var parser = jwt.NewParser()

// ExpiresAt extracts the "exp" claim from an access token without verifying
// its signature. Tokens without an expiry claim are malformed as far as the
// client is concerned.
func ExpiresAt(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims

	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, ErrMalformed
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrMalformed
	}

	return claims.ExpiresAt.Time, nil
}

// Expired reports whether the token is expired at the given instant.
// Malformed tokens count as expired.
func Expired(token string, now time.Time) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		return true
	}
	return !now.Before(exp)
}

// Subject extracts the "sub" claim without verification. Returns an empty
// string for malformed tokens; useful for log enrichment only, never for
// authorization decisions.
func Subject(token string) string {
	var claims jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.Subject
}
