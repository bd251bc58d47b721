// Package jwtclaims reads expiry and identity claims out of backend-issued tokens.
// Signatures are never verified here; the backend remains the authority and the
// claims only decide whether a stored token is worth presenting again.
package jwtclaims

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/target/kb-assistant-web/internal/ports"
)

var _ ports.TokenInspector = Inspector{}

// Inspector implements ports.TokenInspector with an unverified JWT parse.
type Inspector struct{}

type claims struct {
	jwt.RegisteredClaims
	Username          string `json:"username,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
}

// Inspect returns the token's claims. Opaque tokens yield ok=false.
func (Inspector) Inspect(token string) (ports.TokenClaims, bool) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return ports.TokenClaims{}, false
	}

	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return ports.TokenClaims{}, false
	}

	out := ports.TokenClaims{
		Subject:  c.Subject,
		Username: firstNonEmpty(c.Username, c.PreferredUsername, c.Subject),
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
