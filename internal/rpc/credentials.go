package rpc

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials carries whatever the backend needs to authenticate the
// websocket handshake: HTTP Basic Auth (charge point id + password, the
// OCPP 1.6 security profile 1/2 convention) and/or a bearer token
// issued out of band. Grounded on the teacher's token_service.go, but
// the charge point only ever inspects a token's claims — it never
// holds the signing secret needed to issue or verify one.
type Credentials struct {
	BasicUser string
	BasicPass string
	Token     string
}

// Apply sets the Authorization header the handshake request should
// carry.
func (c *Credentials) Apply(header http.Header) {
	if c == nil {
		return
	}
	if c.Token != "" {
		header.Set("Authorization", "Bearer "+c.Token)
		return
	}
	if c.BasicUser != "" {
		creds := c.BasicUser + ":" + c.BasicPass
		header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(creds)))
	}
}

// TokenExpired reports whether the held bearer token's exp claim has
// passed, or true if there is no token or it cannot be parsed. The
// charge point never verifies the signature — it has no way to, since
// the signing secret lives only on the backend — it reads the claims
// only to decide when to ask an operator/provisioning flow for a fresh
// token, the same RegisteredClaims shape the teacher's TokenService
// issues.
func (c *Credentials) TokenExpired(now time.Time) bool {
	if c == nil || c.Token == "" {
		return true
	}
	claims := &jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(c.Token, claims)
	if err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return now.After(exp.Time)
}
