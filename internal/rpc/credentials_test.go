package rpc

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestCredentialsApplyPrefersBearerToken(t *testing.T) {
	c := &Credentials{BasicUser: "CP001", BasicPass: "secret", Token: "abc.def.ghi"}
	header := http.Header{}
	c.Apply(header)
	if got := header.Get("Authorization"); got != "Bearer abc.def.ghi" {
		t.Errorf("expected a bearer header, got %q", got)
	}
}

func TestCredentialsApplyFallsBackToBasicAuth(t *testing.T) {
	c := &Credentials{BasicUser: "CP001", BasicPass: "secret"}
	header := http.Header{}
	c.Apply(header)
	if got := header.Get("Authorization"); got == "" || got[:6] != "Basic " {
		t.Errorf("expected a basic auth header, got %q", got)
	}
}

func TestTokenExpiredWithNoToken(t *testing.T) {
	c := &Credentials{}
	if !c.TokenExpired(time.Now()) {
		t.Error("a credentials value with no token should report expired")
	}
}

func TestTokenExpiredReadsExpClaim(t *testing.T) {
	now := time.Now()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("whatever-the-backend-used"))
	if err != nil {
		t.Fatal(err)
	}

	c := &Credentials{Token: signed}
	if c.TokenExpired(now) {
		t.Error("a token expiring an hour from now should not report expired yet")
	}
	if !c.TokenExpired(now.Add(2 * time.Hour)) {
		t.Error("a token should report expired once its exp claim has passed")
	}
}
