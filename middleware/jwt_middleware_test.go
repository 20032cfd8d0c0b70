package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
)

const testSecret = "unit-test-secret"

func mintToken(t *testing.T, claims SessionClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestParseSessionToken(t *testing.T) {
	signed := mintToken(t, SessionClaims{
		Email: "u@example.com",
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
	}, testSecret)

	claims, err := ParseSessionToken(signed, testSecret)
	if err != nil {
		t.Fatalf("ParseSessionToken: %v", err)
	}
	if claims.Email != "u@example.com" {
		t.Errorf("expected email claim, got %q", claims.Email)
	}
}

func TestParseSessionTokenExpired(t *testing.T) {
	signed := mintToken(t, SessionClaims{
		Email: "u@example.com",
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(-time.Hour).Unix(),
		},
	}, testSecret)

	if _, err := ParseSessionToken(signed, testSecret); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestParseSessionTokenWrongSecret(t *testing.T) {
	signed := mintToken(t, SessionClaims{
		Email: "u@example.com",
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
	}, "some-other-secret")

	if _, err := ParseSessionToken(signed, testSecret); err == nil {
		t.Fatal("token signed with the wrong secret must be rejected")
	}
}

func TestParseSessionTokenMissingEmail(t *testing.T) {
	signed := mintToken(t, SessionClaims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
	}, testSecret)

	if _, err := ParseSessionToken(signed, testSecret); err == nil {
		t.Fatal("token without an email claim must be rejected")
	}
}

func TestParseSessionTokenGarbage(t *testing.T) {
	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := ParseSessionToken(tok, testSecret); err == nil {
			t.Errorf("garbage token %q must be rejected", tok)
		}
	}
}
