package security

import (
	"errors"
	"strings"
	"testing"

	"github.com/workmate-hq/workmate_backend/models"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("expected a bcrypt hash, got %q", hash)
	}

	if !CheckPassword("correct horse", hash) {
		t.Error("correct password must verify")
	}
	if CheckPassword("wrong horse", hash) {
		t.Error("wrong password must not verify")
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	_, err := HashPassword("12345")
	if !errors.Is(err, models.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestHashPasswordSalted(t *testing.T) {
	h1, err := HashPassword("same password")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashPassword("same password")
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password must differ")
	}
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Error("malformed hash must not verify")
	}
	if CheckPassword("anything", "") {
		t.Error("empty hash must not verify")
	}
	if CheckPassword("", "$2a$12$abcdefghijklmnopqrstuv") {
		t.Error("empty password must not verify")
	}
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken()
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateSecureToken()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("tokens must be unique")
	}
	if len(a) == 0 {
		t.Error("token must not be empty")
	}
}
