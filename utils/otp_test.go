package utils

import (
	"context"
	"strconv"
	"testing"
)

func TestGenerateOTPRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("non-numeric code %q", code)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code out of range: %d", n)
		}
	}
}

func TestGenerateOTPVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatal(err)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("codes never vary")
	}
}

func TestValidateOTPAttemptsDisabledWithoutRedis(t *testing.T) {
	if err := ValidateOTPAttempts(context.Background(), "x@example.com", nil); err != nil {
		t.Fatalf("nil client must disable limiting, got %v", err)
	}
}
