package utils

import "testing"

func TestSanitizeEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"user@example.com", "user@example.com", false},
		{"  USER@Example.COM  ", "user@example.com", false},
		{"jane.doe+tag@sub.example.co", "jane.doe+tag@sub.example.co", false},
		{"not-an-email", "", true},
		{"@example.com", "", true},
		{"user@", "", true},
		{"", "", true},
		{"user@example", "", true},
	}

	for _, tt := range tests {
		got, err := SanitizeEmail(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("SanitizeEmail(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("SanitizeEmail(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("SanitizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsValidOTPCode(t *testing.T) {
	valid := []string{"000000", "123456", "999999"}
	for _, code := range valid {
		if !IsValidOTPCode(code) {
			t.Errorf("expected %q to be valid", code)
		}
	}

	invalid := []string{"", "12345", "1234567", "abc123", "12 456", "12345x"}
	for _, code := range invalid {
		if IsValidOTPCode(code) {
			t.Errorf("expected %q to be invalid", code)
		}
	}
}

func TestEmailLocalPart(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"jane.doe@example.com", "jane.doe"},
		{"a@b.co", "a"},
		{"no-at-sign", "no-at-sign"},
	}
	for _, tt := range tests {
		if got := EmailLocalPart(tt.in); got != tt.want {
			t.Errorf("EmailLocalPart(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := SanitizeInput("  <script>alert(1)</script>  "); got == "<script>alert(1)</script>" {
		t.Error("HTML must be escaped")
	}
	if got := SanitizeInput("plain text"); got != "plain text" {
		t.Errorf("plain input must pass through, got %q", got)
	}
	if got := SanitizeInput("with\x00control"); got != "withcontrol" {
		t.Errorf("control characters must be stripped, got %q", got)
	}
}
