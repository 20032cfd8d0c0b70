package security

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"

	"github.com/workmate-hq/workmate_backend/models"
)

// bcrypt cost used for interactive login
const hashCost = 12

// HashPassword hashes a plaintext password with bcrypt. The result encodes
// algorithm, cost and salt, so verification needs no side state.
func HashPassword(password string) (string, error) {
	if len(password) < 6 {
		return "", models.ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. Malformed or empty
// inputs simply return false.
func CheckPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateSecureToken generates a random URL-safe token
func GenerateSecureToken() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
