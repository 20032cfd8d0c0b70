// utils/otp.go
package utils

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/workmate-hq/workmate_backend/models"
)

// OTPValidity is how long an issued code stays verifiable
const OTPValidity = 10 * time.Minute

// GenerateOTP generates a 6-digit numeric code, uniform over 100000-999999
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// ValidateOTPAttempts enforces the per-email verification attempt limit.
// A nil redis client disables limiting.
func ValidateOTPAttempts(ctx context.Context, email string, rdb *redis.Client) error {
	if rdb == nil {
		return nil
	}

	key := "otp_attempts:" + email
	attempts, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	// Set expiry if first attempt
	if attempts == 1 {
		rdb.Expire(ctx, key, 1*time.Hour)
	}

	// Limit to 5 attempts per hour
	if attempts > 5 {
		return models.ErrTooManyOTPAttempts
	}

	return nil
}
