package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workmate-hq/workmate_backend/models"
)

// OTPRepository persists one-time verification codes in the email_otps
// table. Rows are never deleted; verification marks them consumed.
type OTPRepository struct {
	db *pgxpool.Pool
}

func NewOTPRepository(db *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create inserts a new pending code for email. Prior pending codes for
// the same email stay valid until they expire or get consumed.
func (r *OTPRepository) Create(ctx context.Context, email, code string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO email_otps (id, email, code, expires_at, consumed, created_at)
		 VALUES ($1, $2, $3, $4, FALSE, NOW())`,
		uuid.NewString(), email, code, expiresAt,
	)
	return err
}

// HasPending reports whether email has at least one unconsumed, unexpired code
func (r *OTPRepository) HasPending(ctx context.Context, email string) (bool, error) {
	var pending bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM email_otps
			WHERE email = $1 AND NOT consumed AND expires_at >= NOW()
		 )`,
		email).Scan(&pending)
	if err != nil {
		return false, err
	}
	return pending, nil
}

// Consume marks the newest matching unconsumed, unexpired code as
// consumed and returns the row. The NOT consumed guard appears in the
// outer predicate as well as the subquery: under READ COMMITTED the
// subquery is evaluated once against the caller's snapshot, so a
// concurrent loser blocked on the row lock must fail the re-checked
// outer qual after the winner commits, not just the subquery.
func (r *OTPRepository) Consume(ctx context.Context, email, code string) (*models.EmailOTP, error) {
	var otp models.EmailOTP
	err := r.db.QueryRow(ctx,
		`UPDATE email_otps SET consumed = TRUE
		 WHERE id = (
			SELECT id FROM email_otps
			WHERE email = $1 AND code = $2 AND NOT consumed AND expires_at >= NOW()
			ORDER BY created_at DESC
			LIMIT 1
		 ) AND NOT consumed AND expires_at >= NOW()
		 RETURNING id, email, code, expires_at, consumed, created_at`,
		email, code).Scan(&otp.ID, &otp.Email, &otp.Code, &otp.ExpiresAt, &otp.Consumed, &otp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrInvalidOrExpiredCode
		}
		return nil, err
	}
	return &otp, nil
}
