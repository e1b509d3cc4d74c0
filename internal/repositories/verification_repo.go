package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tobyshaw/otpgate/internal/models"
)

// OTPVerificationRepository defines persistence for per-user TOTP enrollments
type OTPVerificationRepository interface {
	// GetOrCreate returns the user's verification, inserting a row with
	// candidateCipher when absent. created reports whether this call inserted
	// it. Two concurrent first calls converge on one row: the loser of the
	// insert race reads the winner's secret.
	GetOrCreate(ctx context.Context, userID string, candidateCipher []byte) (v *models.OTPVerification, created bool, err error)
	GetByUserID(ctx context.Context, userID string) (*models.OTPVerification, error)
	MarkConfirmed(ctx context.Context, userID string) error
	ConfirmedExists(ctx context.Context, userID string) (bool, error)
}

type otpVerificationRepoImpl struct {
	db *pgxpool.Pool
}

// NewOTPVerificationRepository creates a new verification repository
func NewOTPVerificationRepository(db *pgxpool.Pool) OTPVerificationRepository {
	return &otpVerificationRepoImpl{db: db}
}

// GetOrCreate relies on the UNIQUE(user_id) constraint for atomic
// create-if-absent: ON CONFLICT DO NOTHING followed by a read.
func (r *otpVerificationRepoImpl) GetOrCreate(ctx context.Context, userID string, candidateCipher []byte) (*models.OTPVerification, bool, error) {
	insert := `
		INSERT INTO otp_verifications (user_id, secret_cipher)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING id, user_id, secret_cipher, confirmed, created_at
	`

	v := &models.OTPVerification{}
	err := r.db.QueryRow(ctx, insert, userID, candidateCipher).Scan(
		&v.ID, &v.UserID, &v.SecretCipher, &v.Confirmed, &v.CreatedAt,
	)
	if err == nil {
		return v, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create verification: %w", err)
	}

	// Conflict path: the row already exists
	existing, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *otpVerificationRepoImpl) GetByUserID(ctx context.Context, userID string) (*models.OTPVerification, error) {
	v := &models.OTPVerification{}

	query := `
		SELECT id, user_id, secret_cipher, confirmed, created_at
		FROM otp_verifications
		WHERE user_id = $1
	`

	err := r.db.QueryRow(ctx, query, userID).Scan(
		&v.ID, &v.UserID, &v.SecretCipher, &v.Confirmed, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}

	return v, nil
}

// MarkConfirmed flips confirmed to true. The flag is monotonic; this never
// resets it.
func (r *otpVerificationRepoImpl) MarkConfirmed(ctx context.Context, userID string) error {
	query := `
		UPDATE otp_verifications
		SET confirmed = TRUE
		WHERE user_id = $1
	`

	commandTag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to mark verification confirmed: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *otpVerificationRepoImpl) ConfirmedExists(ctx context.Context, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM otp_verifications
			WHERE user_id = $1 AND confirmed = TRUE
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check confirmed verification: %w", err)
	}

	return exists, nil
}
