package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tobyshaw/otpgate/internal/database"
	"github.com/tobyshaw/otpgate/internal/models"
)

// TrustedDeviceRepository defines persistence for trusted-device tokens
type TrustedDeviceRepository interface {
	// Create inserts a device row. Returns models.ErrConflict when the token
	// collides with an existing one; callers retry with a fresh token.
	Create(ctx context.Context, device *models.TrustedDevice) error
	// GetByUserAndToken looks up by the exact (user, token) pair. The token
	// is a credential: no pattern matching, and user A's token never resolves
	// for user B.
	GetByUserAndToken(ctx context.Context, userID, token string) (*models.TrustedDevice, error)
	// DeleteExpired removes devices past their expiry. Housekeeping only;
	// correctness never depends on it because expiry is checked at query time.
	DeleteExpired(ctx context.Context) (int64, error)
}

type trustedDeviceRepoImpl struct {
	db *pgxpool.Pool
}

// NewTrustedDeviceRepository creates a new trusted device repository
func NewTrustedDeviceRepository(db *pgxpool.Pool) TrustedDeviceRepository {
	return &trustedDeviceRepoImpl{db: db}
}

func (r *trustedDeviceRepoImpl) Create(ctx context.Context, device *models.TrustedDevice) error {
	query := `
		INSERT INTO trusted_devices (user_id, device_label, token, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		device.UserID,
		device.DeviceLabel,
		device.Token,
		device.ExpiresAt,
	).Scan(&device.ID, &device.CreatedAt)

	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("failed to create trusted device: %w", err)
	}

	return nil
}

func (r *trustedDeviceRepoImpl) GetByUserAndToken(ctx context.Context, userID, token string) (*models.TrustedDevice, error) {
	device := &models.TrustedDevice{}

	query := `
		SELECT id, user_id, device_label, token, created_at, expires_at
		FROM trusted_devices
		WHERE user_id = $1 AND token = $2
	`

	err := r.db.QueryRow(ctx, query, userID, token).Scan(
		&device.ID,
		&device.UserID,
		&device.DeviceLabel,
		&device.Token,
		&device.CreatedAt,
		&device.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trusted device: %w", err)
	}

	return device, nil
}

func (r *trustedDeviceRepoImpl) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM trusted_devices WHERE expires_at <= NOW()`

	commandTag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired trusted devices: %w", err)
	}

	return commandTag.RowsAffected(), nil
}
