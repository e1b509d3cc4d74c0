package models

import "time"

// TrustedDevice is a browser the user chose to trust after a successful
// verification. Token is the bearer credential stored in the client cookie;
// rows are immutable after creation and expire rather than renew.
type TrustedDevice struct {
	ID          string
	UserID      string
	DeviceLabel string
	Token       string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// IsActive reports whether the device still grants a verification bypass.
// Kept as a pure predicate so expiry can be tested without a clock or a
// database filter.
func (d *TrustedDevice) IsActive(now time.Time) bool {
	return now.Before(d.ExpiresAt)
}
