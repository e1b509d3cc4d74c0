package models

import "time"

// OTPVerification holds a user's TOTP enrollment, one row per user.
// SecretCipher is the AES-256-GCM sealed secret (nonce-prefixed); the
// plaintext base32 secret never touches the database.
type OTPVerification struct {
	ID           string
	UserID       string
	SecretCipher []byte
	Confirmed    bool
	CreatedAt    time.Time
}
