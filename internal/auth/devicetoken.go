package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// DeviceTokenBytes is the entropy of a trusted-device token (256 bits).
const DeviceTokenBytes = 32

// GenerateDeviceToken returns an opaque bearer token for a trusted device.
// Uniqueness is enforced by the storage layer; a collision is retried there.
func GenerateDeviceToken() (string, error) {
	bytes := make([]byte, DeviceTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate device token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
