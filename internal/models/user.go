package models

import "time"

// User is an administrative account. The gate only cares about identity;
// authentication itself happens at login and travels in the session cookie.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	IsStaff      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
