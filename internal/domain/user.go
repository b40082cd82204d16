package domain

import "time"

// User represents an authenticated account within the platform.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Locale       string
	FCMToken     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
