package models

import "time"

// User is an account row in the backend database. PasswordHash is a
// bcrypt hash, never the plain password.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	LastLogin    *time.Time
}
