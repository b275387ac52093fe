package domain

import "time"

// User is a registered account. The password hash is deliberately excluded
// from JSON so it can never appear in a response payload.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
