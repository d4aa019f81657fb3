package domain

import "time"

// User represents a registered account. Accounts are immutable after
// signup; there are no update or delete routes.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
