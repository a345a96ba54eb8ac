package model

import "time"

// User is an account holder. Preferences, accounts, and transactions all
// hang off the user id.
type User struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
}
