// Package models holds the server-side domain types shared by repositories,
// services and the HTTP layer.
package models

import "time"

// Account is a registered garage. PasswordHash is a bcrypt digest and is
// never serialised.
type Account struct {
	ID           int64     `json:"-"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GarageName   string    `json:"garageName"`
	CreatedAt    time.Time `json:"-"`
}
