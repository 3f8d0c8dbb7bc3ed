// Package user defines the user entity shared by the storage and service
// layers.
package user

import "time"

// User is one row of the users table. PasswordHash holds a bcrypt hash and
// never leaves the server.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
