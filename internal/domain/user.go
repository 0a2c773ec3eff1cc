package domain

import (
	"context"
	"time"
)

// User is an app account.
type User struct {
	Username     string    `json:"username" bson:"_id"`
	DisplayName  string    `json:"display_name" bson:"display_name"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// UserRepository persists accounts. Create fails with ErrUserExists on a
// duplicate username; GetUser returns ErrUserNotFound.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, username string) (*User, error)
}
