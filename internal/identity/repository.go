package identity

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound = errors.New("user profile not found")
	ErrEmailTaken   = errors.New("email already registered to another account")
	ErrInvalidInput = errors.New("invalid input")
)

type Repository interface {
	GetByFirebaseUID(ctx context.Context, uid string) (*User, error)

	// Upsert inserts or updates the user keyed by FirebaseUID. The
	// boolean reports whether a new row was created.
	Upsert(ctx context.Context, u *User) (*User, bool, error)
}
