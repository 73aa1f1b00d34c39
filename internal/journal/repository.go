package journal

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrEntryNotFound = errors.New("journal entry not found")
	ErrNotOwner      = errors.New("user not authorized for this entry")
	ErrInvalidInput  = errors.New("invalid input")
)

type Repository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Entry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	Create(ctx context.Context, e *Entry) (*Entry, error)
	Update(ctx context.Context, e *Entry) (*Entry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
