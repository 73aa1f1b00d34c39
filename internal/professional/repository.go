package professional

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrProfileNotFound = errors.New("professional profile not found")
	ErrForbidden       = errors.New("only professionals can manage a professional profile")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmailTaken      = errors.New("email already used by another professional profile")
)

type Repository interface {
	GetByFirebaseUID(ctx context.Context, uid string) (*Profile, error)
	List(ctx context.Context) ([]Profile, error)

	// Upsert writes profile fields only; slots are untouched.
	Upsert(ctx context.Context, p *Profile) (*Profile, bool, error)

	// ReplaceSlots makes slots the complete availability of the
	// professional. Rows whose id is kept retain their booking state.
	ReplaceSlots(ctx context.Context, professionalID uuid.UUID, slots []Slot) ([]Slot, error)
}
