package professional

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elumia/wellness-api/internal/identity"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "professional").Logger()}
}

// RegisterProfile creates or updates the caller's professional profile.
// When availability is supplied it replaces the slot list exactly like
// SetAvailability.
func (s *Service) RegisterProfile(ctx context.Context, user *identity.User, in ProfileInput) (*Profile, bool, error) {
	if !user.Role.IsProfessional() {
		return nil, false, ErrForbidden
	}

	name := strings.TrimSpace(in.Name)
	specialty := Specialty(strings.TrimSpace(in.Specialty))
	if name == "" || specialty == "" {
		return nil, false, fmt.Errorf("%w: name and specialty are required", ErrInvalidInput)
	}
	if !specialty.Valid() {
		return nil, false, fmt.Errorf("%w: unknown specialty %q", ErrInvalidInput, in.Specialty)
	}
	other := strings.TrimSpace(in.OtherSpecialty)
	if specialty == SpecialtyOther && other == "" {
		return nil, false, fmt.Errorf("%w: otherSpecialty is required when specialty is other", ErrInvalidInput)
	}
	if specialty != SpecialtyOther {
		other = ""
	}

	p := &Profile{
		UserID:            user.ID,
		FirebaseUID:       user.FirebaseUID,
		Name:              name,
		Email:             user.Email,
		Specialty:         specialty,
		OtherSpecialty:    other,
		Bio:               strings.TrimSpace(in.Bio),
		ContactPhone:      strings.TrimSpace(in.ContactPhone),
		ProfilePictureURL: strings.TrimSpace(in.ProfilePictureURL),
	}

	// blank optional fields keep their stored values on update
	existing, err := s.repo.GetByFirebaseUID(ctx, user.FirebaseUID)
	switch {
	case err == nil:
		p.Bio = firstNonEmpty(p.Bio, existing.Bio)
		p.ContactPhone = firstNonEmpty(p.ContactPhone, existing.ContactPhone)
		p.ProfilePictureURL = firstNonEmpty(p.ProfilePictureURL, existing.ProfilePictureURL)
	case errors.Is(err, ErrProfileNotFound):
	default:
		return nil, false, fmt.Errorf("load profile: %w", err)
	}

	var slots []Slot
	if in.Availability != nil {
		var current []Slot
		if existing != nil {
			current = existing.Slots
		}
		slots, err = resolveSlots(current, in.Availability)
		if err != nil {
			return nil, false, err
		}
	}

	stored, created, err := s.repo.Upsert(ctx, p)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("upsert profile: %w", err)
	}

	if slots != nil {
		stored.Slots, err = s.repo.ReplaceSlots(ctx, stored.ID, slots)
		if err != nil {
			return nil, false, fmt.Errorf("replace slots: %w", err)
		}
	}

	s.log.Info().
		Str("firebase_uid", user.FirebaseUID).
		Bool("created", created).
		Msg("professional profile saved")

	return stored, created, nil
}

func (s *Service) GetMine(ctx context.Context, user *identity.User) (*Profile, error) {
	if !user.Role.IsProfessional() {
		return nil, ErrForbidden
	}
	return s.GetByFirebaseUID(ctx, user.FirebaseUID)
}

func (s *Service) GetByFirebaseUID(ctx context.Context, uid string) (*Profile, error) {
	p, err := s.repo.GetByFirebaseUID(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

// List returns every profile with booking-sensitive fields removed.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	out := make([]Profile, len(profiles))
	for i, p := range profiles {
		out[i] = p.Public()
	}
	return out, nil
}

func (s *Service) Availability(ctx context.Context, uid string) ([]Slot, error) {
	p, err := s.GetByFirebaseUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return p.Public().Slots, nil
}

// SetAvailability overwrites the whole slot collection. Slots omitted
// from the list are deleted even if booked; appointments pointing at
// them keep their denormalised date/time.
func (s *Service) SetAvailability(ctx context.Context, user *identity.User, in []SlotInput) (*Profile, error) {
	if !user.Role.CanManageAvailability() {
		return nil, ErrForbidden
	}
	if in == nil {
		return nil, fmt.Errorf("%w: availability must be an array", ErrInvalidInput)
	}

	p, err := s.GetByFirebaseUID(ctx, user.FirebaseUID)
	if err != nil {
		return nil, err
	}

	slots, err := resolveSlots(p.Slots, in)
	if err != nil {
		return nil, err
	}

	dropped := droppedBookedSlots(p.Slots, slots)
	if len(dropped) > 0 {
		s.log.Warn().
			Str("firebase_uid", user.FirebaseUID).
			Strs("slot_ids", dropped).
			Msg("availability replace removes booked slots")
	}

	p.Slots, err = s.repo.ReplaceSlots(ctx, p.ID, slots)
	if err != nil {
		return nil, fmt.Errorf("replace slots: %w", err)
	}
	return p, nil
}

// resolveSlots validates the submitted entries and assigns identities.
// An entry keeps its id only if the professional already owns that slot.
func resolveSlots(current []Slot, in []SlotInput) ([]Slot, error) {
	owned := make(map[uuid.UUID]Slot, len(current))
	for _, s := range current {
		owned[s.ID] = s
	}

	out := make([]Slot, 0, len(in))
	seen := make(map[uuid.UUID]bool, len(in))
	for i, entry := range in {
		date, err := ParseDate(entry.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: slot %d: %v", ErrInvalidInput, i, err)
		}
		t := strings.TrimSpace(entry.Time)
		if t == "" {
			return nil, fmt.Errorf("%w: slot %d: time is required", ErrInvalidInput, i)
		}

		slot := Slot{ID: uuid.New(), Date: date, Time: t}
		if entry.ID != nil && !seen[*entry.ID] {
			if prev, ok := owned[*entry.ID]; ok {
				slot.ID = prev.ID
				slot.IsBooked = prev.IsBooked
				slot.BookedByUserID = prev.BookedByUserID
			}
		}
		seen[slot.ID] = true
		out = append(out, slot)
	}
	return out, nil
}

func droppedBookedSlots(current, next []Slot) []string {
	kept := make(map[uuid.UUID]bool, len(next))
	for _, s := range next {
		kept[s.ID] = true
	}
	var dropped []string
	for _, s := range current {
		if s.IsBooked && !kept[s.ID] {
			dropped = append(dropped, s.ID.String())
		}
	}
	return dropped
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
