package professional

import (
	"time"

	"github.com/google/uuid"
)

type Specialty string

const (
	SpecialtyPsychiatrist Specialty = "psychiatrist"
	SpecialtyPsychologist Specialty = "psychologist"
	SpecialtyTherapist    Specialty = "therapist"
	SpecialtyCounselor    Specialty = "counselor"
	SpecialtyOther        Specialty = "other"
)

func (s Specialty) Valid() bool {
	switch s {
	case SpecialtyPsychiatrist, SpecialtyPsychologist, SpecialtyTherapist, SpecialtyCounselor, SpecialtyOther:
		return true
	}
	return false
}

type Slot struct {
	ID             uuid.UUID `json:"id"`
	ProfessionalID uuid.UUID `json:"-"`
	Date           Date      `json:"date"`
	Time           string    `json:"time"`
	IsBooked       bool      `json:"isBooked"`
	BookedByUserID *string   `json:"bookedByUserId,omitempty"`
}

type Profile struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"userId"`
	FirebaseUID       string    `json:"firebaseUid"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Specialty         Specialty `json:"specialty"`
	OtherSpecialty    string    `json:"otherSpecialty,omitempty"`
	Bio               string    `json:"bio,omitempty"`
	ContactPhone      string    `json:"contactPhone,omitempty"`
	ProfilePictureURL string    `json:"profilePictureUrl,omitempty"`
	Slots             []Slot    `json:"availability"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// FindSlot returns the slot with the given id, if the profile owns one.
func (p *Profile) FindSlot(id uuid.UUID) (*Slot, bool) {
	for i := range p.Slots {
		if p.Slots[i].ID == id {
			return &p.Slots[i], true
		}
	}
	return nil, false
}

// Public hides who booked which slot.
func (p Profile) Public() Profile {
	out := p
	out.Slots = make([]Slot, len(p.Slots))
	for i, s := range p.Slots {
		s.BookedByUserID = nil
		out.Slots[i] = s
	}
	return out
}

// SlotInput is one entry of a submitted availability list. ID is set when
// the caller is resubmitting a slot it already has.
type SlotInput struct {
	ID   *uuid.UUID `json:"id,omitempty"`
	Date string     `json:"date"`
	Time string     `json:"time"`
}

type ProfileInput struct {
	Name              string      `json:"name"`
	Specialty         string      `json:"specialty"`
	OtherSpecialty    string      `json:"otherSpecialty"`
	Bio               string      `json:"bio"`
	ContactPhone      string      `json:"contactPhone"`
	ProfilePictureURL string      `json:"profilePictureUrl"`
	Availability      []SlotInput `json:"availability"`
}
