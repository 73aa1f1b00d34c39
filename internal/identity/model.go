package identity

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient      Role = "patient"
	RolePsychiatrist Role = "psychiatrist"
	RolePsychologist Role = "psychologist"
	RoleTherapist    Role = "therapist"
	RoleOther        Role = "other"
)

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RolePsychiatrist, RolePsychologist, RoleTherapist, RoleOther:
		return true
	}
	return false
}

// IsProfessional reports whether the role may own a professional profile.
func (r Role) IsProfessional() bool {
	switch r {
	case RolePsychiatrist, RolePsychologist, RoleTherapist, RoleOther:
		return true
	case RolePatient:
		return false
	}
	return false
}

func (r Role) CanManageAvailability() bool { return r.IsProfessional() }

func (r Role) CanDecideAppointments() bool { return r.IsProfessional() }

// CanBook is true for every registered role; professionals may book
// sessions with colleagues.
func (r Role) CanBook() bool { return r.Valid() }

type User struct {
	ID          uuid.UUID `json:"id"`
	FirebaseUID string    `json:"firebaseUid"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	DisplayName string    `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
