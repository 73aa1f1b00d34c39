package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/elumia/wellness-api/internal/professional"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Decision reports whether a professional may move a pending
// appointment into s.
func (s Status) Decision() bool {
	return s == StatusConfirmed || s == StatusRejected
}

// Live statuses hold their slot.
func (s Status) Live() bool {
	return s == StatusPending || s == StatusConfirmed
}

// ProfessionalSummary is the slice of the professional profile shown
// next to an appointment.
type ProfessionalSummary struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Email     string `json:"email"`
}

type Appointment struct {
	ID                uuid.UUID            `json:"id"`
	PatientUID        string               `json:"patientFirebaseUid"`
	ProfessionalUID   string               `json:"professionalFirebaseUid"`
	ProfessionalID    uuid.UUID            `json:"professionalId"`
	SlotID            uuid.UUID            `json:"slotId"`
	Date              professional.Date    `json:"date"`
	Time              string               `json:"time"`
	Status            Status               `json:"status"`
	PatientNotes      string               `json:"patientNotes,omitempty"`
	ProfessionalNotes string               `json:"professionalNotes,omitempty"`
	Professional      *ProfessionalSummary `json:"professional,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

type BookRequest struct {
	ProfessionalUID string
	SlotID          uuid.UUID
	Notes           string
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type ViolationKind string

const (
	// slot marked booked but no pending/confirmed appointment holds it
	ViolationOrphanedBooking ViolationKind = "booked_slot_without_appointment"
	// pending/confirmed appointment whose slot was removed from availability
	ViolationMissingSlot ViolationKind = "live_appointment_without_slot"
	// live appointment on a slot that is marked free
	ViolationUnbookedSlot ViolationKind = "live_appointment_on_free_slot"
	// more than one live appointment on the same slot
	ViolationDoubleBooked ViolationKind = "slot_double_booked"
)

type Violation struct {
	Kind          ViolationKind `json:"kind"`
	SlotID        uuid.UUID     `json:"slotId"`
	AppointmentID *uuid.UUID    `json:"appointmentId,omitempty"`
	Count         int           `json:"count,omitempty"`
}

type AuditReport struct {
	CheckedAt  time.Time   `json:"checkedAt"`
	Violations []Violation `json:"violations"`
}

func (r AuditReport) Clean() bool { return len(r.Violations) == 0 }
