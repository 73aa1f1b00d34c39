package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound        = errors.New("slot not found")
	ErrSlotAlreadyBooked   = errors.New("slot is already booked")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// CreateBooking claims the slot and inserts the pending appointment
	// atomically. A slot that is no longer free yields ErrSlotAlreadyBooked.
	CreateBooking(ctx context.Context, appt *Appointment) (*Appointment, error)

	// UpdateAppointmentStatus moves an appointment out of from and
	// recomputes its slot in the same transaction. ErrInvalidTransition
	// when the appointment is no longer in from.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, professionalNotes string) (*Appointment, error)

	ListAppointmentsForUser(ctx context.Context, firebaseUID string) ([]Appointment, error)

	// Slot auditor
	FindSlotViolations(ctx context.Context) ([]Violation, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
