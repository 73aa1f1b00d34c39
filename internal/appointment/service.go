package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elumia/wellness-api/internal/identity"
	"github.com/elumia/wellness-api/internal/notify"
	"github.com/elumia/wellness-api/internal/professional"
	redisclient "github.com/elumia/wellness-api/internal/redis"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentRejected  = "APPOINTMENT_REJECTED"
)

const maxNotesLength = 500

var (
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrSlotBeingBooked      = errors.New("slot is currently being booked, please retry")
	ErrNotOwner             = errors.New("not authorized to update this appointment")
	ErrInvalidStatus        = errors.New("invalid status provided")
	ErrInvalidInput         = errors.New("invalid input")
	ErrForbidden            = errors.New("role not permitted")
)

// Professionals resolves a professional profile with its current slots.
type Professionals interface {
	GetByFirebaseUID(ctx context.Context, uid string) (*professional.Profile, error)
}

// Users resolves registered users for notification addresses.
type Users interface {
	GetByFirebaseUID(ctx context.Context, uid string) (*identity.User, error)
}

type Service struct {
	repo          Repository
	professionals Professionals
	users         Users
	locker        redisclient.Locker
	notifier      notify.Notifier
	log           zerolog.Logger
}

func NewService(repo Repository, professionals Professionals, users Users, locker redisclient.Locker, notifier notify.Notifier, log zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		professionals: professionals,
		users:         users,
		locker:        locker,
		notifier:      notifier,
		log:           log.With().Str("component", "appointment").Logger(),
	}
}

// Book reserves a slot for the patient and creates a pending appointment.
// The slot lock keeps replicas from racing on the same slot and the
// repository's conditional update is the final arbiter, so two concurrent
// bookers of one slot never both succeed.
func (s *Service) Book(ctx context.Context, patient *identity.User, req BookRequest) (*Appointment, error) {
	if !patient.Role.CanBook() {
		return nil, ErrForbidden
	}
	req.ProfessionalUID = strings.TrimSpace(req.ProfessionalUID)
	if req.ProfessionalUID == "" || req.SlotID == uuid.Nil {
		return nil, fmt.Errorf("%w: professional id and slot id are required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(req.Notes) > maxNotesLength {
		return nil, fmt.Errorf("%w: notes exceed %d characters", ErrInvalidInput, maxNotesLength)
	}

	prof, err := s.professionals.GetByFirebaseUID(ctx, req.ProfessionalUID)
	if err != nil {
		if errors.Is(err, professional.ErrProfileNotFound) {
			return nil, ErrProfessionalNotFound
		}
		return nil, fmt.Errorf("load professional: %w", err)
	}

	// a profile whose owner switched to a patient role is no longer bookable
	owner, err := s.users.GetByFirebaseUID(ctx, prof.FirebaseUID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, ErrProfessionalNotFound
		}
		return nil, fmt.Errorf("load professional owner: %w", err)
	}
	if !owner.Role.IsProfessional() {
		return nil, ErrProfessionalNotFound
	}

	slot, ok := prof.FindSlot(req.SlotID)
	if !ok {
		return nil, ErrSlotNotFound
	}
	if slot.IsBooked {
		return nil, ErrSlotAlreadyBooked
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, req.SlotID, func(lockCtx context.Context) error {
		appt, err := s.repo.CreateBooking(lockCtx, &Appointment{
			ID:              uuid.New(),
			PatientUID:      patient.FirebaseUID,
			ProfessionalUID: prof.FirebaseUID,
			ProfessionalID:  prof.ID,
			SlotID:          slot.ID,
			Date:            slot.Date,
			Time:            slot.Time,
			Status:          StatusPending,
			PatientNotes:    strings.TrimSpace(req.Notes),
		})
		if err != nil {
			return err
		}
		created = appt
		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			return nil, ErrSlotBeingBooked
		case errors.Is(err, ErrSlotAlreadyBooked), errors.Is(err, ErrSlotNotFound):
			return nil, err
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	created.Professional = &ProfessionalSummary{Name: prof.Name, Specialty: string(prof.Specialty), Email: prof.Email}

	s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
		"slot_id":          created.SlotID.String(),
		"patient_uid":      created.PatientUID,
		"professional_uid": created.ProfessionalUID,
	})

	booking := notify.Booking{
		PatientEmail:      patient.Email,
		ProfessionalEmail: prof.Email,
		ProfessionalName:  prof.Name,
		Specialty:         string(prof.Specialty),
		Date:              created.Date.Time,
		Time:              created.Time,
		PatientNotes:      created.PatientNotes,
	}
	s.send(ctx, notify.BookingRequestForProfessional(booking))
	s.send(ctx, notify.BookingRequestForPatient(booking))

	return created, nil
}

// SetStatus lets the owning professional confirm or reject a pending
// appointment. Repeating the decision an appointment already carries is
// a no-op.
func (s *Service) SetStatus(ctx context.Context, actor *identity.User, id uuid.UUID, status Status, professionalNotes string) (*Appointment, error) {
	if !actor.Role.CanDecideAppointments() {
		return nil, ErrForbidden
	}
	if !status.Decision() {
		return nil, ErrInvalidStatus
	}
	if utf8.RuneCountInString(professionalNotes) > maxNotesLength {
		return nil, fmt.Errorf("%w: notes exceed %d characters", ErrInvalidInput, maxNotesLength)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.ProfessionalUID != actor.FirebaseUID {
		return nil, ErrNotOwner
	}

	if appt.Status == status {
		return appt, nil
	}
	if appt.Status != StatusPending {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusPending, status, strings.TrimSpace(professionalNotes))
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// lost a race with a concurrent decision; same outcome is still a no-op
			current, getErr := s.repo.GetAppointmentByID(ctx, id)
			if getErr == nil && current.Status == status {
				return current, nil
			}
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	eventType := EventAppointmentConfirmed
	if status == StatusRejected {
		eventType = EventAppointmentRejected
	}
	s.logEvent(ctx, updated.ID, eventType, map[string]any{
		"slot_id": updated.SlotID.String(),
		"from":    string(StatusPending),
		"to":      string(status),
	})

	s.notifyStatusChange(ctx, updated)

	return updated, nil
}

func (s *Service) notifyStatusChange(ctx context.Context, appt *Appointment) {
	patient, err := s.users.GetByFirebaseUID(ctx, appt.PatientUID)
	if err != nil {
		if !errors.Is(err, identity.ErrUserNotFound) {
			s.log.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("load patient for notification")
		}
		return
	}

	b := notify.Booking{
		PatientEmail: patient.Email,
		Date:         appt.Date.Time,
		Time:         appt.Time,
	}
	if prof, err := s.professionals.GetByFirebaseUID(ctx, appt.ProfessionalUID); err == nil {
		b.ProfessionalName = prof.Name
		b.ProfessionalEmail = prof.Email
	}
	s.send(ctx, notify.StatusChangeForPatient(b, string(appt.Status)))
}

// ListMine returns the appointments where the user is either the patient
// or the professional, newest first.
func (s *Service) ListMine(ctx context.Context, user *identity.User) ([]Appointment, error) {
	appts, err := s.repo.ListAppointmentsForUser(ctx, user.FirebaseUID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// AuditSlots reports slot/appointment pairs that break the booking
// invariants. It does not repair anything.
func (s *Service) AuditSlots(ctx context.Context) (AuditReport, error) {
	violations, err := s.repo.FindSlotViolations(ctx)
	if err != nil {
		return AuditReport{}, fmt.Errorf("find slot violations: %w", err)
	}
	if violations == nil {
		violations = []Violation{}
	}
	return AuditReport{CheckedAt: time.Now().UTC(), Violations: violations}, nil
}

func (s *Service) send(ctx context.Context, msg notify.Message) {
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("notification failed")
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log")
	}
}
