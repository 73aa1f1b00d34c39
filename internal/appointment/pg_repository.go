package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elumia/wellness-api/internal/professional"
)

const uniqueViolation = "23505"

const appointmentColumns = `id, patient_uid, professional_uid, professional_id, slot_id,
	slot_date, slot_time, status, patient_notes, professional_notes, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time

	err := row.Scan(
		&a.ID,
		&a.PatientUID,
		&a.ProfessionalUID,
		&a.ProfessionalID,
		&a.SlotID,
		&date,
		&a.Time,
		&a.Status,
		&a.PatientNotes,
		&a.ProfessionalNotes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = professional.NewDate(date)
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Interface methods

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) CreateBooking(ctx context.Context, appt *Appointment) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// compare-and-set on the slot; losing the race matches zero rows
	tag, err := tx.Exec(ctx, `
		UPDATE slots
		SET is_booked = true,
		    booked_by_user_id = $3,
		    updated_at = now()
		WHERE id = $1
		  AND professional_id = $2
		  AND is_booked = false
	`, appt.SlotID, appt.ProfessionalID, appt.PatientUID)
	if err != nil {
		return nil, fmt.Errorf("claim slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM slots WHERE id = $1 AND professional_id = $2)
		`, appt.SlotID, appt.ProfessionalID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check slot: %w", err)
		}
		if !exists {
			return nil, ErrSlotNotFound
		}
		return nil, ErrSlotAlreadyBooked
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_uid, professional_uid, professional_id, slot_id,
			slot_date, slot_time, status, patient_notes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8, now(), now())
		RETURNING `+appointmentColumns,
		appt.ID, appt.PatientUID, appt.ProfessionalUID, appt.ProfessionalID, appt.SlotID,
		appt.Date.Time, appt.Time, appt.PatientNotes)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotAlreadyBooked
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, professionalNotes string) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    professional_notes = CASE WHEN $4::text = '' THEN professional_notes ELSE $4::text END,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns, id, to, from, professionalNotes)

	updated, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	// the slot may have been removed from availability; zero rows is fine
	if to.Live() {
		_, err = tx.Exec(ctx, `
			UPDATE slots
			SET is_booked = true, booked_by_user_id = $2, updated_at = now()
			WHERE id = $1
		`, updated.SlotID, updated.PatientUID)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE slots
			SET is_booked = false, booked_by_user_id = NULL, updated_at = now()
			WHERE id = $1
		`, updated.SlotID)
	}
	if err != nil {
		return nil, fmt.Errorf("recompute slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

func (r *PgRepository) ListAppointmentsForUser(ctx context.Context, firebaseUID string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.patient_uid, a.professional_uid, a.professional_id, a.slot_id,
		       a.slot_date, a.slot_time, a.status, a.patient_notes, a.professional_notes,
		       a.created_at, a.updated_at,
		       p.name, p.specialty, p.email
		FROM appointments a
		JOIN professional_profiles p ON p.id = a.professional_id
		WHERE a.patient_uid = $1 OR a.professional_uid = $1
		ORDER BY a.created_at DESC
	`, firebaseUID)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	result := []Appointment{}
	for rows.Next() {
		var a Appointment
		var date time.Time
		var p ProfessionalSummary
		if err := rows.Scan(
			&a.ID, &a.PatientUID, &a.ProfessionalUID, &a.ProfessionalID, &a.SlotID,
			&date, &a.Time, &a.Status, &a.PatientNotes, &a.ProfessionalNotes,
			&a.CreatedAt, &a.UpdatedAt,
			&p.Name, &p.Specialty, &p.Email,
		); err != nil {
			return nil, err
		}
		a.Date = professional.NewDate(date)
		a.Professional = &p
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) FindSlotViolations(ctx context.Context) ([]Violation, error) {
	var out []Violation

	orphaned, err := r.collectViolations(ctx, ViolationOrphanedBooking, `
		SELECT s.id, NULL::uuid, 0
		FROM slots s
		WHERE s.is_booked
		  AND NOT EXISTS (
		    SELECT 1 FROM appointments a
		    WHERE a.slot_id = s.id AND a.status IN ('pending', 'confirmed')
		  )
	`)
	if err != nil {
		return nil, err
	}
	out = append(out, orphaned...)

	missing, err := r.collectViolations(ctx, ViolationMissingSlot, `
		SELECT a.slot_id, a.id, 0
		FROM appointments a
		LEFT JOIN slots s ON s.id = a.slot_id
		WHERE a.status IN ('pending', 'confirmed')
		  AND s.id IS NULL
	`)
	if err != nil {
		return nil, err
	}
	out = append(out, missing...)

	unbooked, err := r.collectViolations(ctx, ViolationUnbookedSlot, `
		SELECT a.slot_id, a.id, 0
		FROM appointments a
		JOIN slots s ON s.id = a.slot_id
		WHERE a.status IN ('pending', 'confirmed')
		  AND NOT s.is_booked
	`)
	if err != nil {
		return nil, err
	}
	out = append(out, unbooked...)

	doubled, err := r.collectViolations(ctx, ViolationDoubleBooked, `
		SELECT slot_id, NULL::uuid, count(*)
		FROM appointments
		WHERE status IN ('pending', 'confirmed')
		GROUP BY slot_id
		HAVING count(*) > 1
	`)
	if err != nil {
		return nil, err
	}
	out = append(out, doubled...)

	return out, nil
}

func (r *PgRepository) collectViolations(ctx context.Context, kind ViolationKind, query string) ([]Violation, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("audit %s: %w", kind, err)
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		v := Violation{Kind: kind}
		if err := rows.Scan(&v.SlotID, &v.AppointmentID, &v.Count); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
