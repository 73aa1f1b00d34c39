package professional

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const profileColumns = `id, user_id, firebase_uid, name, email, specialty,
	COALESCE(other_specialty, ''), COALESCE(bio, ''), COALESCE(contact_phone, ''),
	COALESCE(profile_picture_url, ''), created_at, updated_at`

const slotColumns = `id, professional_id, slot_date, slot_time, is_booked, booked_by_user_id`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.FirebaseUID,
		&p.Name,
		&p.Email,
		&p.Specialty,
		&p.OtherSpecialty,
		&p.Bio,
		&p.ContactPhone,
		&p.ProfilePictureURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	p.Slots = []Slot{}
	return &p, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var date time.Time
	err := row.Scan(
		&s.ID,
		&s.ProfessionalID,
		&date,
		&s.Time,
		&s.IsBooked,
		&s.BookedByUserID,
	)
	if err != nil {
		return nil, err
	}
	s.Date = NewDate(date)
	return &s, nil
}

func collectSlots(rows pgx.Rows) ([]Slot, error) {
	defer rows.Close()

	slots := []Slot{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *PgRepository) loadSlots(ctx context.Context, q pgx.Tx, professionalID uuid.UUID) ([]Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE professional_id = $1 ORDER BY position`

	var rows pgx.Rows
	var err error
	if q != nil {
		rows, err = q.Query(ctx, query, professionalID)
	} else {
		rows, err = r.pool.Query(ctx, query, professionalID)
	}
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	return collectSlots(rows)
}

// Interface methods

func (r *PgRepository) GetByFirebaseUID(ctx context.Context, uid string) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM professional_profiles WHERE firebase_uid = $1`, uid)
	p, err := scanProfile(row)
	if err != nil {
		return nil, err
	}

	p.Slots, err = r.loadSlots(ctx, nil, p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PgRepository) List(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM professional_profiles ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		index[p.ID] = len(profiles)
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return []Profile{}, nil
	}

	slotRows, err := r.pool.Query(ctx, `SELECT `+slotColumns+` FROM slots ORDER BY professional_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	slots, err := collectSlots(slotRows)
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		if i, ok := index[s.ProfessionalID]; ok {
			profiles[i].Slots = append(profiles[i].Slots, s)
		}
	}

	return profiles, nil
}

func (r *PgRepository) Upsert(ctx context.Context, p *Profile) (*Profile, bool, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO professional_profiles (
			id, user_id, firebase_uid, name, email, specialty, other_specialty,
			bio, contact_phone, profile_picture_url, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), now(), now())
		ON CONFLICT (firebase_uid) DO UPDATE
		SET name = EXCLUDED.name,
		    email = EXCLUDED.email,
		    specialty = EXCLUDED.specialty,
		    other_specialty = EXCLUDED.other_specialty,
		    bio = EXCLUDED.bio,
		    contact_phone = EXCLUDED.contact_phone,
		    profile_picture_url = EXCLUDED.profile_picture_url,
		    updated_at = now()
		RETURNING (xmax = 0)
	`, uuid.New(), p.UserID, p.FirebaseUID, p.Name, p.Email, p.Specialty,
		p.OtherSpecialty, p.Bio, p.ContactPhone, p.ProfilePictureURL)

	var inserted bool
	if err := row.Scan(&inserted); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, false, ErrEmailTaken
		}
		return nil, false, fmt.Errorf("upsert profile: %w", err)
	}

	stored, err := r.GetByFirebaseUID(ctx, p.FirebaseUID)
	if err != nil {
		return nil, false, err
	}
	return stored, inserted, nil
}

func (r *PgRepository) ReplaceSlots(ctx context.Context, professionalID uuid.UUID, slots []Slot) ([]Slot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	keep := make([]string, 0, len(slots))
	for _, s := range slots {
		keep = append(keep, s.ID.String())
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM slots
		WHERE professional_id = $1
		  AND NOT (id = ANY($2::uuid[]))
	`, professionalID, keep); err != nil {
		return nil, fmt.Errorf("delete dropped slots: %w", err)
	}

	// Kept rows only change position/date/time; booking state stays.
	batch := &pgx.Batch{}
	for i, s := range slots {
		batch.Queue(`
			INSERT INTO slots (id, professional_id, position, slot_date, slot_time, is_booked, booked_by_user_id, updated_at)
			VALUES ($1, $2, $3, $4, $5, false, NULL, now())
			ON CONFLICT (id) DO UPDATE
			SET position = EXCLUDED.position,
			    slot_date = EXCLUDED.slot_date,
			    slot_time = EXCLUDED.slot_time,
			    updated_at = now()
			WHERE slots.professional_id = EXCLUDED.professional_id
		`, s.ID, professionalID, i, s.Date.Time, s.Time)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("write slots: %w", err)
	}

	out, err := r.loadSlots(ctx, tx, professionalID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}
