package appointment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elumia/wellness-api/internal/db"
	"github.com/elumia/wellness-api/internal/identity"
	"github.com/elumia/wellness-api/internal/professional"
)

// Runs against a real database only when POSTGRES_TEST_DSN is set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 25)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, pool))
	t.Cleanup(pool.Close)
	return pool
}

// seedProfessional stores a therapist with free slots and returns the profile.
func seedProfessional(t *testing.T, pool *pgxpool.Pool, slots int) *professional.Profile {
	t.Helper()
	ctx := context.Background()
	tag := gofakeit.UUID()

	user, _, err := identity.NewPgRepository(pool).Upsert(ctx, &identity.User{
		FirebaseUID: "pg-pro-" + tag,
		Email:       "pro-" + tag + "@example.com",
		Role:        identity.RoleTherapist,
	})
	require.NoError(t, err)

	profiles := professional.NewPgRepository(pool)
	profile, _, err := profiles.Upsert(ctx, &professional.Profile{
		UserID:      user.ID,
		FirebaseUID: user.FirebaseUID,
		Name:        "Dr. " + gofakeit.LastName(),
		Email:       user.Email,
		Specialty:   professional.SpecialtyTherapist,
	})
	require.NoError(t, err)

	date, err := professional.ParseDate("2025-03-01")
	require.NoError(t, err)
	in := make([]professional.Slot, slots)
	for i := range in {
		in[i] = professional.Slot{ID: uuid.New(), Date: date, Time: fmt.Sprintf("%02d:00", 9+i)}
	}
	profile.Slots, err = profiles.ReplaceSlots(ctx, profile.ID, in)
	require.NoError(t, err)
	return profile
}

func pendingFor(p *professional.Profile, slot professional.Slot, patientUID string) *Appointment {
	return &Appointment{
		ID:              uuid.New(),
		PatientUID:      patientUID,
		ProfessionalUID: p.FirebaseUID,
		ProfessionalID:  p.ID,
		SlotID:          slot.ID,
		Date:            slot.Date,
		Time:            slot.Time,
		Status:          StatusPending,
	}
}

func loadSlot(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) (booked bool, bookedBy *string) {
	t.Helper()
	err := pool.QueryRow(context.Background(),
		`SELECT is_booked, booked_by_user_id FROM slots WHERE id = $1`, id).Scan(&booked, &bookedBy)
	require.NoError(t, err)
	return booked, bookedBy
}

func TestPgCreateBooking_ConcurrentSameSlot(t *testing.T) {
	pool := testPool(t)
	repo := NewPgRepository(pool)
	profile := seedProfessional(t, pool, 1)
	slot := profile.Slots[0]

	const bookers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    []string
		losses  int
		unknown []error
	)
	start := make(chan struct{})
	for i := 0; i < bookers; i++ {
		wg.Add(1)
		go func(patient string) {
			defer wg.Done()
			<-start
			_, err := repo.CreateBooking(context.Background(), pendingFor(profile, slot, patient))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins = append(wins, patient)
			case errors.Is(err, ErrSlotAlreadyBooked):
				losses++
			default:
				unknown = append(unknown, err)
			}
		}(fmt.Sprintf("pg-patient-%02d", i))
	}
	close(start)
	wg.Wait()

	require.Empty(t, unknown)
	require.Len(t, wins, 1)
	assert.Equal(t, bookers-1, losses)

	booked, by := loadSlot(t, pool, slot.ID)
	assert.True(t, booked)
	require.NotNil(t, by)
	assert.Equal(t, wins[0], *by)

	var live int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT count(*) FROM appointments WHERE slot_id = $1 AND status IN ('pending', 'confirmed')`, slot.ID).Scan(&live))
	assert.Equal(t, 1, live)
}

func TestPgCreateBooking_Errors(t *testing.T) {
	pool := testPool(t)
	repo := NewPgRepository(pool)
	profile := seedProfessional(t, pool, 2)
	ctx := context.Background()

	t.Run("unknown slot", func(t *testing.T) {
		missing := professional.Slot{ID: uuid.New(), Date: profile.Slots[0].Date, Time: "08:00"}
		_, err := repo.CreateBooking(ctx, pendingFor(profile, missing, "pg-patient"))
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})

	t.Run("live appointment on a free slot maps the unique violation", func(t *testing.T) {
		slot := profile.Slots[1]
		_, err := pool.Exec(ctx, `
			INSERT INTO appointments (id, patient_uid, professional_uid, professional_id, slot_id, slot_date, slot_time, status)
			VALUES ($1, 'pg-earlier', $2, $3, $4, $5, $6, 'pending')
		`, uuid.New(), profile.FirebaseUID, profile.ID, slot.ID, slot.Date.Time, slot.Time)
		require.NoError(t, err)

		_, err = repo.CreateBooking(ctx, pendingFor(profile, slot, "pg-patient"))
		assert.ErrorIs(t, err, ErrSlotAlreadyBooked)

		booked, _ := loadSlot(t, pool, slot.ID)
		assert.False(t, booked, "slot claim rolled back with the failed insert")
	})
}

func TestPgUpdateAppointmentStatus_RecomputesSlot(t *testing.T) {
	pool := testPool(t)
	repo := NewPgRepository(pool)
	profile := seedProfessional(t, pool, 2)
	ctx := context.Background()

	confirmed, err := repo.CreateBooking(ctx, pendingFor(profile, profile.Slots[0], "pg-patient-a"))
	require.NoError(t, err)
	rejected, err := repo.CreateBooking(ctx, pendingFor(profile, profile.Slots[1], "pg-patient-b"))
	require.NoError(t, err)

	out, err := repo.UpdateAppointmentStatus(ctx, confirmed.ID, StatusPending, StatusConfirmed, "see you then")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, out.Status)
	assert.Equal(t, "see you then", out.ProfessionalNotes)
	booked, by := loadSlot(t, pool, profile.Slots[0].ID)
	assert.True(t, booked)
	require.NotNil(t, by)
	assert.Equal(t, "pg-patient-a", *by)

	_, err = repo.UpdateAppointmentStatus(ctx, rejected.ID, StatusPending, StatusRejected, "")
	require.NoError(t, err)
	booked, by = loadSlot(t, pool, profile.Slots[1].ID)
	assert.False(t, booked)
	assert.Nil(t, by)

	_, err = repo.UpdateAppointmentStatus(ctx, rejected.ID, StatusPending, StatusConfirmed, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// the freed slot can be booked again
	_, err = repo.CreateBooking(ctx, pendingFor(profile, profile.Slots[1], "pg-patient-c"))
	assert.NoError(t, err)
}
