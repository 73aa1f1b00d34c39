package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"

	"github.com/elumia/wellness-api/internal/db"
	"github.com/elumia/wellness-api/internal/identity"
	"github.com/elumia/wellness-api/internal/journal"
	"github.com/elumia/wellness-api/internal/logging"
	"github.com/elumia/wellness-api/internal/professional"
)

const (
	professionalCount = 20
	slotsPerDay       = 4
	slotDays          = 5
	patientCount      = 200
	entriesPerPatient = 3
)

// Seeded firebase uids are deterministic so the simulator and manual
// testing can mint dev tokens for them.
func professionalUID(i int) string { return fmt.Sprintf("seed-pro-%03d", i) }
func patientUID(i int) string      { return fmt.Sprintf("seed-patient-%04d", i) }

var slotTimes = []string{"09:00 AM", "10:00 AM", "11:30 AM", "02:00 PM", "03:30 PM", "05:00 PM"}

var professionalRoles = []identity.Role{
	identity.RolePsychiatrist,
	identity.RolePsychologist,
	identity.RoleTherapist,
	identity.RoleOther,
}

var moods = []string{"Happy", "Calm", "Sad", "Anxious", "Excited", "Reflective", "Neutral"}

func main() {
	log := logging.New(os.Getenv("APP_ENV"), "seed")
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 4)
	if err == nil {
		err = db.Migrate(ctx, pool)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("postgres setup")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	users := identity.NewService(identity.NewPgRepository(pool), log)
	professionals := professional.NewService(professional.NewPgRepository(pool), log)
	journals := journal.NewService(journal.NewPgRepository(pool), log)

	if err := seedProfessionals(context.Background(), users, professionals, log); err != nil {
		log.Fatal().Err(err).Msg("seed professionals")
	}
	if err := seedPatients(context.Background(), users, journals, log); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}

	log.Info().Msg("seed complete")
}

func seedProfessionals(ctx context.Context, users *identity.Service, professionals *professional.Service, log zerolog.Logger) error {
	log.Info().Int("count", professionalCount).Msg("seeding professionals")

	start := professional.NewDate(time.Now().AddDate(0, 0, 1))

	for i := 0; i < professionalCount; i++ {
		role := professionalRoles[i%len(professionalRoles)]
		name := "Dr. " + gofakeit.Name()

		user, _, err := users.RegisterProfile(ctx, professionalUID(i), identity.RegisterInput{
			Email:       gofakeit.Email(),
			Role:        string(role),
			DisplayName: name,
		})
		if err != nil {
			return fmt.Errorf("register user %d: %w", i, err)
		}

		in := professional.ProfileInput{
			Name:         name,
			Specialty:    string(role),
			Bio:          fmt.Sprintf("%s who enjoys %s.", gofakeit.JobTitle(), gofakeit.Hobby()),
			ContactPhone: gofakeit.Phone(),
		}
		if role == identity.RoleOther {
			in.OtherSpecialty = gofakeit.RandomString([]string{"art therapist", "life coach", "family counselor"})
		}
		for d := 0; d < slotDays; d++ {
			day := start.AddDate(0, 0, d).Format("2006-01-02")
			for _, t := range pickTimes(slotsPerDay) {
				in.Availability = append(in.Availability, professional.SlotInput{Date: day, Time: t})
			}
		}

		if _, _, err := professionals.RegisterProfile(ctx, user, in); err != nil {
			return fmt.Errorf("register professional %d: %w", i, err)
		}
	}

	log.Info().Msg("professionals seeded")
	return nil
}

func seedPatients(ctx context.Context, users *identity.Service, journals *journal.Service, log zerolog.Logger) error {
	log.Info().Int("count", patientCount).Msg("seeding patients")

	for i := 0; i < patientCount; i++ {
		user, _, err := users.RegisterProfile(ctx, patientUID(i), identity.RegisterInput{
			Email:       gofakeit.Email(),
			Role:        string(identity.RolePatient),
			DisplayName: gofakeit.Name(),
		})
		if err != nil {
			return fmt.Errorf("register patient %d: %w", i, err)
		}

		for j := 0; j < entriesPerPatient; j++ {
			_, err := journals.Create(ctx, user.ID, journal.EntryInput{
				Content: gofakeit.Quote(),
				Mood:    gofakeit.RandomString(moods),
				Tags:    []string{gofakeit.Hobby(), gofakeit.Adjective()},
			})
			if err != nil {
				return fmt.Errorf("journal entry for patient %d: %w", i, err)
			}
		}

		if (i+1)%50 == 0 {
			log.Info().Int("done", i+1).Int("total", patientCount).Msg("patients seeded")
		}
	}

	return nil
}

func pickTimes(n int) []string {
	times := make([]string, len(slotTimes))
	copy(times, slotTimes)
	gofakeit.ShuffleStrings(times)
	return times[:n]
}
