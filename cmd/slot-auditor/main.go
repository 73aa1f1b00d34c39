package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/elumia/wellness-api/internal/appointment"
	"github.com/elumia/wellness-api/internal/config"
	"github.com/elumia/wellness-api/internal/db"
	"github.com/elumia/wellness-api/internal/identity"
	"github.com/elumia/wellness-api/internal/logging"
	"github.com/elumia/wellness-api/internal/notify"
	"github.com/elumia/wellness-api/internal/professional"
	redisclient "github.com/elumia/wellness-api/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.Bootstrap("slot-auditor")
		boot.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.Env, "slot-auditor")
	log.Info().Dur("interval", cfg.AuditInterval).Msg("slot auditor starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, 2)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// read-only: no slot locks, no mail
	svc := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		professional.NewService(professional.NewPgRepository(pgPool), log),
		identity.NewService(identity.NewPgRepository(pgPool), log),
		redisclient.NoopLocker{},
		notify.NewLogNotifier(log),
		log,
	)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.AuditInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping slot auditor")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	report, err := svc.AuditSlots(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("audit run error")
		return
	}

	for _, v := range report.Violations {
		evt := log.Warn().Str("kind", string(v.Kind)).Str("slot_id", v.SlotID.String())
		if v.AppointmentID != nil {
			evt = evt.Str("appointment_id", v.AppointmentID.String())
		}
		if v.Count > 0 {
			evt = evt.Int("count", v.Count)
		}
		evt.Msg("slot invariant violated")
	}

	log.Info().
		Bool("clean", report.Clean()).
		Int("violations", len(report.Violations)).
		Dur("took", time.Since(start)).
		Msg("audit run complete")
}
