package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/elumia/wellness-api/internal/api"
	"github.com/elumia/wellness-api/internal/appointment"
	"github.com/elumia/wellness-api/internal/auth"
	"github.com/elumia/wellness-api/internal/chat"
	"github.com/elumia/wellness-api/internal/config"
	"github.com/elumia/wellness-api/internal/content"
	"github.com/elumia/wellness-api/internal/db"
	"github.com/elumia/wellness-api/internal/identity"
	"github.com/elumia/wellness-api/internal/journal"
	"github.com/elumia/wellness-api/internal/logging"
	"github.com/elumia/wellness-api/internal/notify"
	"github.com/elumia/wellness-api/internal/professional"
	redisclient "github.com/elumia/wellness-api/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.Bootstrap("api-server")
		boot.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.Env, "api-server")
	log.Info().Str("http_port", cfg.HTTPPort).Str("version", version).Msg("api-server starting up")

	if err := cfg.RequireGemini(); err != nil {
		if !cfg.IsDev() {
			log.Fatal().Err(err).Msg("chat provider not configured")
		}
		log.Warn().Err(err).Msg("chat requests will fail until GEMINI_API_KEY is set")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresMaxConn)
	if err == nil {
		err = db.Migrate(pgCtx, pgPool)
	}
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres setup error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TLS:      cfg.RedisTLS,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	users := identity.NewService(identity.NewPgRepository(pgPool), log)
	professionals := professional.NewService(professional.NewPgRepository(pgPool), log)
	mail := notify.NewQueue(notify.New(cfg.SMTP, log), 256, cfg.UpstreamTimeout, log)
	defer mail.Close()
	appointments := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		professionals,
		users,
		redisclient.NewSlotLocker(rdb, cfg.LockTTL, log),
		mail,
		log,
	)
	journals := journal.NewService(journal.NewPgRepository(pgPool), log)

	upstream := &http.Client{Timeout: cfg.UpstreamTimeout}
	cache := redisclient.NewJSONCache(rdb)
	music := content.NewCachedMusic(
		content.NewSpotifyClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret, content.SpotifyTokenURL, content.SpotifyAPIBase, upstream),
		cache, cfg.ContentCacheTTL, log,
	)
	videos := content.NewCachedVideos(
		content.NewYouTubeClient(cfg.YouTubeAPIKey, content.YouTubeAPIBase, upstream),
		cache, cfg.ContentCacheTTL, log,
	)
	upliftment := content.NewAggregator(music, videos, cfg.UpstreamTimeout, log)

	chatClient := chat.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.UpstreamTimeout, log)

	chatLimiter := api.NewRateLimiter(cfg.ChatRateLimitRPS, cfg.ChatRateLimitBurst)
	defer chatLimiter.Close()

	router := api.NewRouter(api.RouterConfig{
		Users:         users,
		Professionals: professionals,
		Appointments:  appointments,
		Journal:       journals,
		Content:       upliftment,
		Chat:          chatClient,
		Verifier:      newVerifier(cfg, log),
		ChatLimiter:   chatLimiter,
		Health: api.NewHealthHandler(pgPool, api.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}), cfg.Env, version),
		Logger: log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("shutting down api-server")
}

// newVerifier prefers Firebase tokens. The HS256 dev verifier is only
// used when no project is configured.
func newVerifier(cfg config.Config, log zerolog.Logger) auth.Verifier {
	if cfg.FirebaseProjectID != "" {
		log.Info().Str("project_id", cfg.FirebaseProjectID).Msg("verifying Firebase ID tokens")
		return auth.NewFirebaseVerifier(cfg.FirebaseProjectID, auth.NewJWKSCache(auth.FirebaseJWKSURL, time.Hour, nil))
	}
	log.Warn().Msg("FIREBASE project not configured, accepting AUTH_DEV_SECRET tokens")
	return auth.NewDevVerifier(cfg.AuthDevSecret)
}
