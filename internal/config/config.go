package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env             string        // dev, prod
	HTTPPort        string        // default 5000
	PostgresDSN     string        // required
	RedisAddr       string        // host:port
	RedisUsername   string        // redis username
	RedisPassword   string        // redis password
	RedisDB         int           // logical database, from the REDIS_URL path
	RedisTLS        bool          // rediss:// scheme
	PostgresMaxConn int32         // pool ceiling per process
	LockTTL         time.Duration // how long a Redis slot lock lives
	ShutdownTimeout time.Duration // graceful shutdown timeout
	AuditInterval   time.Duration // how often the slot auditor runs

	FirebaseProjectID string // audience / issuer suffix of identity tokens
	AuthDevSecret     string // HS256 secret accepted instead of Firebase tokens

	GeminiAPIKey string
	GeminiModel  string

	SpotifyClientID     string
	SpotifyClientSecret string
	YouTubeAPIKey       string

	UpstreamTimeout time.Duration // bound on every outbound provider call
	ContentCacheTTL time.Duration

	ChatRateLimitRPS   float64
	ChatRateLimitBurst int

	SMTP SMTPConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether outgoing mail is configured.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:                 getEnv("APP_ENV", "dev"),
		HTTPPort:            getEnv("HTTP_PORT", getEnv("PORT", "5000")),
		PostgresDSN:         os.Getenv("POSTGRES_DSN"),
		PostgresMaxConn:     int32(getInt("POSTGRES_MAX_CONNS", 10)),
		LockTTL:             getDuration("LOCK_TTL", 5*time.Second),
		ShutdownTimeout:     getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		AuditInterval:       getDuration("AUDIT_INTERVAL", time.Minute),
		AuthDevSecret:       os.Getenv("AUTH_DEV_SECRET"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		YouTubeAPIKey:       os.Getenv("YOUTUBE_API_KEY"),
		UpstreamTimeout:     getDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		ContentCacheTTL:     getDuration("CONTENT_CACHE_TTL", 10*time.Minute),
		ChatRateLimitRPS:    getFloat("CHAT_RATE_LIMIT_RPS", 1),
		ChatRateLimitBurst:  getInt("CHAT_RATE_LIMIT_BURST", 5),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", os.Getenv("SMTP_USERNAME")),
		},
	}

	if cfg.PostgresDSN == "" {
		return Config{}, errors.New("POSTGRES_DSN is required")
	}

	projectID, err := resolveProjectID(os.Getenv("FIREBASE_PROJECT_ID"), os.Getenv("FIREBASE_SERVICE_ACCOUNT"))
	if err != nil {
		return Config{}, err
	}
	cfg.FirebaseProjectID = projectID
	if cfg.FirebaseProjectID == "" && cfg.AuthDevSecret == "" {
		return Config{}, errors.New("FIREBASE_SERVICE_ACCOUNT (or AUTH_DEV_SECRET) is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL != "" {
		r, err := parseRedisURL(redisURL)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		cfg.RedisAddr = r.addr
		cfg.RedisUsername = r.username
		cfg.RedisPassword = r.password
		cfg.RedisDB = r.db
		cfg.RedisTLS = r.tls
	} else {
		cfg.RedisAddr = getEnv("REDIS_ADDR", "127.0.0.1:6379")
		cfg.RedisUsername = getEnv("REDIS_USERNAME", "")
		cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	}

	return cfg, nil
}

// RequireGemini is checked only by binaries that serve chat.
func (c Config) RequireGemini() error {
	if c.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	return nil
}

// resolveProjectID prefers the explicit id and falls back to the
// project_id field of the service account JSON.
func resolveProjectID(explicit, serviceAccount string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if serviceAccount == "" {
		return "", nil
	}

	var sa struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal([]byte(serviceAccount), &sa); err != nil {
		return "", fmt.Errorf("invalid FIREBASE_SERVICE_ACCOUNT: %w", err)
	}
	if sa.ProjectID == "" {
		return "", errors.New("FIREBASE_SERVICE_ACCOUNT has no project_id")
	}
	return sa.ProjectID, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		fmt.Fprintf(os.Stderr, "invalid integer for %s=%q, using default %d\n", key, v, def)
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		fmt.Fprintf(os.Stderr, "invalid number for %s=%q, using default %g\n", key, v, def)
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		fmt.Fprintf(os.Stderr, "invalid duration for %s=%q, using default %s\n", key, v, def)
	}
	return def
}

type redisTarget struct {
	addr, username, password string
	db                       int
	tls                      bool
}

// parseRedisURL parses redis[s]://user:password@host:port/db
func parseRedisURL(raw string) (redisTarget, error) {
	var r redisTarget
	u, err := url.Parse(raw)
	if err != nil {
		return r, err
	}
	switch u.Scheme {
	case "redis":
	case "rediss":
		r.tls = true
	default:
		return r, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return r, errors.New("missing host")
	}
	r.addr = u.Host
	if u.Port() == "" {
		r.addr = u.Host + ":6379"
	}

	if u.User != nil {
		r.username = u.User.Username()
		r.password, _ = u.User.Password()
	}

	if path := strings.Trim(u.Path, "/"); path != "" {
		r.db, err = strconv.Atoi(path)
		if err != nil || r.db < 0 {
			return r, fmt.Errorf("invalid database %q", path)
		}
	}
	return r, nil
}
