package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elumia/wellness-api/internal/appointment"
	"github.com/elumia/wellness-api/internal/auth"
	"github.com/elumia/wellness-api/internal/chat"
	"github.com/elumia/wellness-api/internal/content"
	"github.com/elumia/wellness-api/internal/identity"
	"github.com/elumia/wellness-api/internal/journal"
	"github.com/elumia/wellness-api/internal/professional"
)

type UserService interface {
	RegisterProfile(ctx context.Context, firebaseUID string, in identity.RegisterInput) (*identity.User, bool, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*identity.User, error)
}

type ProfessionalService interface {
	RegisterProfile(ctx context.Context, user *identity.User, in professional.ProfileInput) (*professional.Profile, bool, error)
	GetMine(ctx context.Context, user *identity.User) (*professional.Profile, error)
	List(ctx context.Context) ([]professional.Profile, error)
	Availability(ctx context.Context, uid string) ([]professional.Slot, error)
	SetAvailability(ctx context.Context, user *identity.User, in []professional.SlotInput) (*professional.Profile, error)
}

type AppointmentService interface {
	Book(ctx context.Context, patient *identity.User, req appointment.BookRequest) (*appointment.Appointment, error)
	SetStatus(ctx context.Context, actor *identity.User, id uuid.UUID, status appointment.Status, professionalNotes string) (*appointment.Appointment, error)
	ListMine(ctx context.Context, user *identity.User) ([]appointment.Appointment, error)
}

type JournalService interface {
	List(ctx context.Context, userID uuid.UUID) ([]journal.Entry, error)
	Create(ctx context.Context, userID uuid.UUID, in journal.EntryInput) (*journal.Entry, error)
	Update(ctx context.Context, userID, id uuid.UUID, in journal.EntryInput) (*journal.Entry, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type ContentService interface {
	GetContent(ctx context.Context, mood string) content.Bundle
	LoadMore(kind content.Kind, currentCount int) ([]content.Item, error)
	UniverseMessage() string
}

type ChatService interface {
	Reply(ctx context.Context, message string, history []chat.Turn, mood string) (chat.Reply, error)
}

type RouterConfig struct {
	Users         UserService
	Professionals ProfessionalService
	Appointments  AppointmentService
	Journal       JournalService
	Content       ContentService
	Chat          ChatService
	Verifier      auth.Verifier
	ChatLimiter   *RateLimiter
	Health        *HealthHandler
	Logger        zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(BodyLimitMiddleware(MaxBodyBytes))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Elumia Backend is running!"))
	})

	// Health endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	authn := Authenticate(cfg.Verifier, cfg.Logger)
	registered := RequireUser(cfg.Users)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authn)
			r.Post("/register-profile", registerUserHandler(cfg.Users))
			r.Get("/me", meHandler(cfg.Users))
		})

		r.Route("/professionals", func(r chi.Router) {
			r.Get("/", listProfessionalsHandler(cfg.Professionals))
			r.Get("/{id}/availability", availabilityHandler(cfg.Professionals))

			r.Group(func(r chi.Router) {
				r.Use(authn, registered)
				r.Post("/register-profile", registerProfessionalHandler(cfg.Professionals))
				r.Get("/me", myProfessionalProfileHandler(cfg.Professionals))
				r.Put("/me/availability", setAvailabilityHandler(cfg.Professionals))
			})
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Use(authn, registered)
			r.Post("/book", bookAppointmentHandler(cfg.Appointments))
			r.Get("/me", myAppointmentsHandler(cfg.Appointments))
			r.Put("/{id}/status", setAppointmentStatusHandler(cfg.Appointments))
		})

		r.Route("/journal", func(r chi.Router) {
			r.Use(authn, registered)
			r.Get("/", listJournalHandler(cfg.Journal))
			r.Post("/", createJournalHandler(cfg.Journal))
			r.Put("/{id}", updateJournalHandler(cfg.Journal))
			r.Delete("/{id}", deleteJournalHandler(cfg.Journal))
		})

		r.Route("/upliftment", func(r chi.Router) {
			r.Get("/content", upliftmentContentHandler(cfg.Content))
			r.Get("/load-more", loadMoreHandler(cfg.Content))
			r.Get("/message", universeMessageHandler(cfg.Content))
		})

		r.Group(func(r chi.Router) {
			if cfg.ChatLimiter != nil {
				r.Use(cfg.ChatLimiter.Middleware)
			}
			r.Post("/chat", chatHandler(cfg.Chat, cfg.Logger))
		})
	})

	return r
}
