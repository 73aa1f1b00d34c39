package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "identity").Logger()}
}

type RegisterInput struct {
	Email       string
	Role        string
	DisplayName string
}

// RegisterProfile creates the local record for an authenticated identity
// on first call and updates role/email/name afterwards.
func (s *Service) RegisterProfile(ctx context.Context, firebaseUID string, in RegisterInput) (*User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, false, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, false, fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}

	role := RolePatient
	if in.Role != "" {
		r, ok := ParseRole(in.Role)
		if !ok {
			return nil, false, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
		}
		role = r
	}

	u, created, err := s.repo.Upsert(ctx, &User{
		FirebaseUID: firebaseUID,
		Email:       email,
		Role:        role,
		DisplayName: strings.TrimSpace(in.DisplayName),
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("upsert user: %w", err)
	}

	s.log.Info().
		Str("firebase_uid", firebaseUID).
		Str("role", string(u.Role)).
		Bool("created", created).
		Msg("user profile registered")

	return u, created, nil
}

func (s *Service) GetByFirebaseUID(ctx context.Context, uid string) (*User, error) {
	u, err := s.repo.GetByFirebaseUID(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}
