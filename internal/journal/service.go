package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxContentLength = 5000

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "journal").Logger()}
}

// List returns the user's entries, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in EntryInput) (*Entry, error) {
	if strings.TrimSpace(in.Content) == "" && in.Drawing == "" {
		return nil, fmt.Errorf("%w: journal entry must have content or a drawing", ErrInvalidInput)
	}
	e, err := normalize(in)
	if err != nil {
		return nil, err
	}
	e.UserID = userID

	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return created, nil
}

// Update overwrites every field of an entry the user owns.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in EntryInput) (*Entry, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	e, err := normalize(in)
	if err != nil {
		return nil, err
	}
	e.ID = id
	e.UserID = userID

	updated, err := s.repo.Update(ctx, e)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return err
		}
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, userID, id uuid.UUID) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load entry: %w", err)
	}
	if e.UserID != userID {
		s.log.Warn().Str("entry_id", id.String()).Str("user_id", userID.String()).Msg("journal entry ownership mismatch")
		return nil, ErrNotOwner
	}
	return e, nil
}

func normalize(in EntryInput) (*Entry, error) {
	if utf8.RuneCountInString(in.Content) > maxContentLength {
		return nil, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, maxContentLength)
	}
	mood := Mood(strings.TrimSpace(in.Mood))
	if mood == "" {
		mood = MoodNeutral
	}
	if !mood.Valid() {
		return nil, fmt.Errorf("%w: unknown mood %q", ErrInvalidInput, in.Mood)
	}

	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			tags = append(tags, t)
		}
	}

	return &Entry{
		Content: in.Content,
		Mood:    mood,
		Tags:    tags,
		Drawing: in.Drawing,
	}, nil
}
