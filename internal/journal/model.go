package journal

import (
	"time"

	"github.com/google/uuid"
)

type Mood string

const (
	MoodHappy      Mood = "Happy"
	MoodCalm       Mood = "Calm"
	MoodSad        Mood = "Sad"
	MoodAnxious    Mood = "Anxious"
	MoodExcited    Mood = "Excited"
	MoodReflective Mood = "Reflective"
	MoodNeutral    Mood = "Neutral"
)

func (m Mood) Valid() bool {
	switch m {
	case MoodHappy, MoodCalm, MoodSad, MoodAnxious, MoodExcited, MoodReflective, MoodNeutral:
		return true
	}
	return false
}

type Entry struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Content   string    `json:"content"`
	Mood      Mood      `json:"mood"`
	Tags      []string  `json:"tags"`
	Drawing   string    `json:"drawing"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type EntryInput struct {
	Content string   `json:"content"`
	Mood    string   `json:"mood"`
	Tags    []string `json:"tags"`
	Drawing string   `json:"drawing"`
}
