package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[string]*User)}
}

func (m *mockRepo) GetByFirebaseUID(_ context.Context, uid string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) Upsert(_ context.Context, u *User) (*User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for uid, existing := range m.users {
		if uid != u.FirebaseUID && existing.Email == u.Email {
			return nil, false, ErrEmailTaken
		}
	}
	now := time.Now()
	if existing, ok := m.users[u.FirebaseUID]; ok {
		existing.Email = u.Email
		existing.Role = u.Role
		existing.DisplayName = u.DisplayName
		existing.UpdatedAt = now
		cp := *existing
		return &cp, false, nil
	}
	stored := *u
	stored.ID = uuid.New()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.users[u.FirebaseUID] = &stored
	cp := stored
	return &cp, true, nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func TestRegisterProfile_CreatesThenUpdates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	uid := gofakeit.UUID()

	u, created, err := svc.RegisterProfile(ctx, uid, RegisterInput{Email: "  Jane@Example.com "})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, RolePatient, u.Role)

	u2, created, err := svc.RegisterProfile(ctx, uid, RegisterInput{Email: "jane@example.com", Role: "therapist"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, u2.ID)
	assert.Equal(t, RoleTherapist, u2.Role)
}

func TestRegisterProfile_Validation(t *testing.T) {
	svc, _ := newTestService()

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing email", RegisterInput{}},
		{"malformed email", RegisterInput{Email: "not-an-email"}},
		{"unknown role", RegisterInput{Email: "a@b.com", Role: "wizard"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.RegisterProfile(context.Background(), gofakeit.UUID(), tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegisterProfile_EmailTaken(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.RegisterProfile(ctx, "uid-1", RegisterInput{Email: "same@example.com"})
	require.NoError(t, err)

	_, _, err = svc.RegisterProfile(ctx, "uid-2", RegisterInput{Email: "same@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestGetByFirebaseUID_NotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.GetByFirebaseUID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
