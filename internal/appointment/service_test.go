package appointment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elumia/wellness-api/internal/identity"
	"github.com/elumia/wellness-api/internal/notify"
	"github.com/elumia/wellness-api/internal/professional"
	redisclient "github.com/elumia/wellness-api/internal/redis"
)

// -- Mock store --
// Implements Repository, Professionals and Users over shared in-memory
// state so slot booking flags stay consistent across all three.

type mockStore struct {
	mu           sync.Mutex
	profiles     map[string]*professional.Profile
	users        map[string]*identity.User
	appointments map[uuid.UUID]*Appointment
	events       []EventLog
}

func newMockStore() *mockStore {
	return &mockStore{
		profiles:     make(map[string]*professional.Profile),
		users:        make(map[string]*identity.User),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

func (m *mockStore) GetByFirebaseUIDProfile(uid string) (*professional.Profile, error) {
	p, ok := m.profiles[uid]
	if !ok {
		return nil, professional.ErrProfileNotFound
	}
	cp := *p
	cp.Slots = append([]professional.Slot{}, p.Slots...)
	return &cp, nil
}

func (m *mockStore) slot(id uuid.UUID) *professional.Slot {
	for _, p := range m.profiles {
		if s, ok := p.FindSlot(id); ok {
			return s
		}
	}
	return nil
}

func (m *mockStore) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockStore) CreateBooking(_ context.Context, appt *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slot(appt.SlotID)
	if s == nil {
		return nil, ErrSlotNotFound
	}
	if s.IsBooked {
		return nil, ErrSlotAlreadyBooked
	}
	s.IsBooked = true
	uid := appt.PatientUID
	s.BookedByUserID = &uid

	stored := *appt
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.appointments[stored.ID] = &stored
	cp := stored
	return &cp, nil
}

func (m *mockStore) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to Status, notes string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrInvalidTransition
	}
	a.Status = to
	if notes != "" {
		a.ProfessionalNotes = notes
	}
	a.UpdatedAt = time.Now()
	if s := m.slot(a.SlotID); s != nil {
		if to.Live() {
			uid := a.PatientUID
			s.IsBooked, s.BookedByUserID = true, &uid
		} else {
			s.IsBooked, s.BookedByUserID = false, nil
		}
	}
	cp := *a
	return &cp, nil
}

func (m *mockStore) ListAppointmentsForUser(_ context.Context, uid string) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Appointment{}
	for _, a := range m.appointments {
		if a.PatientUID == uid || a.ProfessionalUID == uid {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) FindSlotViolations(_ context.Context) ([]Violation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	live := make(map[uuid.UUID]int)
	for _, a := range m.appointments {
		if a.Status.Live() {
			live[a.SlotID]++
		}
	}
	var out []Violation
	for _, p := range m.profiles {
		for _, s := range p.Slots {
			if s.IsBooked && live[s.ID] == 0 {
				out = append(out, Violation{Kind: ViolationOrphanedBooking, SlotID: s.ID})
			}
		}
	}
	for _, a := range m.appointments {
		if a.Status.Live() && m.slot(a.SlotID) == nil {
			id := a.ID
			out = append(out, Violation{Kind: ViolationMissingSlot, SlotID: a.SlotID, AppointmentID: &id})
		}
	}
	return out, nil
}

func (m *mockStore) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *mockStore) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, ev := range m.events {
		out = append(out, ev.EventType)
	}
	return out
}

type professionalsView struct{ *mockStore }

func (v professionalsView) GetByFirebaseUID(_ context.Context, uid string) (*professional.Profile, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.GetByFirebaseUIDProfile(uid)
}

type usersView struct{ *mockStore }

func (v usersView) GetByFirebaseUID(_ context.Context, uid string) (*identity.User, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	u, ok := v.users[uid]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// -- Fakes --

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *recordingNotifier) sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message{}, n.msgs...)
}

type busyLocker struct{}

func (busyLocker) WithSlotLock(context.Context, uuid.UUID, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

// -- Fixtures --

type fixture struct {
	svc      *Service
	store    *mockStore
	notifier *recordingNotifier
	pro      *identity.User
	patient  *identity.User
	profile  *professional.Profile
}

func newFixture(t *testing.T, locker redisclient.Locker) *fixture {
	t.Helper()
	store := newMockStore()
	n := &recordingNotifier{}

	pro := &identity.User{ID: uuid.New(), FirebaseUID: "pro-" + gofakeit.UUID(), Email: "doc@example.com", Role: identity.RoleTherapist}
	patient := &identity.User{ID: uuid.New(), FirebaseUID: "pat-" + gofakeit.UUID(), Email: "pat@example.com", Role: identity.RolePatient}
	store.users[pro.FirebaseUID] = pro
	store.users[patient.FirebaseUID] = patient

	date, err := professional.ParseDate("2025-03-01")
	require.NoError(t, err)
	profile := &professional.Profile{
		ID:          uuid.New(),
		UserID:      pro.ID,
		FirebaseUID: pro.FirebaseUID,
		Name:        "Dr. Ada",
		Email:       pro.Email,
		Specialty:   professional.SpecialtyTherapist,
		Slots: []professional.Slot{
			{ID: uuid.New(), Date: date, Time: "10:00 AM"},
			{ID: uuid.New(), Date: date, Time: "11:00 AM"},
		},
	}
	store.profiles[pro.FirebaseUID] = profile

	svc := NewService(store, professionalsView{store}, usersView{store}, locker, n, zerolog.Nop())
	return &fixture{svc: svc, store: store, notifier: n, pro: pro, patient: patient, profile: profile}
}

func (f *fixture) slotState(id uuid.UUID) professional.Slot {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return *f.store.slot(id)
}

// -- Tests --

func TestBook_Success(t *testing.T) {
	f := newFixture(t, redisclient.NoopLocker{})
	ctx := context.Background()
	slotID := f.profile.Slots[0].ID

	appt, err := f.svc.Book(ctx, f.patient, BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: slotID, Notes: " first visit "})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, f.patient.FirebaseUID, appt.PatientUID)
	assert.Equal(t, f.pro.FirebaseUID, appt.ProfessionalUID)
	assert.Equal(t, "2025-03-01", appt.Date.String())
	assert.Equal(t, "10:00 AM", appt.Time)
	assert.Equal(t, "first visit", appt.PatientNotes)

	slot := f.slotState(slotID)
	assert.True(t, slot.IsBooked)
	require.NotNil(t, slot.BookedByUserID)
	assert.Equal(t, f.patient.FirebaseUID, *slot.BookedByUserID)

	msgs := f.notifier.sent()
	require.Len(t, msgs, 2)
	assert.Equal(t, "doc@example.com", msgs[0].To)
	assert.Equal(t, "pat@example.com", msgs[1].To)
	assert.Equal(t, []string{EventAppointmentCreated}, f.store.eventTypes())
}

func TestBook_Validation(t *testing.T) {
	f := newFixture(t, redisclient.NoopLocker{})
	ctx := context.Background()
	slotID := f.profile.Slots[0].ID

	tests := []struct {
		name    string
		req     BookRequest
		wantErr error
	}{
		{"missing professional", BookRequest{SlotID: slotID}, ErrInvalidInput},
		{"missing slot", BookRequest{ProfessionalUID: f.pro.FirebaseUID}, ErrInvalidInput},
		{"notes too long", BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: slotID, Notes: gofakeit.LetterN(501)}, ErrInvalidInput},
		{"unknown professional", BookRequest{ProfessionalUID: "ghost", SlotID: slotID}, ErrProfessionalNotFound},
		{"unknown slot", BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: uuid.New()}, ErrSlotNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Book(ctx, f.patient, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.False(t, f.slotState(slotID).IsBooked)
	assert.Empty(t, f.notifier.sent())
}

func TestBook_AlreadyBooked(t *testing.T) {
	f := newFixture(t, redisclient.NoopLocker{})
	ctx := context.Background()
	req := BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: f.profile.Slots[0].ID}

	_, err := f.svc.Book(ctx, f.patient, req)
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, f.patient, req)
	assert.ErrorIs(t, err, ErrSlotAlreadyBooked)
}

func TestBook_LockContention(t *testing.T) {
	f := newFixture(t, busyLocker{})

	_, err := f.svc.Book(context.Background(), f.patient, BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: f.profile.Slots[0].ID})
	assert.ErrorIs(t, err, ErrSlotBeingBooked)
	assert.False(t, f.slotState(f.profile.Slots[0].ID).IsBooked)
}

func TestBook_NotificationFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t, redisclient.NoopLocker{})
	f.notifier.err = errors.New("smtp down")

	_, err := f.svc.Book(context.Background(), f.patient, BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: f.profile.Slots[0].ID})
	require.NoError(t, err)
}

func TestBook_ConcurrentSameSlot(t *testing.T) {
	f := newFixture(t, redisclient.NoopLocker{})
	ctx := context.Background()
	slotID := f.profile.Slots[0].ID

	const bookers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts := 0, 0

	for i := 0; i < bookers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			patient := &identity.User{FirebaseUID: gofakeit.UUID(), Email: gofakeit.Email(), Role: identity.RolePatient}
			_, err := f.svc.Book(ctx, patient, BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: slotID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotAlreadyBooked):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, bookers-1, conflicts)
}

func TestSetStatus_Confirm(t *testing.T) {
	f := newFixture(t, redisclient.NoopLocker{})
	ctx := context.Background()
	slotID := f.profile.Slots[0].ID

	appt, err := f.svc.Book(ctx, f.patient, BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: slotID})
	require.NoError(t, err)

	updated, err := f.svc.SetStatus(ctx, f.pro, appt.ID, StatusConfirmed, "see you then")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	assert.Equal(t, "see you then", updated.ProfessionalNotes)
	assert.True(t, f.slotState(slotID).IsBooked)

	msgs := f.notifier.sent()
	require.Len(t, msgs, 3)
	assert.Equal(t, "pat@example.com", msgs[2].To)
	assert.Equal(t, "Your Appointment with Dr. Ada is CONFIRMED", msgs[2].Subject)

	t.Run("confirming again is a no-op", func(t *testing.T) {
		again, err := f.svc.SetStatus(ctx, f.pro, appt.ID, StatusConfirmed, "")
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, again.Status)
		assert.Len(t, f.notifier.sent(), 3)
		assert.Equal(t, []string{EventAppointmentCreated, EventAppointmentConfirmed}, f.store.eventTypes())
	})

	t.Run("rejecting a confirmed appointment", func(t *testing.T) {
		_, err := f.svc.SetStatus(ctx, f.pro, appt.ID, StatusRejected, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.True(t, f.slotState(slotID).IsBooked)
	})
}

func TestSetStatus_RejectFreesSlot(t *testing.T) {
	f := newFixture(t, redisclient.NoopLocker{})
	ctx := context.Background()
	slotID := f.profile.Slots[0].ID
	req := BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: slotID}

	appt, err := f.svc.Book(ctx, f.patient, req)
	require.NoError(t, err)

	updated, err := f.svc.SetStatus(ctx, f.pro, appt.ID, StatusRejected, "")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, updated.Status)

	slot := f.slotState(slotID)
	assert.False(t, slot.IsBooked)
	assert.Nil(t, slot.BookedByUserID)

	// the slot is back in the pool
	other := &identity.User{FirebaseUID: "pat-2", Email: "other@example.com", Role: identity.RolePatient}
	_, err = f.svc.Book(ctx, other, req)
	require.NoError(t, err)
}

func TestSetStatus_Errors(t *testing.T) {
	f := newFixture(t, redisclient.NoopLocker{})
	ctx := context.Background()

	appt, err := f.svc.Book(ctx, f.patient, BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: f.profile.Slots[0].ID})
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, f.pro, appt.ID, StatusCancelled, "")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.SetStatus(ctx, f.pro, appt.ID, Status("done"), "")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.SetStatus(ctx, f.pro, uuid.New(), StatusConfirmed, "")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = f.svc.SetStatus(ctx, f.patient, appt.ID, StatusConfirmed, "")
	assert.ErrorIs(t, err, ErrForbidden)

	colleague := &identity.User{FirebaseUID: "pro-2", Email: "colleague@example.com", Role: identity.RolePsychologist}
	_, err = f.svc.SetStatus(ctx, colleague, appt.ID, StatusConfirmed, "")
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.svc.SetStatus(ctx, f.pro, appt.ID, StatusConfirmed, gofakeit.LetterN(501))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDemotedProfessional(t *testing.T) {
	f := newFixture(t, redisclient.NoopLocker{})
	ctx := context.Background()

	appt, err := f.svc.Book(ctx, f.patient, BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: f.profile.Slots[0].ID})
	require.NoError(t, err)

	f.store.mu.Lock()
	f.store.users[f.pro.FirebaseUID].Role = identity.RolePatient
	f.store.mu.Unlock()
	demoted := *f.pro
	demoted.Role = identity.RolePatient

	t.Run("profile no longer bookable", func(t *testing.T) {
		_, err := f.svc.Book(ctx, f.patient, BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: f.profile.Slots[1].ID})
		assert.ErrorIs(t, err, ErrProfessionalNotFound)
		assert.False(t, f.slotState(f.profile.Slots[1].ID).IsBooked)
	})

	t.Run("cannot decide appointments", func(t *testing.T) {
		_, err := f.svc.SetStatus(ctx, &demoted, appt.ID, StatusConfirmed, "")
		assert.ErrorIs(t, err, ErrForbidden)

		current, err := f.store.GetAppointmentByID(ctx, appt.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, current.Status)
	})
}

func TestListMine(t *testing.T) {
	f := newFixture(t, redisclient.NoopLocker{})
	ctx := context.Background()

	_, err := f.svc.Book(ctx, f.patient, BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: f.profile.Slots[0].ID})
	require.NoError(t, err)

	mine, err := f.svc.ListMine(ctx, f.patient)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := f.svc.ListMine(ctx, f.pro)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	none, err := f.svc.ListMine(ctx, &identity.User{FirebaseUID: "stranger", Role: identity.RolePatient})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAuditSlots(t *testing.T) {
	f := newFixture(t, redisclient.NoopLocker{})
	ctx := context.Background()

	report, err := f.svc.AuditSlots(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())

	appt, err := f.svc.Book(ctx, f.patient, BookRequest{ProfessionalUID: f.pro.FirebaseUID, SlotID: f.profile.Slots[0].ID})
	require.NoError(t, err)

	// availability replace drops the booked slot
	f.store.mu.Lock()
	f.profile.Slots = f.profile.Slots[1:]
	f.store.mu.Unlock()

	report, err = f.svc.AuditSlots(ctx)
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, ViolationMissingSlot, report.Violations[0].Kind)
	require.NotNil(t, report.Violations[0].AppointmentID)
	assert.Equal(t, appt.ID, *report.Violations[0].AppointmentID)
}
