package redisclient

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotLockKey(t *testing.T) {
	id := uuid.MustParse("6f1c7a9e-3b2d-4c1e-9a8f-0d4e5f6a7b8c")
	assert.Equal(t, "elumia:lock:slot:6f1c7a9e-3b2d-4c1e-9a8f-0d4e5f6a7b8c", slotLockKey(id))
}

func TestNoopLocker_RunsCallback(t *testing.T) {
	var called bool
	err := NoopLocker{}.WithSlotLock(context.Background(), uuid.New(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	err = NoopLocker{}.WithSlotLock(context.Background(), uuid.New(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func newTestLocker(t *testing.T, ttl time.Duration) (*SlotLocker, *miniredis.Miniredis, *bytes.Buffer) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	var buf bytes.Buffer
	return NewSlotLocker(rdb, ttl, zerolog.New(&buf)), mr, &buf
}

func TestSlotLocker_Contention(t *testing.T) {
	l, mr, _ := newTestLocker(t, 5*time.Second)
	ctx := context.Background()
	slot := uuid.New()
	key := slotLockKey(slot)

	err := l.WithSlotLock(ctx, slot, func(lockCtx context.Context) error {
		assert.True(t, mr.Exists(key))
		assert.True(t, mr.TTL(key) > 0)

		_, hasDeadline := lockCtx.Deadline()
		assert.True(t, hasDeadline)

		inner := l.WithSlotLock(ctx, slot, func(context.Context) error {
			t.Error("second holder must not run")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)

		// other slots are independent
		return l.WithSlotLock(ctx, uuid.New(), func(context.Context) error { return nil })
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key), "released after fn returns")

	ran := false
	require.NoError(t, l.WithSlotLock(ctx, slot, func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran, "reacquirable after release")
}

func TestSlotLocker_ReleasesOnError(t *testing.T) {
	l, mr, _ := newTestLocker(t, 5*time.Second)
	slot := uuid.New()
	boom := errors.New("boom")

	err := l.WithSlotLock(context.Background(), slot, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(slotLockKey(slot)))
}

func TestSlotLocker_ReleaseOnlyOwnHold(t *testing.T) {
	l, mr, logs := newTestLocker(t, 5*time.Second)
	slot := uuid.New()
	key := slotLockKey(slot)

	err := l.WithSlotLock(context.Background(), slot, func(context.Context) error {
		// lock expired and another replica took it
		return mr.Set(key, "other-holder")
	})
	require.NoError(t, err)

	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "other-holder", got)
	assert.Contains(t, logs.String(), "slot lock expired before release")
}

func TestSlotLocker_ExpiredBeforeRelease(t *testing.T) {
	l, mr, logs := newTestLocker(t, time.Second)
	slot := uuid.New()

	err := l.WithSlotLock(context.Background(), slot, func(context.Context) error {
		mr.FastForward(2 * time.Second)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(slotLockKey(slot)))
	assert.Contains(t, logs.String(), "slot lock expired before release")
}

func TestSlotLocker_RedisDown(t *testing.T) {
	l, mr, _ := newTestLocker(t, time.Second)
	mr.Close()

	err := l.WithSlotLock(context.Background(), uuid.New(), func(context.Context) error {
		t.Error("fn must not run without the lock")
		return nil
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockNotAcquired)
}
