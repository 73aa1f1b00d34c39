package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var ErrLockNotAcquired = errors.New("slot lock not acquired")

// Locker serialises booking attempts per slot across api-server replicas.
type Locker interface {
	WithSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error
}

// SlotLocker holds elumia:lock:slot:<id> for the duration of a booking.
// A losing caller gets ErrLockNotAcquired immediately rather than queueing.
type SlotLocker struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewSlotLocker(client *redis.Client, ttl time.Duration, log zerolog.Logger) *SlotLocker {
	return &SlotLocker{client: client, ttl: ttl, log: log}
}

func slotLockKey(slotID uuid.UUID) string {
	return keyPrefix + "lock:slot:" + slotID.String()
}

func (l *SlotLocker) WithSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error {
	key := slotLockKey(slotID)
	holder := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, holder, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire slot lock: %w", err)
	}
	if !ok {
		l.log.Debug().Str("slot_id", slotID.String()).Msg("slot lock held elsewhere")
		return ErrLockNotAcquired
	}

	// release with a fresh context so a cancelled request still frees the key
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		released, err := releaseScript.Run(releaseCtx, l.client, []string{key}, holder).Int()
		switch {
		case err != nil && !errors.Is(err, redis.Nil):
			l.log.Warn().Err(err).Str("slot_id", slotID.String()).Msg("release slot lock")
		case released == 0:
			l.log.Warn().Str("slot_id", slotID.String()).Dur("ttl", l.ttl).Msg("slot lock expired before release")
		}
	}()

	fnCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()
	return fn(fnCtx)
}

// releaseScript deletes the key only while it still names this holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// NoopLocker runs fn directly. The database conditional update remains
// the authority on slot state; used by tests and single-instance tooling.
type NoopLocker struct{}

func (NoopLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
