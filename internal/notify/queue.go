package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrQueueFull   = errors.New("notification queue full")
	ErrQueueClosed = errors.New("notification queue closed")
)

// Queue hands messages to a background worker so request handlers never
// wait on delivery. Each delivery gets its own timeout.
type Queue struct {
	next    Notifier
	msgs    chan Message
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(next Notifier, size int, timeout time.Duration, log zerolog.Logger) *Queue {
	q := &Queue{
		next:    next,
		msgs:    make(chan Message, size),
		timeout: timeout,
		log:     log.With().Str("component", "notify-queue").Logger(),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Send enqueues msg without blocking. The caller's context is not carried
// over since delivery outlives the request.
func (q *Queue) Send(_ context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.msgs <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.msgs)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) run() {
	defer q.wg.Done()
	for msg := range q.msgs {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := q.next.Send(ctx, msg)
		cancel()
		if err != nil {
			q.log.Warn().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("notification delivery failed")
		}
	}
}
