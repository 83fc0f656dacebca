// Package notify keeps short-lived user-facing notifications.
package notify

import (
	"log"
	"sync"
	"time"

	"bayt-storefront/internal/model"
	"bayt-storefront/pkg/uid"
)

const (
	// DefaultTTL matches a typical snackbar auto-hide duration.
	DefaultTTL = 5 * time.Second

	// DefaultMax is how many notifications are shown at once.
	DefaultMax = 3
)

// Notifier receives notifications.
type Notifier interface {
	Notify(variant model.Variant, message string)
}

// Queue is a bounded, expiring list of notifications.
type Queue struct {
	mu    sync.Mutex
	items []model.Notification
	ttl   time.Duration
	max   int
	now   func() time.Time
	name  string
}

// NewQueue creates a queue. Non-positive ttl or max fall back to defaults.
func NewQueue(name string, ttl time.Duration, max int) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if max <= 0 {
		max = DefaultMax
	}
	return &Queue{
		ttl:  ttl,
		max:  max,
		now:  time.Now,
		name: name,
	}
}

// WithClock replaces the time source. Intended for tests.
func (q *Queue) WithClock(now func() time.Time) *Queue {
	q.now = now
	return q
}

// Notify appends a notification, dropping the oldest if the queue is full.
func (q *Queue) Notify(variant model.Variant, message string) {
	log.Printf("[Notify] %s %s: %s", q.name, variant, message)

	now := q.now()
	n := model.Notification{
		ID:        uid.New(),
		Variant:   variant,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(q.ttl),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.pruneLocked(now), n)
	if over := len(q.items) - q.max; over > 0 {
		q.items = q.items[over:]
	}
}

// Active returns unexpired notifications, oldest first.
func (q *Queue) Active() []model.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = q.pruneLocked(q.now())
	return append([]model.Notification{}, q.items...)
}

// Dismiss removes the notification with the given ID.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) pruneLocked(now time.Time) []model.Notification {
	kept := q.items[:0]
	for _, n := range q.items {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	return kept
}

var _ Notifier = (*Queue)(nil)
