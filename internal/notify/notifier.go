package notify

import (
	"context"
	"sync"
	"time"
)

// Alerter sends operator alerts.
type Alerter interface {
	Alert(ctx context.Context, msg string)
}

// Noop is a no-op alerter.
type Noop struct{}

func (Noop) Alert(context.Context, string) {}

// Throttled forwards at most one alert per key and interval.
type Throttled struct {
	next     Alerter
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func NewThrottled(next Alerter, interval time.Duration) *Throttled {
	if next == nil {
		next = Noop{}
	}
	return &Throttled{next: next, interval: interval, now: time.Now, last: make(map[string]time.Time)}
}

// AlertKey sends msg unless an alert with the same key went out within the
// interval. It reports whether the alert was forwarded.
func (t *Throttled) AlertKey(ctx context.Context, key, msg string) bool {
	now := t.now()
	t.mu.Lock()
	if at, ok := t.last[key]; ok && now.Sub(at) < t.interval {
		t.mu.Unlock()
		return false
	}
	t.last[key] = now
	t.mu.Unlock()

	t.next.Alert(ctx, msg)
	return true
}

func (t *Throttled) Alert(ctx context.Context, msg string) {
	t.AlertKey(ctx, msg, msg)
}
