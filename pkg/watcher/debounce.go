package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration is used when a non-positive duration is given.
const DefaultDebounceDuration = 200 * time.Millisecond

// Debouncer collapses a burst of triggers into one call, made once the
// burst has been quiet for the configured duration.
type Debouncer struct {
	d     time.Duration
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewDebouncer returns a debouncer waiting d after the last trigger.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{d: d}
}

// Duration returns the quiet period.
func (db *Debouncer) Duration() time.Duration { return db.d }

// Trigger (re)arms the timer; fn runs once the quiet period elapses. Only
// the fn passed to the last Trigger of a burst runs.
func (db *Debouncer) Trigger(fn func()) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.timer != nil {
		db.timer.Stop()
	}
	db.gen++
	gen := db.gen
	db.timer = time.AfterFunc(db.d, func() {
		db.mu.Lock()
		current := gen == db.gen
		db.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel drops a pending call.
func (db *Debouncer) Cancel() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
	db.gen++
}
