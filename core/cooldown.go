package core

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// CooldownTimer is a one-second resolution countdown. Remaining is derived
// from a wall-clock deadline so scheduling delays never accumulate; the
// ticker only drives OnTick notifications and stops itself at zero.
type CooldownTimer struct {
	clock clockwork.Clock

	mu       sync.Mutex
	deadline time.Time
	stop     chan struct{}
	onTick   func(remaining int)
}

// NewCooldownTimer returns an idle timer. A nil clock uses the real clock.
func NewCooldownTimer(clock clockwork.Clock) *CooldownTimer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CooldownTimer{clock: clock}
}

// OnTick registers a callback invoked after every tick with the remaining
// seconds, including the final 0.
func (t *CooldownTimer) OnTick(fn func(remaining int)) {
	t.mu.Lock()
	t.onTick = fn
	t.mu.Unlock()
}

// Start begins a countdown of the given seconds, replacing any running one.
// Non-positive values are ignored.
func (t *CooldownTimer) Start(seconds int) {
	if seconds <= 0 {
		return
	}
	t.mu.Lock()
	t.stopLocked()
	t.deadline = t.clock.Now().Add(time.Duration(seconds) * time.Second)
	stop := make(chan struct{})
	t.stop = stop
	ticker := t.clock.NewTicker(time.Second)
	t.mu.Unlock()

	go t.run(ticker, stop)
}

// Remaining returns the whole seconds left, rounded up, never negative.
func (t *CooldownTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked()
}

// Running reports whether a countdown is active.
func (t *CooldownTimer) Running() bool { return t.Remaining() > 0 }

// Cancel stops ticking and zeroes the countdown immediately.
func (t *CooldownTimer) Cancel() {
	t.mu.Lock()
	t.stopLocked()
	t.deadline = time.Time{}
	t.mu.Unlock()
}

func (t *CooldownTimer) remainingLocked() int {
	if t.deadline.IsZero() {
		return 0
	}
	left := t.deadline.Sub(t.clock.Now())
	if left <= 0 {
		return 0
	}
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}

func (t *CooldownTimer) stopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *CooldownTimer) run(ticker clockwork.Ticker, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
		}
		t.mu.Lock()
		if t.stop != stop {
			// replaced or cancelled while the tick was pending
			t.mu.Unlock()
			return
		}
		left := t.remainingLocked()
		fn := t.onTick
		if left == 0 {
			t.stop = nil
			t.deadline = time.Time{}
		}
		t.mu.Unlock()

		if fn != nil {
			fn(left)
		}
		if left == 0 {
			return
		}
	}
}
