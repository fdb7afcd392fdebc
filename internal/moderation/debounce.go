package moderation

import (
	"sync"
	"time"
)

// DefaultDebounce is the settle window for keystroke-driven checks.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer coalesces rapid-fire inputs (e.g. a URL being typed or pasted
// character by character) so only the settled value reaches the classifier.
// Each Submit resets the timer; the callback fires once with the last value
// after the window elapses with no further input.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer creates a Debouncer with the given settle window.
// A non-positive delay uses DefaultDebounce.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Submit schedules fn(value) to run after the settle window, cancelling any
// previously scheduled call. fn runs on a timer goroutine.
func (d *Debouncer) Submit(value string, fn func(string)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { fn(value) })
}

// Stop cancels any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
