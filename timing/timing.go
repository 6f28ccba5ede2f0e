// Package timing supplies the throttle/debounce capability the engine's
// schedulers are built on. The engine depends only on the Provider contract,
// so the scheduling policy is swappable — and testable without timers via
// Manual.
package timing

import (
	"sync"
	"time"
)

// Config tunes one throttled or debounced function.
type Config struct {
	// Delay is the quiet window. Default: 250ms.
	Delay time.Duration
	// MaxWait bounds how long a debounced call can keep being pushed back
	// by fresh triggers. 0 means unbounded.
	MaxWait time.Duration
}

func (c *Config) defaults() {
	if c.Delay <= 0 {
		c.Delay = 250 * time.Millisecond
	}
}

// Provider builds throttled and debounced triggers around a function.
// The returned trigger is safe to call from any goroutine.
type Provider interface {
	// Throttle fires fn at most once per Delay: immediately when idle,
	// with one trailing-edge fire collapsing triggers inside the window.
	Throttle(fn func(), cfg Config) func()
	// Debounce fires fn on the trailing edge of Delay after the last
	// trigger, but never later than MaxWait after the first pending one.
	Debounce(fn func(), cfg Config) func()
	// Stop flips the liveness flag: already-scheduled callbacks become
	// no-ops. Idempotent.
	Stop()
}

// Real is the timer-backed Provider.
type Real struct {
	mu      sync.Mutex
	stopped bool
	timers  []*time.Timer
}

// New returns a timer-backed Provider.
func New() *Real { return &Real{} }

// Stop implements Provider.
func (p *Real) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	for _, t := range p.timers {
		t.Stop()
	}
	p.timers = nil
}

func (p *Real) alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.stopped
}

func (p *Real) track(t *time.Timer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		t.Stop()
		return
	}
	p.timers = append(p.timers, t)
}

// Throttle implements Provider.
func (p *Real) Throttle(fn func(), cfg Config) func() {
	cfg.defaults()

	var mu sync.Mutex
	var last time.Time
	var trailing *time.Timer

	fire := func() {
		mu.Lock()
		trailing = nil
		last = time.Now()
		mu.Unlock()
		if p.alive() {
			fn()
		}
	}

	return func() {
		if !p.alive() {
			return
		}
		mu.Lock()
		now := time.Now()
		if since := now.Sub(last); since >= cfg.Delay {
			last = now
			mu.Unlock()
			fn()
			return
		} else if trailing == nil {
			trailing = time.AfterFunc(cfg.Delay-since, fire)
			p.track(trailing)
		}
		mu.Unlock()
	}
}

// Debounce implements Provider.
func (p *Real) Debounce(fn func(), cfg Config) func() {
	cfg.defaults()

	var mu sync.Mutex
	var timer *time.Timer
	var firstPending time.Time

	fire := func() {
		mu.Lock()
		timer = nil
		firstPending = time.Time{}
		mu.Unlock()
		if p.alive() {
			fn()
		}
	}

	return func() {
		if !p.alive() {
			return
		}
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if firstPending.IsZero() {
			firstPending = now
		}
		if timer != nil {
			timer.Stop()
		}

		delay := cfg.Delay
		if cfg.MaxWait > 0 {
			if remaining := cfg.MaxWait - now.Sub(firstPending); remaining < delay {
				delay = max(remaining, 0)
			}
		}
		timer = time.AfterFunc(delay, fire)
		p.track(timer)
	}
}
