package timing

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebounce_TrailingEdge(t *testing.T) {
	p := New()
	defer p.Stop()

	var calls atomic.Int32
	trigger := p.Debounce(func() { calls.Add(1) }, Config{Delay: 20 * time.Millisecond})

	trigger()
	trigger()
	trigger()

	if got := calls.Load(); got != 0 {
		t.Fatalf("debounce fired on leading edge: %d calls", got)
	}

	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls: got %d, want 1 (triggers collapse)", got)
	}
}

func TestDebounce_MaxWait(t *testing.T) {
	p := New()
	defer p.Stop()

	var calls atomic.Int32
	trigger := p.Debounce(func() { calls.Add(1) },
		Config{Delay: 30 * time.Millisecond, MaxWait: 60 * time.Millisecond})

	// Keep re-triggering faster than Delay; MaxWait must force a fire.
	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		trigger()
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(60 * time.Millisecond)

	if got := calls.Load(); got < 1 {
		t.Fatalf("calls: got %d, want >= 1 (max-wait bound)", got)
	}
}

func TestThrottle_LeadingEdge(t *testing.T) {
	p := New()
	defer p.Stop()

	var calls atomic.Int32
	trigger := p.Throttle(func() { calls.Add(1) }, Config{Delay: 50 * time.Millisecond})

	trigger()
	if got := calls.Load(); got != 1 {
		t.Fatalf("throttle should fire immediately when idle: %d", got)
	}

	trigger()
	trigger()
	if got := calls.Load(); got != 1 {
		t.Fatalf("throttle fired inside window: %d", got)
	}

	time.Sleep(80 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Fatalf("calls: got %d, want 2 (one trailing fire)", got)
	}
}

func TestStop_SuppressesScheduled(t *testing.T) {
	p := New()

	var calls atomic.Int32
	trigger := p.Debounce(func() { calls.Add(1) }, Config{Delay: 20 * time.Millisecond})

	trigger()
	p.Stop()
	time.Sleep(50 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Fatalf("calls after Stop: got %d, want 0", got)
	}

	// Triggers after Stop are no-ops too.
	trigger()
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("trigger after Stop fired: %d", got)
	}
}

func TestManual_Deterministic(t *testing.T) {
	m := NewManual()

	var calls int
	trigger := m.Debounce(func() { calls++ }, Config{})

	trigger()
	trigger()
	if calls != 0 {
		t.Fatalf("manual trigger fired eagerly: %d", calls)
	}
	if !m.Armed() {
		t.Fatal("expected an armed callback")
	}

	m.Fire()
	if calls != 1 {
		t.Fatalf("calls: got %d, want 1", calls)
	}

	// Nothing armed: Fire is a no-op.
	m.Fire()
	if calls != 1 {
		t.Fatalf("calls after idle Fire: got %d, want 1", calls)
	}
}

func TestManual_Stop(t *testing.T) {
	m := NewManual()
	var calls int
	trigger := m.Throttle(func() { calls++ }, Config{})

	trigger()
	m.Stop()
	m.Fire()
	if calls != 0 {
		t.Fatalf("calls after Stop: got %d, want 0", calls)
	}
}
