package timing

// Manual is a Provider for tests and single-threaded embedding: triggers
// mark a pending fire, and Fire runs everything pending. No timers, no
// goroutines, fully deterministic.
type Manual struct {
	pending []*manualEntry
	stopped bool
}

type manualEntry struct {
	fn    func()
	armed bool
}

// NewManual returns a deterministic Provider.
func NewManual() *Manual { return &Manual{} }

// Throttle implements Provider. Manual triggers always collapse to one
// pending fire per Fire cycle.
func (m *Manual) Throttle(fn func(), _ Config) func() {
	return m.register(fn)
}

// Debounce implements Provider. Same trailing-only semantics as Throttle in
// manual mode.
func (m *Manual) Debounce(fn func(), _ Config) func() {
	return m.register(fn)
}

func (m *Manual) register(fn func()) func() {
	e := &manualEntry{fn: fn}
	m.pending = append(m.pending, e)
	return func() {
		if m.stopped {
			return
		}
		e.armed = true
	}
}

// Fire runs every armed callback once and disarms it.
func (m *Manual) Fire() {
	if m.stopped {
		return
	}
	for _, e := range m.pending {
		if e.armed {
			e.armed = false
			e.fn()
		}
	}
}

// Armed reports whether any callback is waiting for Fire.
func (m *Manual) Armed() bool {
	for _, e := range m.pending {
		if e.armed {
			return true
		}
	}
	return false
}

// Stop implements Provider.
func (m *Manual) Stop() {
	m.stopped = true
	for _, e := range m.pending {
		e.armed = false
	}
}
