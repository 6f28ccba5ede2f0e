package travesty

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hazyhaar/travesty/annotate"
	"github.com/hazyhaar/travesty/dom"
	"github.com/hazyhaar/travesty/idgen"
	"github.com/hazyhaar/travesty/mutation"
	"github.com/hazyhaar/travesty/timing"
)

// watchState is the watcher's position in its Idle → Batching → Flushing
// cycle. Only one annotation pass is in flight at a time; the state machine
// enforces that, and the self-caused tag on engine writes is what keeps the
// watcher from feeding on its own output.
type watchState int

const (
	stateIdle watchState = iota
	stateBatching
	stateFlushing
)

// Watcher accumulates host-side document changes and schedules incremental
// annotation passes.
type Watcher struct {
	doc    *dom.Document
	ann    *annotate.Annotator
	logger *slog.Logger
	newID  idgen.Generator

	mu    sync.Mutex
	state watchState
	batch *mutation.Batch
	seq   uint64
	live  bool

	flush func() // debounced trigger

	// Counters for observability.
	observed   atomic.Int64
	selfCaused atomic.Int64
	flushes    atomic.Int64
	discarded  atomic.Int64
}

// WatcherStats are point-in-time counters.
type WatcherStats struct {
	Observed   int64 `json:"observed"`
	SelfCaused int64 `json:"self_caused"`
	Flushes    int64 `json:"flushes"`
	Discarded  int64 `json:"discarded"`
	Wrappers   int   `json:"wrappers"`
}

func newWatcher(doc *dom.Document, ann *annotate.Annotator, provider timing.Provider, cfg timing.Config, logger *slog.Logger) *Watcher {
	w := &Watcher{
		doc:    doc,
		ann:    ann,
		logger: logger,
		newID:  idgen.Default,
	}
	w.flush = provider.Debounce(w.onFlush, cfg)
	return w
}

// Start connects the watcher to the document's change stream.
func (w *Watcher) Start() {
	w.mu.Lock()
	w.live = true
	w.state = stateIdle
	w.mu.Unlock()
	w.doc.SetObserver(w.onChange)
	w.logger.Info("travesty: watcher started")
}

// onChange receives every document change. Self-caused changes (the
// annotator's own splicing, the popup install) are recorded in the counters
// but never become candidates.
func (w *Watcher) onChange(c dom.Change) {
	w.mu.Lock()
	if !w.live {
		w.mu.Unlock()
		return
	}
	w.observed.Add(1)

	if c.SelfCaused {
		w.selfCaused.Add(1)
		w.mu.Unlock()
		return
	}

	if w.batch == nil {
		w.seq++
		w.batch = &mutation.Batch{ID: w.newID(), Seq: w.seq}
	}
	if w.state == stateIdle {
		w.state = stateBatching
	}

	switch c.Op {
	case mutation.OpInsert:
		w.batch.Added = append(w.batch.Added, c.Node)
	case mutation.OpText:
		w.batch.ChangedText = append(w.batch.ChangedText, c.Node)
	case mutation.OpRemove:
		// Markers die with the node; nothing to clean up.
	}
	w.mu.Unlock()

	w.flush()
}

// onFlush drains the pending batch through the annotator. Added subtrees are
// walked in full; changed text nodes are re-offered and the annotator drops
// any that are already processed.
func (w *Watcher) onFlush() {
	w.mu.Lock()
	if !w.live || w.batch == nil {
		w.mu.Unlock()
		return
	}
	b := w.batch
	w.batch = nil
	w.state = stateFlushing
	w.mu.Unlock()

	for _, n := range b.Added {
		w.ann.Walk(n)
	}
	for _, n := range b.ChangedText {
		w.ann.Offer(n)
	}

	w.mu.Lock()
	if w.state == stateFlushing {
		if w.batch != nil {
			w.state = stateBatching
		} else {
			w.state = stateIdle
		}
	}
	w.mu.Unlock()

	w.flushes.Add(1)
	w.logger.Debug("travesty: batch flushed",
		"batch", b.ID, "seq", b.Seq,
		"added", len(b.Added), "changed", len(b.ChangedText))
}

// Flush drains any pending batch immediately, bypassing the debounce window.
func (w *Watcher) Flush() { w.onFlush() }

// Stop disconnects observation and discards any in-flight batch without
// flushing it.
func (w *Watcher) Stop() {
	w.doc.SetObserver(nil)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.live {
		return
	}
	w.live = false
	if w.batch != nil {
		w.discarded.Add(1)
		w.batch = nil
	}
	w.state = stateIdle
	w.logger.Info("travesty: watcher stopped")
}

// Stats returns the current counters.
func (w *Watcher) Stats() WatcherStats {
	return WatcherStats{
		Observed:   w.observed.Load(),
		SelfCaused: w.selfCaused.Load(),
		Flushes:    w.flushes.Load(),
		Discarded:  w.discarded.Load(),
		Wrappers:   w.ann.Wrappers(),
	}
}
