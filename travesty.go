// Package travesty rewrites matched words and phrases inside the visible
// text of a live HTML document with satirical substitutes, while preserving
// every original for accessible on-demand disclosure.
//
// The engine owns one document at a time. Host-page changes are delivered as
// mutation.Records through ApplyHost; the watcher batches the resulting
// candidates and the annotator rewrites them in place, marking everything it
// touches so no text unit is ever processed twice. The disclosure controller
// serves the preserved originals through one shared, accessible popup.
//
// travesty annotates, it does not interpret: matching is pattern-based, rule
// order is the whole tie-break policy, and unmatched content is left alone.
package travesty

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/travesty/annotate"
	"github.com/hazyhaar/travesty/disclose"
	"github.com/hazyhaar/travesty/dom"
	"github.com/hazyhaar/travesty/mutation"
	"github.com/hazyhaar/travesty/rules"
	"github.com/hazyhaar/travesty/timing"
)

// Engine is the top-level orchestrator. Create one per document.
type Engine struct {
	cfg      *Config
	reg      *rules.Registry
	provider timing.Provider
	logger   *slog.Logger

	doc     *dom.Document
	ann     *annotate.Annotator
	watcher *Watcher
	disc    *disclose.Controller

	started bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimingProvider overrides the default timer-backed scheduler. Tests
// pass timing.NewManual() to drive flushes deterministically.
func WithTimingProvider(p timing.Provider) Option {
	return func(e *Engine) { e.provider = p }
}

// New creates an Engine. The registry is a required collaborator: without
// one the page would be silently left unprotected, so this fails loudly.
func New(cfg *Config, reg *rules.Registry, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if reg == nil {
		return nil, errors.New("travesty: nil registry")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg.applyDefaults()
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{cfg: cfg, reg: reg, logger: logger}
	for _, o := range opts {
		o(e)
	}
	if e.provider == nil {
		e.provider = timing.New()
	}
	return e, nil
}

// LoadDocument parses the page and wires the annotator, watcher, and
// disclosure controller around it.
func (e *Engine) LoadDocument(raw []byte) error {
	doc, err := dom.Parse(raw)
	if err != nil {
		return fmt.Errorf("travesty: load document: %w", err)
	}

	ann, err := annotate.New(annotate.Config{
		Doc:          doc,
		Registry:     e.reg,
		WrapperClass: e.cfg.WrapperClass,
		Logger:       e.logger,
	})
	if err != nil {
		return fmt.Errorf("travesty: annotator: %w", err)
	}

	disc, err := disclose.New(doc, e.provider, e.cfg.disclosure(), e.logger)
	if err != nil {
		return fmt.Errorf("travesty: disclosure: %w", err)
	}

	e.doc = doc
	e.ann = ann
	e.disc = disc
	e.watcher = newWatcher(doc, ann, e.provider, e.cfg.debounce(), e.logger)
	return nil
}

// Start runs the initial full pass and, when incremental observation is
// available, arms the watcher. Without it the engine degrades to the initial
// pass only.
func (e *Engine) Start() error {
	if e.doc == nil {
		return errors.New("travesty: no document loaded")
	}
	if e.started {
		return errors.New("travesty: already started")
	}
	e.started = true

	e.ann.Walk(e.doc.Body())

	if e.cfg.Incremental {
		e.watcher.Start()
	} else {
		e.logger.Info("travesty: observation unavailable, initial pass only")
	}

	e.logger.Info("travesty: started",
		"rules", e.reg.Len(), "wrappers", e.ann.Wrappers(),
		"incremental", e.cfg.Incremental)
	return nil
}

// ApplyHost executes one host-side mutation record against the document.
// Resolution failures are per-node errors: logged, skipped, never fatal to
// the stream.
func (e *Engine) ApplyHost(rec mutation.Record) error {
	if e.doc == nil {
		return errors.New("travesty: no document loaded")
	}
	if err := e.doc.Apply(rec); err != nil {
		e.logger.Warn("travesty: host mutation skipped", "op", rec.Op, "path", rec.Path, "error", err)
		return err
	}
	return nil
}

// Flush drains any pending batch immediately. Useful for callers that need
// the tree settled before rendering.
func (e *Engine) Flush() {
	if e.watcher != nil {
		e.watcher.Flush()
	}
}

// HTML renders the current annotated document.
func (e *Engine) HTML() ([]byte, error) {
	if e.doc == nil {
		return nil, errors.New("travesty: no document loaded")
	}
	return e.doc.HTML()
}

// Disclosure returns the controller serving original-text popups.
func (e *Engine) Disclosure() *disclose.Controller { return e.disc }

// Stats returns the watcher's counters.
func (e *Engine) Stats() WatcherStats {
	if e.watcher == nil {
		return WatcherStats{}
	}
	return e.watcher.Stats()
}

// Stop tears the engine down: observation disconnected with any in-flight
// batch discarded, scheduled callbacks neutered, disclosure disposed,
// markers dropped. Teardown always completes; failures are logged only.
func (e *Engine) Stop() {
	if e.watcher != nil {
		e.watcher.Stop()
	}
	e.provider.Stop()
	if e.disc != nil {
		e.disc.Dispose()
	}
	if e.ann != nil {
		e.ann.Reset()
	}
	e.started = false
	e.logger.Info("travesty: stopped")
}
