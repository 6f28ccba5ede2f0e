// Package mutation defines the structured change types consumed by the
// travesty engine. These are the public contract between the host page's
// event surface and the engine: whoever materializes the live document
// delivers its changes as Records, and the watcher accumulates the affected
// nodes into Batches between processing passes.
package mutation

import (
	"golang.org/x/net/html"
)

// Op is the type of document mutation.
type Op string

const (
	OpInsert Op = "insert" // subtree inserted (Record.HTML carries the serialized fragment)
	OpRemove Op = "remove" // node removed
	OpText   Op = "text"   // character data replaced (Record.Value carries the new text)
)

// Record is a single host-side document mutation, addressed by node path
// (e.g. "/html/body/div[2]/p"). For inserts the path names the parent that
// receives the fragment.
type Record struct {
	Op    Op     `json:"op"`
	Path  string `json:"path"`
	Value string `json:"value,omitempty"` // new character data for text ops
	HTML  string `json:"html,omitempty"`  // serialized fragment for insert ops
}

// Batch is the transient unit of work drained by one processing pass: the
// candidate nodes accumulated since the previous flush. Batches hold live
// tree nodes and are never serialized; they are discarded once drained.
type Batch struct {
	ID          string
	Seq         uint64
	Added       []*html.Node
	ChangedText []*html.Node
}

// Empty reports whether the batch carries no candidates.
func (b *Batch) Empty() bool {
	return len(b.Added) == 0 && len(b.ChangedText) == 0
}
