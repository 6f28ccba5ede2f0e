// Package annotate implements the in-place rewriting of matched text units.
//
// The Annotator is where all mutable engine state lives: the processed-marker
// and exclusion caches. Offer is the unit of idempotence — once a text node
// has been offered, it is marked and never rescanned for its lifetime, even
// when the watcher re-reports it because of an unrelated sibling change.
package annotate

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/travesty/dom"
	"github.com/hazyhaar/travesty/idgen"
	"github.com/hazyhaar/travesty/rules"
	"github.com/hazyhaar/travesty/scan"
)

// Wrapper markup contract. The class marks a replacement wrapper, the data
// attributes carry the preserved original and the correlation ID used by the
// disclosure controller.
const (
	DefaultWrapperClass = "travesty-swap"
	AttrOriginal        = "data-travesty-original"
	AttrID              = "data-travesty-id"
	// AttrUI marks engine-owned interface elements (the disclosure popup)
	// that must never be scanned.
	AttrUI = "data-travesty-ui"
)

// maxAncestorDepth bounds the exclusion-zone ancestor walk.
const maxAncestorDepth = 64

type mark uint8

const (
	markProcessed mark = iota + 1
	markExcluded
)

// Config for creating an Annotator.
type Config struct {
	Doc          *dom.Document
	Registry     *rules.Registry
	WrapperClass string
	IDs          idgen.Generator
	Logger       *slog.Logger
}

// Annotator rewrites text units in place. Not safe for concurrent use; the
// watcher serializes all calls.
type Annotator struct {
	doc      *dom.Document
	mut      *dom.Mutator
	reg      *rules.Registry
	class    string
	newID    idgen.Generator
	logger   *slog.Logger
	marks    map[*html.Node]mark
	wrappers int
}

// New creates an Annotator. Doc and Registry are required collaborators;
// missing either is an initialization error, raised rather than degraded.
func New(cfg Config) (*Annotator, error) {
	if cfg.Doc == nil {
		return nil, errors.New("annotate: nil document")
	}
	if cfg.Registry == nil {
		return nil, errors.New("annotate: nil registry")
	}
	if cfg.WrapperClass == "" {
		cfg.WrapperClass = DefaultWrapperClass
	}
	if cfg.IDs == nil {
		cfg.IDs = idgen.Prefixed("rep_", idgen.Default)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Annotator{
		doc:    cfg.Doc,
		mut:    cfg.Doc.Mutator(),
		reg:    cfg.Registry,
		class:  cfg.WrapperClass,
		newID:  cfg.IDs,
		logger: cfg.Logger,
		marks:  make(map[*html.Node]mark),
	}, nil
}

// Walk offers every text unit under root, pruning excluded and engine-owned
// subtrees. Used for the initial full pass and for inserted subtrees.
func (a *Annotator) Walk(root *html.Node) {
	if root == nil {
		return
	}
	switch dom.Classify(root) {
	case dom.KindText:
		a.Offer(root)
		return
	case dom.KindSkip:
		return
	}

	if a.marks[root] == markExcluded || a.isWrapper(root) || isUI(root) {
		return
	}
	if dom.Editable(root) || dom.FormControl(root) {
		a.marks[root] = markExcluded
		return
	}

	// Snapshot children first: offering a text child rewrites the sibling
	// list under us.
	var kids []*html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		kids = append(kids, c)
	}
	for _, c := range kids {
		a.Walk(c)
	}
}

// Offer processes one candidate node: skip if already processed, inside an
// exclusion zone, or not a text unit; otherwise scan and rewrite. A failure
// on one node never aborts the caller's batch.
func (a *Annotator) Offer(n *html.Node) {
	if n == nil {
		a.logger.Warn("annotate: nil candidate offered")
		return
	}
	if a.marks[n] != 0 {
		return
	}
	if dom.Classify(n) != dom.KindText {
		// Watcher candidates should be text units; anything else is an
		// unexpected shape. Skip, keep going.
		a.logger.Warn("annotate: non-text candidate skipped", "node", n.Data)
		return
	}
	if a.excluded(n) {
		return
	}

	spans := scan.Scan(a.reg, n.Data)

	// Scanned is scanned, match or not. Marking before the rewrite keeps
	// at-most-once intact even if the splice below fails halfway.
	a.marks[n] = markProcessed

	if len(spans) == 0 {
		return
	}
	if err := a.rewrite(n, spans); err != nil {
		a.logger.Warn("annotate: rewrite failed, node skipped", "error", err)
	}
}

// rewrite splits the text unit around its spans and splices in wrapper
// elements. The built sequence is attached in a single replace, so the page
// ends up with either the full rewritten structure or the untouched node.
func (a *Annotator) rewrite(n *html.Node, spans []scan.Span) error {
	text := n.Data
	seq := make([]*html.Node, 0, len(spans)*2+1)
	cursor := 0

	for _, sp := range spans {
		if sp.Start < cursor || sp.End > len(text) {
			return fmt.Errorf("annotate: span [%d,%d) out of bounds", sp.Start, sp.End)
		}
		if sp.Start > cursor {
			seq = append(seq, dom.NewText(text[cursor:sp.Start]))
		}
		seq = append(seq, a.buildWrapper(sp))
		cursor = sp.End
	}
	if cursor < len(text) {
		seq = append(seq, dom.NewText(text[cursor:]))
	}

	if err := a.mut.ReplaceWithSequence(n, seq); err != nil {
		return err
	}

	// Residual plain-text remnants and the wrappers themselves are never
	// rescanned.
	for _, node := range seq {
		a.marks[node] = markProcessed
		if node.Type == html.ElementNode && node.FirstChild != nil {
			a.marks[node.FirstChild] = markProcessed
		}
	}
	a.wrappers += len(spans)
	return nil
}

// buildWrapper materializes one AnnotatedSpan. tabindex makes the wrapper
// keyboard-focusable so the disclosure focus path works without pointer use.
func (a *Annotator) buildWrapper(sp scan.Span) *html.Node {
	w := dom.NewElement("span",
		html.Attribute{Key: "class", Val: a.class},
		html.Attribute{Key: AttrOriginal, Val: sp.Original},
		html.Attribute{Key: AttrID, Val: a.newID()},
		html.Attribute{Key: "tabindex", Val: "0"},
	)
	w.AppendChild(dom.NewText(sp.Rule.Label))
	return w
}

// excluded walks ancestors up to a bounded depth looking for exclusion-zone
// or wrapper markers. On the first exclusion hit the subtree root is marked
// in one step so future mutations under it never re-walk the chain.
func (a *Annotator) excluded(n *html.Node) bool {
	depth := 0
	for cur := n.Parent; cur != nil && depth < maxAncestorDepth; cur = cur.Parent {
		depth++
		if a.marks[cur] == markExcluded {
			return true
		}
		if a.isWrapper(cur) {
			// Never annotate inside a wrapper: no nested annotation.
			a.marks[n] = markProcessed
			return true
		}
		if isUI(cur) {
			return true
		}
		if dom.Classify(cur) == dom.KindSkip {
			a.marks[cur] = markExcluded
			return true
		}
		if dom.Editable(cur) || dom.FormControl(cur) {
			a.marks[cur] = markExcluded
			return true
		}
	}
	return false
}

// isWrapper reports whether an element is a replacement wrapper created by
// this annotator (or one with the same class contract).
func (a *Annotator) isWrapper(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if _, ok := dom.Attr(n, AttrOriginal); !ok {
		return false
	}
	class, _ := dom.Attr(n, "class")
	return hasClass(class, a.class)
}

// IsWrapper reports whether a node is a replacement wrapper using the
// default class contract. The disclosure controller keys its event handling
// on this.
func IsWrapper(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if _, ok := dom.Attr(n, AttrOriginal); !ok {
		return false
	}
	class, _ := dom.Attr(n, "class")
	return hasClass(class, DefaultWrapperClass)
}

func isUI(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	_, ok := dom.Attr(n, AttrUI)
	return ok
}

func hasClass(classAttr, want string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == want {
			return true
		}
	}
	return false
}

// Processed reports whether a node carries a processed marker.
func (a *Annotator) Processed(n *html.Node) bool {
	return a.marks[n] == markProcessed
}

// Excluded reports whether a node is a cached exclusion-zone root.
func (a *Annotator) Excluded(n *html.Node) bool {
	return a.marks[n] == markExcluded
}

// Wrappers returns the number of wrapper elements created so far.
func (a *Annotator) Wrappers() int { return a.wrappers }

// Reset drops every marker. Full-teardown only; markers are otherwise
// destroyed with the document.
func (a *Annotator) Reset() {
	a.marks = make(map[*html.Node]mark)
	a.wrappers = 0
}
