// Package dom owns the parsed HTML document the engine annotates.
//
// The Document is the single write gate to the tree. Host-page changes come
// in as mutation.Records through Apply; the engine's own rewrites go through
// the Mutator handle. Both paths notify the registered observer, but Mutator
// writes are tagged self-caused so the watcher can keep them out of its
// batches — without that tag the engine would observe its own wrapper
// insertions and loop forever.
//
// The model is single-threaded and cooperative: all reads and writes happen
// on the turn of the event loop that received the triggering event, so the
// Document carries no locks.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/travesty/mutation"
)

// ErrNodeNotFound is returned when a record's path resolves to nothing.
var ErrNodeNotFound = errors.New("dom: node not found")

// Change is one observed write to the tree. Node is the inserted subtree
// root, the removed node, or the text node whose data changed.
type Change struct {
	Op         mutation.Op
	Node       *html.Node
	SelfCaused bool
}

// Document is one parsed page. Create with Parse; never share across
// goroutines.
type Document struct {
	root     *html.Node
	body     *html.Node
	observer func(Change)
	policy   *bluemonday.Policy
}

// Parse builds a Document from raw HTML.
func Parse(raw []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}

	d := &Document{
		root:   root,
		policy: bluemonday.UGCPolicy(),
	}
	d.body = d.findElement(atom.Body)
	if d.body == nil {
		return nil, errors.New("dom: document has no body")
	}
	return d, nil
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the <body> element.
func (d *Document) Body() *html.Node { return d.body }

// HTML serializes the whole document.
func (d *Document) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return nil, fmt.Errorf("dom: render: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderNode serializes one subtree.
func RenderNode(n *html.Node) string {
	var buf bytes.Buffer
	html.Render(&buf, n)
	return buf.String()
}

// SetObserver registers the change observer. At most one; the watcher owns it.
func (d *Document) SetObserver(fn func(Change)) { d.observer = fn }

func (d *Document) notify(c Change) {
	if d.observer != nil {
		d.observer(c)
	}
}

// Apply executes a host-side mutation record against the tree. Inserted
// fragments are sanitized before splicing: host markup is untrusted and must
// never smuggle script content into the owned tree.
func (d *Document) Apply(rec mutation.Record) error {
	switch rec.Op {
	case mutation.OpText:
		n := d.Resolve(rec.Path)
		if n == nil {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, rec.Path)
		}
		if n.Type != html.TextNode {
			return fmt.Errorf("dom: text op on non-text node at %s", rec.Path)
		}
		n.Data = rec.Value
		d.notify(Change{Op: mutation.OpText, Node: n})
		return nil

	case mutation.OpRemove:
		n := d.Resolve(rec.Path)
		if n == nil {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, rec.Path)
		}
		if n.Parent == nil {
			return fmt.Errorf("dom: remove of detached node at %s", rec.Path)
		}
		n.Parent.RemoveChild(n)
		d.notify(Change{Op: mutation.OpRemove, Node: n})
		return nil

	case mutation.OpInsert:
		parent := d.Resolve(rec.Path)
		if parent == nil {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, rec.Path)
		}
		if parent.Type != html.ElementNode {
			return fmt.Errorf("dom: insert into non-element at %s", rec.Path)
		}
		nodes, err := d.parseFragment(rec.HTML, parent)
		if err != nil {
			return fmt.Errorf("dom: insert at %s: %w", rec.Path, err)
		}
		for _, n := range nodes {
			parent.AppendChild(n)
			d.notify(Change{Op: mutation.OpInsert, Node: n})
		}
		return nil

	default:
		return fmt.Errorf("dom: unknown op %q", rec.Op)
	}
}

// parseFragment sanitizes and parses an HTML fragment in the context of the
// receiving parent element.
func (d *Document) parseFragment(fragment string, parent *html.Node) ([]*html.Node, error) {
	clean := d.policy.Sanitize(fragment)
	nodes, err := html.ParseFragment(strings.NewReader(clean), parent)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	return nodes, nil
}

// findElement returns the first element with the given atom.
func (d *Document) findElement(a atom.Atom) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == a {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return found
}

// NewElement builds a detached element node.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// NewText builds a detached text node.
func NewText(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}

// Attr returns the value of the named attribute and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
