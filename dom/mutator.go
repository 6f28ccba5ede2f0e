package dom

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"

	"github.com/hazyhaar/travesty/mutation"
)

// Mutator is the engine's write handle. Every structural write through it is
// observed with SelfCaused set, which is what lets the watcher drop the
// engine's own mutations instead of re-annotating them. Attribute writes are
// not observed at all: they never create annotation candidates.
type Mutator struct {
	d *Document
}

// Mutator returns the engine-side write handle.
func (d *Document) Mutator() *Mutator { return &Mutator{d: d} }

// ReplaceWithSequence splices seq into old's position and detaches old.
// Either the whole sequence goes in or, on a precondition failure, nothing
// does — a partial rewrite must never leave the page broken.
func (m *Mutator) ReplaceWithSequence(old *html.Node, seq []*html.Node) error {
	if old == nil || old.Parent == nil {
		return errors.New("dom: replace target is nil or detached")
	}
	for _, n := range seq {
		if n == nil {
			return errors.New("dom: nil node in replacement sequence")
		}
		if n.Parent != nil {
			return fmt.Errorf("dom: replacement node %q already attached", n.Data)
		}
	}

	parent := old.Parent
	for _, n := range seq {
		parent.InsertBefore(n, old)
	}
	parent.RemoveChild(old)

	for _, n := range seq {
		m.d.notify(Change{Op: mutation.OpInsert, Node: n, SelfCaused: true})
	}
	m.d.notify(Change{Op: mutation.OpRemove, Node: old, SelfCaused: true})
	return nil
}

// AppendChild attaches a detached node as parent's last child.
func (m *Mutator) AppendChild(parent, n *html.Node) error {
	if parent == nil || n == nil {
		return errors.New("dom: nil node in append")
	}
	if n.Parent != nil {
		return errors.New("dom: append of already-attached node")
	}
	parent.AppendChild(n)
	m.d.notify(Change{Op: mutation.OpInsert, Node: n, SelfCaused: true})
	return nil
}

// Remove detaches a node.
func (m *Mutator) Remove(n *html.Node) error {
	if n == nil || n.Parent == nil {
		return errors.New("dom: remove of nil or detached node")
	}
	n.Parent.RemoveChild(n)
	m.d.notify(Change{Op: mutation.OpRemove, Node: n, SelfCaused: true})
	return nil
}

// SetText replaces a text node's character data.
func (m *Mutator) SetText(n *html.Node, data string) error {
	if n == nil || n.Type != html.TextNode {
		return errors.New("dom: SetText on non-text node")
	}
	n.Data = data
	m.d.notify(Change{Op: mutation.OpText, Node: n, SelfCaused: true})
	return nil
}

// SetAttr sets or replaces an attribute. Unobserved.
func (m *Mutator) SetAttr(n *html.Node, key, val string) error {
	if n == nil || n.Type != html.ElementNode {
		return errors.New("dom: SetAttr on non-element node")
	}
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return nil
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	return nil
}

// DelAttr removes an attribute if present. Unobserved.
func (m *Mutator) DelAttr(n *html.Node, key string) {
	if n == nil {
		return
	}
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}
