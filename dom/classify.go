package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind is the annotation-relevant classification of a node, established once
// per node at first visit and cached by the annotator.
type Kind int

const (
	// KindText is a character-data leaf eligible for scanning.
	KindText Kind = iota
	// KindElement is an ordinary element whose children are walked.
	KindElement
	// KindSkip is structurally uninteresting content: comments, doctypes,
	// and containers whose character data is never visible prose.
	KindSkip
)

// Classify determines a node's kind. Purely structural — content is never
// inspected.
func Classify(n *html.Node) Kind {
	switch n.Type {
	case html.TextNode:
		return KindText
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template,
			atom.Iframe, atom.Svg, atom.Canvas:
			return KindSkip
		}
		return KindElement
	default:
		return KindSkip
	}
}

// Editable reports whether an element is an editable region. Both bare
// contenteditable and contenteditable="true"/"plaintext-only" count; an
// explicit "false" does not.
func Editable(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key != "contenteditable" {
			continue
		}
		switch strings.ToLower(a.Val) {
		case "", "true", "plaintext-only":
			return true
		default:
			return false
		}
	}
	return false
}

// FormControl reports whether an element is a form-input value container.
func FormControl(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Input, atom.Textarea, atom.Select, atom.Option,
		atom.Optgroup, atom.Button, atom.Datalist:
		return true
	}
	return false
}
