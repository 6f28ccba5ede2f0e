package dom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Node paths are the addressing scheme for mutation records: an xpath-like
// string such as "/html/body/div[2]/p" or "/html/body/p/text()". Indices are
// 1-based, counted among same-name siblings, and omitted when unambiguous.

// PathOf computes the path of a node from the document root.
func PathOf(n *html.Node) string {
	if n == nil {
		return ""
	}

	var parts []string
	for cur := n; cur != nil && cur.Type != html.DocumentNode; cur = cur.Parent {
		parts = append(parts, pathSegment(cur))
	}

	// Reverse into document order.
	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		sb.WriteByte('/')
		sb.WriteString(parts[i])
	}
	return sb.String()
}

func pathSegment(n *html.Node) string {
	var name string
	switch n.Type {
	case html.TextNode:
		name = "text()"
	case html.CommentNode:
		name = "comment()"
	case html.ElementNode:
		name = strings.ToLower(n.Data)
	default:
		name = "node()"
	}

	idx, total := siblingIndex(n, name)
	if total > 1 {
		return fmt.Sprintf("%s[%d]", name, idx)
	}
	return name
}

// siblingIndex returns the node's 1-based position among same-name siblings
// and the total count of those siblings.
func siblingIndex(n *html.Node, name string) (idx, total int) {
	if n.Parent == nil {
		return 1, 1
	}
	idx = 1
	for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
		if !sameName(sib, name) {
			continue
		}
		total++
		if sib == n {
			idx = total
		}
	}
	return idx, total
}

func sameName(n *html.Node, name string) bool {
	switch name {
	case "text()":
		return n.Type == html.TextNode
	case "comment()":
		return n.Type == html.CommentNode
	default:
		return n.Type == html.ElementNode && strings.EqualFold(n.Data, name)
	}
}

// Resolve walks a path from the document root. Returns nil if any segment
// fails to match.
func (d *Document) Resolve(path string) *html.Node {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}

	cur := d.root
	for _, seg := range strings.Split(path, "/") {
		name, idx := parseSegment(seg)
		if name == "" {
			return nil
		}

		var next *html.Node
		count := 0
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if !sameName(c, name) {
				continue
			}
			count++
			if count == idx {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// parseSegment splits "div[2]" into ("div", 2); a bare name means index 1.
func parseSegment(seg string) (string, int) {
	open := strings.IndexByte(seg, '[')
	if open < 0 {
		return seg, 1
	}
	close := strings.IndexByte(seg, ']')
	if close < open {
		return "", 0
	}
	idx, err := strconv.Atoi(seg[open+1 : close])
	if err != nil || idx < 1 {
		return "", 0
	}
	return seg[:open], idx
}
