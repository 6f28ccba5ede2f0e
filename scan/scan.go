// Package scan applies a rule registry to one text unit and yields match
// spans. The scanner is pure and stateless: same registry, same text, same
// spans, always.
//
// Claim semantics: rules run in registry precedence order, and a range
// claimed by an earlier rule is removed from consideration for every later
// rule. Matching therefore happens per still-unclaimed segment, which is
// also the whole policy for partial overlaps — a candidate straddling a
// claimed boundary is never found because no single segment contains it.
package scan

import (
	"sort"

	"github.com/hazyhaar/travesty/rules"
)

// Span is one matched range inside a text unit. Offsets are byte offsets
// into the scanned string. Spans produced by Scan are non-overlapping and
// sorted by Start.
type Span struct {
	Start    int
	End      int
	Rule     *rules.Rule
	Original string
}

// segment is a still-unclaimed [start, end) range of the input.
type segment struct {
	start, end int
}

// Scan matches text against the registry and returns the claimed spans.
// An empty result is a success outcome, not an error.
func Scan(reg *rules.Registry, text string) []Span {
	if reg == nil || text == "" {
		return nil
	}

	var spans []Span
	unclaimed := []segment{{0, len(text)}}

	for i := 0; i < reg.Len(); i++ {
		rule := reg.At(i)
		if len(unclaimed) == 0 {
			break
		}

		var next []segment
		for _, seg := range unclaimed {
			locs := rule.Pattern.FindAllStringIndex(text[seg.start:seg.end], -1)
			if len(locs) == 0 {
				next = append(next, seg)
				continue
			}

			cursor := seg.start
			for _, loc := range locs {
				start := seg.start + loc[0]
				end := seg.start + loc[1]
				spans = append(spans, Span{
					Start:    start,
					End:      end,
					Rule:     rule,
					Original: text[start:end],
				})
				if start > cursor {
					next = append(next, segment{cursor, start})
				}
				cursor = end
			}
			if cursor < seg.end {
				next = append(next, segment{cursor, seg.end})
			}
		}
		unclaimed = next
	}

	sort.Slice(spans, func(a, b int) bool { return spans[a].Start < spans[b].Start })
	return spans
}
