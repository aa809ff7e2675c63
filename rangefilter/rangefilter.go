// Package rangefilter restricts analysis to user-selected named
// ranges and/or explicit time spans, and computes the total wall time
// those selected ranges cover (spec.md §4.3).
package rangefilter

import (
	"sort"
	"strings"

	"github.com/openvprof/vprof/model"
)

// Span is an explicit, optionally one-sided, time bound. A nil bound
// means unbounded on that side.
type Span struct {
	Begin *int64
	End   *int64
}

func (s Span) overlaps(start, end int64) bool {
	if s.Begin != nil && end < *s.Begin {
		return false
	}
	if s.End != nil && start > *s.End {
		return false
	}
	return true
}

// Selection is the result of selecting ranges by name pattern and
// optional first-n clamp.
type Selection struct {
	Ranges []model.Range
	Spans  []Span
}

// Select filters all derived ranges to those whose name contains any
// of patterns (case-sensitive substring match), keeps only the
// earliest-starting firstN of them when firstN > 0, and carries spans
// through for the overlap test in Accepts.
func Select(all []model.Range, patterns []string, firstN int, spans []Span) Selection {
	var matched []model.Range
	for _, r := range all {
		if matchesAny(r.Name, patterns) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Start < matched[j].Start })
	if firstN > 0 && len(matched) > firstN {
		matched = matched[:firstN]
	}
	return Selection{Ranges: matched, Spans: spans}
}

func matchesAny(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// Accepts reports whether a record interval overlaps at least one
// selected range and, if spans were supplied, at least one span too
// (spec.md §4.3: the two constraints intersect).
func (s Selection) Accepts(start, end int64) bool {
	if len(s.Ranges) == 0 {
		return false
	}
	overlapsRange := false
	for _, r := range s.Ranges {
		if start <= r.End && end >= r.Start {
			overlapsRange = true
			break
		}
	}
	if !overlapsRange {
		return false
	}
	if len(s.Spans) == 0 {
		return true
	}
	for _, sp := range s.Spans {
		if sp.overlaps(start, end) {
			return true
		}
	}
	return false
}

// Coverage computes the total wall time covered by the selected
// ranges after merging overlaps, via a depth counter over the sorted
// range edges (spec.md §4.3).
func Coverage(ranges []model.Range) int64 {
	if len(ranges) == 0 {
		return 0
	}
	type edge struct {
		ts    int64
		delta int
	}
	edges := make([]edge, 0, len(ranges)*2)
	for _, r := range ranges {
		edges = append(edges, edge{r.Start, 1}, edge{r.End, -1})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].ts != edges[j].ts {
			return edges[i].ts < edges[j].ts
		}
		// Closing edges before opening edges at a tie, matching the
		// falling-before-rising convention used throughout (spec.md §4.1).
		return edges[i].delta < edges[j].delta
	})

	var total int64
	depth := 0
	var activatedAt int64
	for _, e := range edges {
		if depth == 0 && e.delta > 0 {
			activatedAt = e.ts
		}
		depth += e.delta
		if depth == 0 {
			total += e.ts - activatedAt
		}
	}
	return total
}
