// Package util holds small parsing helpers used by the CLI layer.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTimeBound parses a --begin/--end value: either a bare integer
// (nanoseconds, absolute) or a decimal followed by "s" (seconds,
// relative to epoch — the caller adds the trace's first timestamp).
// Returns the nanosecond value and whether it was given as relative
// seconds.
func ParseTimeBound(v string) (ns int64, relative bool, err error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false, fmt.Errorf("empty time bound")
	}
	if strings.HasSuffix(v, "s") {
		secs, err := strconv.ParseFloat(strings.TrimSuffix(v, "s"), 64)
		if err != nil {
			return 0, false, fmt.Errorf("invalid relative time %q: %w", v, err)
		}
		return int64(secs * 1e9), true, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid time bound %q: %w", v, err)
	}
	return n, false, nil
}
