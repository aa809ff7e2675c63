package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// KeyedTotal is one row of a per-key breakdown, already sorted
// descending by Time by the analysis driver.
type KeyedTotal struct {
	Key  string
	Time time.Duration
}

// KeyedBytes is one row of a per-key byte-volume breakdown, already
// sorted descending by Bytes by the analysis driver.
type KeyedBytes struct {
	Key   string
	Bytes int64
}

// Report is the final output of one analysis run (spec.md §6).
type Report struct {
	// SelectedRangeCoverage is the total wall time covered by selected
	// ranges after merging overlaps (spec.md §4.3).
	SelectedRangeCoverage time.Duration

	AnyComm         time.Duration
	ExposedComm     time.Duration
	CommByPair      []KeyedTotal
	CommBytesByPair []KeyedBytes

	AnyRuntime      time.Duration
	ExposedRuntime  time.Duration
	RuntimeByThread []KeyedTotal
	RuntimeByCall   []KeyedTotal
	RuntimeDetail   []KeyedTotal // keyed by (pid,tid,call)

	AnyGPUKernel      time.Duration
	ExposedGPUKernel  time.Duration
	KernelByDevice    []KeyedTotal
	KernelByDeviceFn  []KeyedTotal // keyed by (device,name)

	Warnings []string
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.9f", d.Seconds())
}

func writeSection(b *strings.Builder, title string, rows []KeyedTotal) {
	fmt.Fprintf(b, "  %s:\n", title)
	if len(rows) == 0 {
		b.WriteString("    (none)\n")
		return
	}
	for _, row := range rows {
		fmt.Fprintf(b, "    %-40s %s s\n", row.Key, seconds(row.Time))
	}
}

func writeBytesSection(b *strings.Builder, title string, rows []KeyedBytes) {
	fmt.Fprintf(b, "  %s:\n", title)
	if len(rows) == 0 {
		b.WriteString("    (none)\n")
		return
	}
	for _, row := range rows {
		fmt.Fprintf(b, "    %-40s %s\n", row.Key, humanize.Bytes(uint64(row.Bytes)))
	}
}

// Render formats the report in the fixed textual layout spec.md §6
// requires: selected-range coverage, then the communication, runtime,
// and kernel sections in that order, each with any/exposed totals
// followed by per-key breakdowns.
func (r *Report) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "selected range coverage: %s s\n\n", seconds(r.SelectedRangeCoverage))

	b.WriteString("communication:\n")
	fmt.Fprintf(&b, "  any:      %s s\n", seconds(r.AnyComm))
	fmt.Fprintf(&b, "  exposed:  %s s\n", seconds(r.ExposedComm))
	writeSection(&b, "by pair", r.CommByPair)
	writeBytesSection(&b, "bytes by pair", r.CommBytesByPair)
	b.WriteString("\n")

	b.WriteString("runtime:\n")
	fmt.Fprintf(&b, "  any:      %s s\n", seconds(r.AnyRuntime))
	fmt.Fprintf(&b, "  exposed:  %s s\n", seconds(r.ExposedRuntime))
	writeSection(&b, "by thread", r.RuntimeByThread)
	writeSection(&b, "by call", r.RuntimeByCall)
	writeSection(&b, "detail (pid, tid, call)", r.RuntimeDetail)
	b.WriteString("\n")

	b.WriteString("gpu kernel:\n")
	fmt.Fprintf(&b, "  any:      %s s\n", seconds(r.AnyGPUKernel))
	fmt.Fprintf(&b, "  exposed:  %s s\n", seconds(r.ExposedGPUKernel))
	writeSection(&b, "by gpu", r.KernelByDevice)
	writeSection(&b, "by (gpu, name)", r.KernelByDeviceFn)

	if len(r.Warnings) > 0 {
		b.WriteString("\nwarnings:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	return b.String()
}
