// Package analysis drives one run of the timeline lattice over a
// filtered edge stream and emits the final report (spec.md §4.5).
package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/openvprof/vprof/model"
	"github.com/openvprof/vprof/rangefilter"
	"github.com/openvprof/vprof/source"
	"github.com/openvprof/vprof/timeline"
)

// Tables lists the logical tables the driver merges by default.
// memcpy2 is appended by the caller only when the store reports
// peer-to-peer support.
var Tables = []string{"runtime", "concurrent_kernel", "memcpy"}

// Run consumes stream, dropping records that sel does not accept when
// sel is non-nil, and returns the completed report. stream must yield edges in ascending
// timestamp order with falling-before-rising ties, as source.Stream
// guarantees.
func Run(stream *source.Stream, sel *rangefilter.Selection) (*model.Report, error) {
	return RunProgress(stream, sel, nil)
}

// Progress is called after every edge is consumed (whether or not it
// was accepted by the range filter), letting a caller like -watch
// mode report scan progress without the driver depending on any UI.
// lat is the live lattice for the run in progress; callbacks may read
// its any_* activation state but must not mutate it.
type Progress func(consumed int64, edge model.Edge, lat *timeline.Lattice)

// RunProgress is Run with an optional per-edge progress callback.
func RunProgress(stream *source.Stream, sel *rangefilter.Selection, onEdge Progress) (*model.Report, error) {
	d := &driver{
		lat:   timeline.NewLattice(),
		bytes: make(map[timeline.CommKey]int64),
	}

	edge, ok, err := stream.Next()
	if err != nil {
		return nil, err
	}
	if !ok {
		d.lat.Init(0)
		return d.buildReport(), nil
	}
	d.lat.Init(edge.Timestamp)

	var consumed int64
	for {
		if sel == nil || recordAccepted(sel, edge.Record) {
			d.dispatch(edge)
		}
		consumed++
		if onEdge != nil {
			onEdge(consumed, edge, d.lat)
		}
		edge, ok, err = stream.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}

	if bad := d.lat.Unterminated(); len(bad) > 0 {
		return nil, fmt.Errorf("analysis: unterminated interval(s) at EOF: %v", bad)
	}

	return d.buildReport(), nil
}

// driver holds the mutable state of one analysis run: the lattice and
// the per-pair byte counters the report's humanized breakdown needs
// (the lattice itself only accumulates time, not payload size).
type driver struct {
	lat   *timeline.Lattice
	bytes map[timeline.CommKey]int64
}

func recordAccepted(sel *rangefilter.Selection, r model.Record) bool {
	if r.Kind == model.KindRange {
		return false // ranges drive selection, they aren't activity themselves
	}
	return sel.Accepts(r.Start(), r.End())
}

func (d *driver) dispatch(edge model.Edge) {
	r := edge.Record
	switch r.Kind {
	case model.KindConcurrentKernel:
		k := r.ConcurrentKernel
		p := d.lat.Kernel(k.DeviceID)
		applyEdge(p, edge.Polarity, edge.Timestamp)
		trackEdge(d.lat.KernelTracker, edge.Polarity, edge.Timestamp, timeline.KernelKey{Device: k.DeviceID, Name: k.Name})

	case model.KindMemcpy, model.KindMemcpyP2P:
		m := r.Memcpy
		src, dst := m.SrcTag(), m.DstTag()
		p := d.lat.Comm(src, dst)
		applyEdge(p, edge.Polarity, edge.Timestamp)
		key := timeline.CommKey{Src: src, Dst: dst}
		trackEdge(d.lat.CommTracker, edge.Polarity, edge.Timestamp, key)
		if edge.Polarity == model.Rising {
			d.bytes[key] += m.Bytes
		}

	case model.KindRuntime:
		rt := r.Runtime
		if model.IsSyncCallback(rt.Cbid) {
			return
		}
		p := d.lat.Runtime(rt.PID, rt.TID)
		applyEdge(p, edge.Polarity, edge.Timestamp)
		trackEdge(d.lat.RuntimeTracker, edge.Polarity, edge.Timestamp, timeline.RuntimeKey{PID: rt.PID, TID: rt.TID, Call: rt.Name()})

	case model.KindRange:
		// Handled entirely by the range filter, not the lattice.
	}
}

func applyEdge(p *timeline.Primitive, pol model.Polarity, ts int64) {
	if pol == model.Rising {
		p.Enter(ts)
	} else {
		p.Exit(ts)
	}
}

func trackEdge[K comparable](t *timeline.Tracker[K], pol model.Polarity, ts int64, key K) {
	if pol == model.Rising {
		t.Begin(ts, key)
	} else {
		t.End(ts, key)
	}
}

func (d *driver) buildReport() *model.Report {
	lat := d.lat
	r := &model.Report{
		AnyComm:          lat.AnyComm.Time(),
		ExposedComm:      lat.ExposedComm.Time(),
		AnyRuntime:       lat.AnyRuntime.Time(),
		ExposedRuntime:   lat.ExposedRuntime.Time(),
		AnyGPUKernel:     lat.AnyGPUKernel.Time(),
		ExposedGPUKernel: lat.ExposedGPUKernel.Time(),
	}

	r.KernelByDeviceFn = sortDesc(mapTotals(lat.KernelTracker.Totals(), func(k timeline.KernelKey) string {
		return fmt.Sprintf("gpu%d: %s", k.Device, k.Name)
	}))
	r.KernelByDevice = sortDesc(groupTotals(lat.KernelTracker.Totals(), func(k timeline.KernelKey) string {
		return fmt.Sprintf("gpu%d", k.Device)
	}))

	r.CommByPair = sortDesc(mapTotals(lat.CommTracker.Totals(), func(k timeline.CommKey) string {
		return k.Src + " -> " + k.Dst
	}))
	r.CommBytesByPair = sortDescBytes(mapBytes(d.bytes, func(k timeline.CommKey) string {
		return k.Src + " -> " + k.Dst
	}))

	r.RuntimeDetail = sortDesc(mapTotals(lat.RuntimeTracker.Totals(), func(k timeline.RuntimeKey) string {
		return fmt.Sprintf("pid=%d tid=%d %s", k.PID, k.TID, k.Call)
	}))
	r.RuntimeByThread = sortDesc(groupTotals(lat.RuntimeTracker.Totals(), func(k timeline.RuntimeKey) string {
		return fmt.Sprintf("pid=%d tid=%d", k.PID, k.TID)
	}))
	r.RuntimeByCall = sortDesc(groupTotals(lat.RuntimeTracker.Totals(), func(k timeline.RuntimeKey) string {
		return k.Call
	}))

	return r
}

func mapBytes[K comparable](totals map[K]int64, label func(K) string) []model.KeyedBytes {
	out := make([]model.KeyedBytes, 0, len(totals))
	for k, v := range totals {
		out = append(out, model.KeyedBytes{Key: label(k), Bytes: v})
	}
	return out
}

func sortDescBytes(totals []model.KeyedBytes) []model.KeyedBytes {
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Bytes != totals[j].Bytes {
			return totals[i].Bytes > totals[j].Bytes
		}
		return totals[i].Key < totals[j].Key
	})
	return totals
}

// mapTotals relabels a keyed totals map 1:1 into display strings.
func mapTotals[K comparable](totals map[K]time.Duration, label func(K) string) []model.KeyedTotal {
	out := make([]model.KeyedTotal, 0, len(totals))
	for k, v := range totals {
		out = append(out, model.KeyedTotal{Key: label(k), Time: v})
	}
	return out
}

// groupTotals re-aggregates a keyed totals map under a coarser label,
// summing entries that collapse onto the same label.
func groupTotals[K comparable](totals map[K]time.Duration, label func(K) string) []model.KeyedTotal {
	grouped := make(map[string]time.Duration)
	for k, v := range totals {
		grouped[label(k)] += v
	}
	out := make([]model.KeyedTotal, 0, len(grouped))
	for k, v := range grouped {
		out = append(out, model.KeyedTotal{Key: k, Time: v})
	}
	return out
}

func sortDesc(totals []model.KeyedTotal) []model.KeyedTotal {
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Time != totals[j].Time {
			return totals[i].Time > totals[j].Time
		}
		return totals[i].Key < totals[j].Key
	})
	return totals
}
