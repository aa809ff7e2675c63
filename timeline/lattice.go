package timeline

import "fmt"

// pairKey identifies a communication primitive by its tagged
// endpoints, e.g. {"cpu", "gpu0"}.
type pairKey struct{ src, dst string }

// threadKey identifies a runtime primitive by the (pid, tid) pair
// that issued the calls.
type threadKey struct {
	pid int64
	tid uint64
}

// KernelKey is the canonical key function for kernel trackers:
// (device_id, name) (spec.md §4.4).
type KernelKey struct {
	Device int64
	Name   string
}

// CommKey is the canonical key function for communication trackers:
// (src_tag, dst_tag), each "cpu" or "gpuN".
type CommKey struct {
	Src, Dst string
}

// RuntimeKey is the canonical key function for runtime trackers:
// (pid, tid, call_name).
type RuntimeKey struct {
	PID  int64
	TID  uint64
	Call string
}

// Lattice is the full reactive DAG for one analysis run: the
// dynamically discovered per-resource primitives, the three canonical
// any_* aggregates, their exposed_* derivatives, and the trackers
// bound to the any_* nodes for per-key breakdowns (spec.md §4.4).
type Lattice struct {
	kernelByDevice  map[int64]*Primitive
	commByPair      map[pairKey]*Primitive
	runtimeByThread map[threadKey]*Primitive

	AnyGPUKernel *Any
	AnyComm      *Any
	AnyRuntime   *Any

	ExposedGPUKernel Node
	ExposedComm      Node
	ExposedRuntime   Node

	KernelTracker  *Tracker[KernelKey]
	CommTracker    *Tracker[CommKey]
	RuntimeTracker *Tracker[RuntimeKey]
}

// NewLattice builds the canonical lattice with no resources tracked
// yet; resources are registered lazily via Kernel/Comm/Runtime as the
// analysis driver discovers them in the edge stream.
func NewLattice() *Lattice {
	anyGPU := NewAny()
	anyComm := NewAny()
	anyRuntime := NewAny()

	l := &Lattice{
		kernelByDevice:   make(map[int64]*Primitive),
		commByPair:       make(map[pairKey]*Primitive),
		runtimeByThread:  make(map[threadKey]*Primitive),
		AnyGPUKernel:     anyGPU,
		AnyComm:          anyComm,
		AnyRuntime:       anyRuntime,
		ExposedGPUKernel: And(anyGPU, Not(Or(anyComm, anyRuntime))),
		ExposedComm:      And(anyComm, Not(Or(anyGPU, anyRuntime))),
		ExposedRuntime:   And(anyRuntime, Not(Or(anyGPU, anyComm))),
	}
	l.KernelTracker = Bind[KernelKey](anyGPU)
	l.CommTracker = Bind[CommKey](anyComm)
	l.RuntimeTracker = Bind[RuntimeKey](anyRuntime)
	return l
}

// Init runs the deferred epoch initialization on the three exposed_*
// nodes (and, transitively, their internal OR subexpressions).
func (l *Lattice) Init(epoch int64) {
	Init(l.ExposedGPUKernel, epoch)
	Init(l.ExposedComm, epoch)
	Init(l.ExposedRuntime, epoch)
}

// Kernel returns the per-GPU kernel primitive for deviceID, creating
// and wiring it into any_gpu_kernel on first use.
func (l *Lattice) Kernel(deviceID int64) *Primitive {
	if p, ok := l.kernelByDevice[deviceID]; ok {
		return p
	}
	p := NewPrimitive()
	l.kernelByDevice[deviceID] = p
	l.AnyGPUKernel.Track(p)
	return p
}

// Comm returns the communication primitive for the (src, dst) tagged
// pair, creating and wiring it into any_comm on first use.
func (l *Lattice) Comm(src, dst string) *Primitive {
	key := pairKey{src, dst}
	if p, ok := l.commByPair[key]; ok {
		return p
	}
	p := NewPrimitive()
	l.commByPair[key] = p
	l.AnyComm.Track(p)
	return p
}

// Runtime returns the per-thread runtime primitive for (pid, tid),
// creating and wiring it into any_runtime on first use.
func (l *Lattice) Runtime(pid int64, tid uint64) *Primitive {
	key := threadKey{pid, tid}
	if p, ok := l.runtimeByThread[key]; ok {
		return p
	}
	p := NewPrimitive()
	l.runtimeByThread[key] = p
	l.AnyRuntime.Track(p)
	return p
}

// Unterminated reports every resource primitive still at nonzero
// depth at EOF — a malformed, unterminated interval (spec.md §4.5).
func (l *Lattice) Unterminated() []string {
	var bad []string
	for id, p := range l.kernelByDevice {
		if p.Depth() != 0 {
			bad = append(bad, deviceLabel(id))
		}
	}
	for pair, p := range l.commByPair {
		if p.Depth() != 0 {
			bad = append(bad, pair.src+"->"+pair.dst)
		}
	}
	for thr, p := range l.runtimeByThread {
		if p.Depth() != 0 {
			bad = append(bad, threadLabel(thr))
		}
	}
	return bad
}

func deviceLabel(id int64) string { return fmt.Sprintf("gpu%d", id) }

func threadLabel(t threadKey) string { return fmt.Sprintf("pid=%d tid=%d", t.pid, t.tid) }
