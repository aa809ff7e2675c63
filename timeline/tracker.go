package timeline

import "time"

// Tracker accumulates per-key active time for records whose begin/end
// are bracketed by a bound node's active state (spec.md §4.4). It
// never sees raw edges — only the begin/end calls the analysis driver
// makes for records its key function accepts, and the notify calls
// its bound node sends on activation changes. K is the canonical key
// type for the resource class this tracker covers, e.g. a
// (device, name) pair for kernels.
type Tracker[K comparable] struct {
	node     Node
	inFlight map[K]*int64 // nil value means paused (pending start)
	totals   map[K]time.Duration
}

// Bind attaches a new Tracker to node, registering it to receive the
// node's activation-change notifications.
func Bind[K comparable](node Node) *Tracker[K] {
	t := &Tracker[K]{
		node:     node,
		inFlight: make(map[K]*int64),
		totals:   make(map[K]time.Duration),
	}
	node.addParent(t)
	return t
}

// Begin starts tracking key at ts. If the bound node is currently
// inactive, the start is recorded as pending (paused) rather than
// running.
func (t *Tracker[K]) Begin(ts int64, key K) {
	if t.node.Active() {
		start := ts
		t.inFlight[key] = &start
	} else {
		t.inFlight[key] = nil
	}
}

// End closes out key at ts, adding the elapsed running time to its
// total. A key with no running start (paused, or never begun) is
// simply dropped.
func (t *Tracker[K]) End(ts int64, key K) {
	start, ok := t.inFlight[key]
	if !ok {
		return
	}
	if start != nil {
		t.totals[key] += time.Duration(ts - *start)
	}
	delete(t.inFlight, key)
}

// notify pauses every running entry when the bound node goes
// inactive, or resumes every paused entry when it goes active.
func (t *Tracker[K]) notify(ts int64) {
	if t.node.Active() {
		for k, start := range t.inFlight {
			if start == nil {
				s := ts
				t.inFlight[k] = &s
			}
		}
		return
	}
	for k, start := range t.inFlight {
		if start != nil {
			t.totals[k] += time.Duration(ts - *start)
			t.inFlight[k] = nil
		}
	}
}

// Totals returns accumulated per-key totals. Only meaningful after
// the tracker has been closed out (every key either ended or the
// caller accepts in-flight time as lost, e.g. at EOF after validating
// every primitive is back to depth 0).
func (t *Tracker[K]) Totals() map[K]time.Duration { return t.totals }
