package timeline

import "time"

// Any is an OR node whose children are discovered incrementally as
// the analysis driver encounters new resources (a new GPU, a new
// communication pair, a new thread). A static binary Or cannot serve
// this role since its child set is fixed at construction; Any instead
// tracks an open set of primitives and recomputes its active state
// from all of them whenever one changes.
//
// Track never changes its active state — new resources begin with an
// inactive primitive — so it needs no deferred epoch initialization,
// unlike exprNode.
type Any struct {
	children    []Node
	active      bool
	activatedAt int64
	total       time.Duration
	parents     []notifiable
}

// NewAny returns an Any with no tracked resources.
func NewAny() *Any { return &Any{} }

// Track adds a newly discovered resource's primitive timeline to this
// node's OR. The resource must be inactive at the moment it is
// tracked — true for every primitive at the point of its discovery.
func (a *Any) Track(child Node) {
	a.children = append(a.children, child)
	child.addParent(a)
}

func (a *Any) Active() bool          { return a.active }
func (a *Any) Time() time.Duration   { return a.total }
func (a *Any) addParent(p notifiable) { a.parents = append(a.parents, p) }

func (a *Any) notify(ts int64) {
	next := false
	for _, c := range a.children {
		if c.Active() {
			next = true
			break
		}
	}
	if next == a.active {
		return
	}
	if next {
		a.activatedAt = ts
	} else {
		a.total += time.Duration(ts - a.activatedAt)
	}
	a.active = next
	for _, parent := range a.parents {
		parent.notify(ts)
	}
}
