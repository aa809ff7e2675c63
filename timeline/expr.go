package timeline

import "time"

// initializer is implemented by nodes that need a deferred first
// evaluation once the epoch timestamp (the first edge's ts) is known.
// Primitives need no deferred step — they are correctly inactive from
// construction — so only expression nodes implement it.
type initializer interface {
	init(ts int64)
}

// Init runs the deferred initialization pass on root and everything
// beneath it, establishing each expression node's initial active flag
// and, for any node active from epoch, its activatedAt. Safe to call
// more than once across nodes that share subexpressions — each node
// initializes itself at most once.
func Init(root Node, epoch int64) {
	if in, ok := root.(initializer); ok {
		in.init(epoch)
	}
}

type role int

const (
	roleNot role = iota
	roleAnd
	roleOr
)

// exprNode is an AND/OR/NOT node in the boolean-expression DAG.
type exprNode struct {
	role        role
	children    []Node
	active      bool
	activatedAt int64
	total       time.Duration
	parents     []notifiable
	initialized bool
}

func newExpr(role role, children ...Node) *exprNode {
	n := &exprNode{role: role, children: children}
	for _, c := range children {
		c.addParent(n)
	}
	return n
}

// Not returns a node active iff child is inactive.
func Not(child Node) Node { return newExpr(roleNot, child) }

// And returns a node active iff both children are active.
func And(lhs, rhs Node) Node { return newExpr(roleAnd, lhs, rhs) }

// Or returns a node active iff either child is active.
func Or(lhs, rhs Node) Node { return newExpr(roleOr, lhs, rhs) }

// OrAll folds a variadic OR over a fixed set of nodes. The lattice's
// any_* nodes use Any instead, since their children are discovered
// during the run. Panics if nodes is empty.
func OrAll(nodes ...Node) Node {
	if len(nodes) == 0 {
		panic("timeline: OrAll requires at least one node")
	}
	acc := nodes[0]
	for _, n := range nodes[1:] {
		acc = Or(acc, n)
	}
	return acc
}

func (n *exprNode) eval() bool {
	switch n.role {
	case roleNot:
		return !n.children[0].Active()
	case roleAnd:
		return n.children[0].Active() && n.children[1].Active()
	case roleOr:
		return n.children[0].Active() || n.children[1].Active()
	}
	return false
}

func (n *exprNode) init(ts int64) {
	if n.initialized {
		return
	}
	for _, c := range n.children {
		if in, ok := c.(initializer); ok {
			in.init(ts)
		}
	}
	n.initialized = true
	n.active = n.eval()
	if n.active {
		n.activatedAt = ts
	}
}

func (n *exprNode) notify(ts int64) {
	if !n.initialized {
		n.init(ts)
		return
	}
	next := n.eval()
	if next == n.active {
		return
	}
	if next {
		n.activatedAt = ts
	} else {
		n.total += time.Duration(ts - n.activatedAt)
	}
	n.active = next
	n.notifyParents(ts)
}

func (n *exprNode) notifyParents(ts int64) {
	for _, parent := range n.parents {
		parent.notify(ts)
	}
}

func (n *exprNode) Active() bool          { return n.active }
func (n *exprNode) Time() time.Duration   { return n.total }
func (n *exprNode) addParent(p notifiable) { n.parents = append(n.parents, p) }
