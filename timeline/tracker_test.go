package timeline

import "testing"

func TestTrackerAccumulatesWhileNodeActive(t *testing.T) {
	node := NewPrimitive()
	tr := Bind[string](node)

	node.Enter(0)
	tr.Begin(0, "a")
	tr.End(10, "a")

	totals := tr.Totals()
	if totals["a"].Nanoseconds() != 10 {
		t.Fatalf("expected 10ns for key a, got %v", totals["a"])
	}
}

func TestTrackerPausesWhileNodeInactive(t *testing.T) {
	node := NewPrimitive()
	tr := Bind[string](node)

	// Begin before the bound node ever activates: recorded as paused.
	tr.Begin(0, "a")
	node.Enter(5) // node activates, resumes "a" from ts=5
	node.Exit(15) // node deactivates, pauses "a", accumulating [5,15)
	tr.End(100, "a")

	totals := tr.Totals()
	if totals["a"].Nanoseconds() != 10 {
		t.Fatalf("expected 10ns (only the window while the node was active), got %v", totals["a"])
	}
}

func TestTrackerMultipleKeysIndependent(t *testing.T) {
	node := NewPrimitive()
	tr := Bind[string](node)
	node.Enter(0)

	tr.Begin(0, "a")
	tr.Begin(5, "b")
	tr.End(10, "a")
	tr.End(20, "b")

	totals := tr.Totals()
	if totals["a"].Nanoseconds() != 10 {
		t.Fatalf("expected 10ns for a, got %v", totals["a"])
	}
	if totals["b"].Nanoseconds() != 15 {
		t.Fatalf("expected 15ns for b, got %v", totals["b"])
	}
}

func TestTrackerEndWithoutBeginIsIgnored(t *testing.T) {
	node := NewPrimitive()
	tr := Bind[string](node)
	node.Enter(0)

	tr.End(10, "never-begun")

	if len(tr.Totals()) != 0 {
		t.Fatalf("expected no totals recorded for an unbegun key")
	}
}

func TestTrackerStructuredKey(t *testing.T) {
	node := NewPrimitive()
	tr := Bind[KernelKey](node)
	node.Enter(0)

	key := KernelKey{Device: 0, Name: "matmul"}
	tr.Begin(0, key)
	tr.End(100, key)

	if got := tr.Totals()[key].Nanoseconds(); got != 100 {
		t.Fatalf("expected 100ns, got %d", got)
	}
}
