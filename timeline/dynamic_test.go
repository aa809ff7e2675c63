package timeline

import "testing"

func TestAnyStartsEmpty(t *testing.T) {
	a := NewAny()
	if a.Active() {
		t.Fatalf("expected Any with no tracked children to be inactive")
	}
}

func TestAnyTracksNewlyDiscoveredResources(t *testing.T) {
	a := NewAny()
	p1 := NewPrimitive()
	a.Track(p1)
	if a.Active() {
		t.Fatalf("expected inactive: freshly tracked resource starts inactive")
	}

	p1.Enter(10)
	if !a.Active() {
		t.Fatalf("expected active once a tracked resource activates")
	}

	// Discovering a second resource mid-run must not itself flip Any,
	// since the new resource starts inactive.
	p2 := NewPrimitive()
	a.Track(p2)
	if !a.Active() {
		t.Fatalf("expected still active: discovery of an inactive resource can't deactivate Any")
	}

	p1.Exit(20)
	if a.Active() {
		t.Fatalf("expected inactive: p1 was the only active resource, and tracking the idle p2 keeps nothing active")
	}

	p2.Enter(25)
	p2.Exit(30)
	if a.Active() {
		t.Fatalf("expected inactive once every tracked resource is inactive")
	}
}

func TestAnyAccumulatesTimeAcrossChildren(t *testing.T) {
	a := NewAny()
	p1 := NewPrimitive()
	p2 := NewPrimitive()
	a.Track(p1)
	a.Track(p2)

	p1.Enter(0)
	p1.Exit(10) // any-active [0,10)
	p2.Enter(20)
	p2.Exit(50) // any-active [20,50)

	if got := a.Time().Nanoseconds(); got != 40 {
		t.Fatalf("expected 40ns total any-active time, got %d", got)
	}
}

func TestAnyOverlappingChildrenCountOnce(t *testing.T) {
	a := NewAny()
	p1 := NewPrimitive()
	p2 := NewPrimitive()
	a.Track(p1)
	a.Track(p2)

	p1.Enter(0)
	p2.Enter(5) // overlaps p1, Any stays active (no flip)
	p1.Exit(10) // Any still active due to p2
	p2.Exit(20)

	if got := a.Time().Nanoseconds(); got != 20 {
		t.Fatalf("expected 20ns (0..20, no double count of the overlap), got %d", got)
	}
}
