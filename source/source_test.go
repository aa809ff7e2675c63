package source

import (
	"container/heap"
	"testing"

	"github.com/openvprof/vprof/model"
	"github.com/openvprof/vprof/store"
)

// fakeCursor replays a fixed, already-ordered slice of records, mimicking
// a store.RowCursor without requiring a real database.
type fakeCursor struct {
	recs []model.Record
	pos  int
}

func (c *fakeCursor) Next() (model.Record, bool, error) {
	if c.pos >= len(c.recs) {
		return model.Record{}, false, nil
	}
	r := c.recs[c.pos]
	c.pos++
	return r, true, nil
}

func (c *fakeCursor) Close() error { return nil }

func kernel(start, end int64, name string) model.Record {
	return model.Record{Kind: model.KindConcurrentKernel, ConcurrentKernel: model.ConcurrentKernel{Start: start, End: end, Name: name}}
}

// newTestStream builds a Stream directly from pre-built cursors, since
// Stream.Open requires a live *store.Store.
func newTestStream(cursors ...*fakeCursor) *Stream {
	rowCursors := make([]store.RowCursor, len(cursors))
	for i, c := range cursors {
		rowCursors[i] = c
	}
	str := &Stream{
		cursors: rowCursors,
		lastTS:  make([]int64, len(cursors)),
		started: make([]bool, len(cursors)),
	}
	heap.Init(&str.heap)
	for i := range str.cursors {
		if err := str.fill(i); err != nil {
			panic(err)
		}
	}
	return str
}

func TestMergesMultipleTablesInTimestampOrder(t *testing.T) {
	table0 := &fakeCursor{recs: []model.Record{kernel(0, 10, "a"), kernel(20, 30, "b")}}
	table1 := &fakeCursor{recs: []model.Record{kernel(5, 15, "c")}}

	str := newTestStream(table0, table1)
	defer str.Close()

	var order []int64
	for {
		e, ok, err := str.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			break
		}
		order = append(order, e.Timestamp)
	}

	for i := 1; i < len(order); i++ {
		if order[i] < order[i-1] {
			t.Fatalf("edges out of order: %v", order)
		}
	}
	// 3 records -> 6 edges total.
	if len(order) != 6 {
		t.Fatalf("expected 6 edges, got %d", len(order))
	}
}

func TestFallingBeforeRisingAtEqualTimestamp(t *testing.T) {
	// table0's kernel ends exactly when table1's kernel begins.
	table0 := &fakeCursor{recs: []model.Record{kernel(0, 10, "a")}}
	table1 := &fakeCursor{recs: []model.Record{kernel(10, 20, "b")}}

	str := newTestStream(table0, table1)
	defer str.Close()

	// First edge: rising at 0. Second and third: both at ts=10 — falling
	// (end of a) must come before rising (start of b).
	first, _, _ := str.Next()
	if first.Timestamp != 0 || first.Polarity != model.Rising {
		t.Fatalf("expected rising edge at 0 first, got %+v", first)
	}
	second, _, _ := str.Next()
	if second.Timestamp != 10 || second.Polarity != model.Falling {
		t.Fatalf("expected falling edge at 10 second, got %+v", second)
	}
	third, _, _ := str.Next()
	if third.Timestamp != 10 || third.Polarity != model.Rising {
		t.Fatalf("expected rising edge at 10 third, got %+v", third)
	}
}

func TestEmptyStreamYieldsNothing(t *testing.T) {
	str := newTestStream(&fakeCursor{})
	defer str.Close()

	_, ok, err := str.Next()
	if err != nil || ok {
		t.Fatalf("expected immediate EOF on an empty stream, got ok=%v err=%v", ok, err)
	}
}

func TestOutOfOrderRowIsFatal(t *testing.T) {
	table0 := &fakeCursor{recs: []model.Record{kernel(10, 20, "a"), kernel(5, 15, "b")}}
	str := newTestStream(table0)
	defer str.Close()

	// Construction reads the 10..20 row; consuming its rising edge
	// triggers the second fill, which reads the 5..15 row and should
	// surface the violation.
	for i := 0; i < 2; i++ {
		if _, _, err := str.Next(); err != nil {
			return // out-of-order error surfaced, as expected
		}
	}
	t.Fatalf("expected an out-of-order error to surface")
}
