// Package source performs the streaming k-way merge of per-table
// cursors into one ascending-timestamp edge stream (spec.md §4.1).
package source

import (
	"container/heap"
	"fmt"

	"github.com/openvprof/vprof/model"
	"github.com/openvprof/vprof/store"
)

// item is one candidate edge waiting in the merge heap: either a
// table's next unread row (rising) or one of its already-read rows'
// pending falling edge.
type item struct {
	ts       int64
	polarity model.Polarity
	record   model.Record
	table    int // index into Stream.cursors, used only to pull more rows
}

type itemHeap []item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].ts != h[j].ts {
		return h[i].ts < h[j].ts
	}
	// Falling before rising at equal timestamps (spec.md §4.1).
	return h[i].polarity == model.Falling && h[j].polarity == model.Rising
}
func (h itemHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)        { *h = append(*h, x.(item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Stream is a pull iterator over the merged edge sequence of several
// logical tables, in ascending timestamp order.
type Stream struct {
	cursors []store.RowCursor
	lastTS  []int64
	started []bool
	heap    itemHeap
}

// Open builds a Stream over the named logical tables within window w.
func Open(s *store.Store, tables []string, w store.Window) (*Stream, error) {
	str := &Stream{
		cursors: make([]store.RowCursor, len(tables)),
		lastTS:  make([]int64, len(tables)),
		started: make([]bool, len(tables)),
	}
	for i, t := range tables {
		c, err := s.Cursor(t, w)
		if err != nil {
			str.Close()
			return nil, err
		}
		str.cursors[i] = c
	}
	heap.Init(&str.heap)
	for i := range str.cursors {
		if err := str.fill(i); err != nil {
			str.Close()
			return nil, err
		}
	}
	return str, nil
}

// fill reads the next row from table i and pushes both its rising and
// its falling edge onto the merge heap. The falling edge stays there
// until it is the smallest pending edge.
func (s *Stream) fill(i int) error {
	rec, ok, err := s.cursors[i].Next()
	if err != nil {
		return fmt.Errorf("source: reading table %d: %w", i, err)
	}
	if !ok {
		return nil
	}
	if s.started[i] && rec.Start() < s.lastTS[i] {
		return fmt.Errorf("source: out-of-order row in table %d: start %d precedes previously seen start %d", i, rec.Start(), s.lastTS[i])
	}
	s.lastTS[i] = rec.Start()
	s.started[i] = true
	heap.Push(&s.heap, item{ts: rec.Start(), polarity: model.Rising, record: rec, table: i})
	heap.Push(&s.heap, item{ts: rec.End(), polarity: model.Falling, record: rec, table: i})
	return nil
}

// Next returns the next edge in ascending timestamp order, or
// (zero, false, nil) once every table is exhausted.
func (s *Stream) Next() (model.Edge, bool, error) {
	if s.heap.Len() == 0 {
		return model.Edge{}, false, nil
	}
	it := heap.Pop(&s.heap).(item)
	if it.polarity == model.Rising {
		if err := s.fill(it.table); err != nil {
			return model.Edge{}, false, err
		}
	}
	return model.Edge{Timestamp: it.ts, Polarity: it.polarity, Record: it.record}, true, nil
}

// Close releases every underlying table cursor.
func (s *Stream) Close() error {
	var first error
	for _, c := range s.cursors {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
