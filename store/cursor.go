package store

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/openvprof/vprof/model"
)

// Window restricts a cursor to records overlapping [Begin, End]. A nil
// bound means unbounded on that side (spec.md §4.1).
type Window struct {
	Begin *int64
	End   *int64
}

func (w Window) whereClause(startCol, endCol string) (string, []any) {
	var clauses []string
	var args []any
	if w.Begin != nil {
		clauses = append(clauses, endCol+" >= ?")
		args = append(args, *w.Begin)
	}
	if w.End != nil {
		clauses = append(clauses, startCol+" <= ?")
		args = append(args, *w.End)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	sql := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		sql += " AND " + c
	}
	return sql, args
}

// RowCursor yields records from one logical table in ascending start
// order. Next returns (record, true, nil) while rows remain, and
// (zero, false, nil) at EOF.
type RowCursor interface {
	Next() (model.Record, bool, error)
	Close() error
}

// sqlCursor adapts *sql.Rows plus a per-table scan function into a
// RowCursor, tracking the last start seen to surface an out-of-order
// row as a fatal error (spec.md §4.1).
type sqlCursor struct {
	rows    *sql.Rows
	scan    func(*sql.Rows) (model.Record, error)
	lastTS  int64
	started bool
}

func (c *sqlCursor) Next() (model.Record, bool, error) {
	if !c.rows.Next() {
		return model.Record{}, false, c.rows.Err()
	}
	rec, err := c.scan(c.rows)
	if err != nil {
		return model.Record{}, false, err
	}
	if c.started && rec.Start() < c.lastTS {
		return model.Record{}, false, fmt.Errorf("vprof: out-of-order row: start %d precedes previously seen start %d", rec.Start(), c.lastTS)
	}
	c.lastTS = rec.Start()
	c.started = true
	return rec, true, nil
}

func (c *sqlCursor) Close() error { return c.rows.Close() }

// Cursor opens a RowCursor over the named logical table
// ("runtime", "concurrent_kernel", "memcpy", "memcpy2", "range").
func (s *Store) Cursor(table string, w Window) (RowCursor, error) {
	switch table {
	case "runtime":
		return s.runtimeCursor(w)
	case "concurrent_kernel":
		return s.kernelCursor(w)
	case "memcpy":
		return s.memcpyCursor(w)
	case "memcpy2":
		return s.memcpyP2PCursor(w)
	case "range":
		return s.rangeCursor(w)
	default:
		return nil, fmt.Errorf("vprof: unknown logical table %q", table)
	}
}

func (s *Store) runtimeCursor(w Window) (RowCursor, error) {
	where, args := w.whereClause("start", "end")
	q := `SELECT cbid, start, end, pid, tid, correlation_id FROM runtime` + where + ` ORDER BY start`
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("vprof: querying runtime: %w", err)
	}
	return &sqlCursor{rows: rows, scan: func(rows *sql.Rows) (model.Record, error) {
		var r model.Runtime
		var tid int64
		if err := rows.Scan(&r.Cbid, &r.Start, &r.End, &r.PID, &tid, &r.CorrelationID); err != nil {
			return model.Record{}, fmt.Errorf("vprof: scanning runtime row: %w", err)
		}
		r.TID = model.ReinterpretTID(tid)
		return model.Record{Kind: model.KindRuntime, Runtime: r}, nil
	}}, nil
}

func (s *Store) kernelCursor(w Window) (RowCursor, error) {
	where, args := w.whereClause("start", "end")
	q := `SELECT start, end, device_id, name_id FROM concurrent_kernel` + where + ` ORDER BY start`
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("vprof: querying concurrent_kernel: %w", err)
	}
	return &sqlCursor{rows: rows, scan: func(rows *sql.Rows) (model.Record, error) {
		var k model.ConcurrentKernel
		var nameID int64
		if err := rows.Scan(&k.Start, &k.End, &k.DeviceID, &nameID); err != nil {
			return model.Record{}, fmt.Errorf("vprof: scanning concurrent_kernel row: %w", err)
		}
		k.Name = s.String(nameID)
		return model.Record{Kind: model.KindConcurrentKernel, ConcurrentKernel: k}, nil
	}}, nil
}

func (s *Store) memcpyCursor(w Window) (RowCursor, error) {
	where, args := w.whereClause("start", "end")
	q := `SELECT copy_kind, src_kind, dst_kind, bytes, start, end, device_id FROM memcpy` + where + ` ORDER BY start`
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("vprof: querying memcpy: %w", err)
	}
	return &sqlCursor{rows: rows, scan: func(rows *sql.Rows) (model.Record, error) {
		var m model.Memcpy
		var copyKind int
		if err := rows.Scan(&copyKind, &m.SrcKind, &m.DstKind, &m.Bytes, &m.Start, &m.End, &m.DeviceID); err != nil {
			return model.Record{}, fmt.Errorf("vprof: scanning memcpy row: %w", err)
		}
		return model.Record{Kind: model.KindMemcpy, Memcpy: m}, nil
	}}, nil
}

func (s *Store) memcpyP2PCursor(w Window) (RowCursor, error) {
	where, args := w.whereClause("start", "end")
	q := `SELECT start, end, bytes, src_device_id, dst_device_id FROM memcpy2` + where + ` ORDER BY start`
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("vprof: querying memcpy2: %w", err)
	}
	return &sqlCursor{rows: rows, scan: func(rows *sql.Rows) (model.Record, error) {
		var m model.Memcpy
		if err := rows.Scan(&m.Start, &m.End, &m.Bytes, &m.SrcDeviceID, &m.DstDeviceID); err != nil {
			return model.Record{}, fmt.Errorf("vprof: scanning memcpy2 row: %w", err)
		}
		m.P2P = true
		return model.Record{Kind: model.KindMemcpyP2P, Memcpy: m}, nil
	}}, nil
}

// sliceCursor adapts an in-memory, already-ordered slice into a
// RowCursor. Used for the derived range table, which is built by a
// single aggregate query rather than streamed row by row.
type sliceCursor struct {
	recs []model.Record
	pos  int
}

func (c *sliceCursor) Next() (model.Record, bool, error) {
	if c.pos >= len(c.recs) {
		return model.Record{}, false, nil
	}
	r := c.recs[c.pos]
	c.pos++
	return r, true, nil
}

func (c *sliceCursor) Close() error { return nil }

func (s *Store) rangeCursor(w Window) (RowCursor, error) {
	ranges, err := s.Ranges()
	if err != nil {
		return nil, err
	}
	recs := make([]model.Record, 0, len(ranges))
	for _, rg := range ranges {
		if w.Begin != nil && rg.End < *w.Begin {
			continue
		}
		if w.End != nil && rg.Start > *w.End {
			continue
		}
		recs = append(recs, model.Record{Kind: model.KindRange, Range: rg})
	}
	return &sliceCursor{recs: recs}, nil
}

// Ranges derives the paired-marker "range" logical table: markers
// sharing an id pair up into a named interval; any id with a marker
// count other than two is malformed and silently dropped (spec.md
// §4.3, §7). Results are sorted ascending by start.
func (s *Store) Ranges() ([]model.Range, error) {
	q := `SELECT MIN(timestamp), MAX(timestamp), MAX(name_id), domain_id, COUNT(*)
	      FROM marker GROUP BY id`
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("vprof: deriving ranges from marker: %w", err)
	}
	defer rows.Close()

	var out []model.Range
	dropped := 0
	for rows.Next() {
		var start, end int64
		var nameID, domainID int64
		var count int
		if err := rows.Scan(&start, &end, &nameID, &domainID, &count); err != nil {
			return nil, fmt.Errorf("vprof: scanning marker group: %w", err)
		}
		if count != 2 {
			dropped++
			continue
		}
		out = append(out, model.Range{
			Start:  start,
			End:    end,
			Name:   s.String(nameID),
			Domain: s.String(domainID),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if dropped > 0 {
		msg := fmt.Sprintf("dropped %d marker id(s) that did not pair into exactly two markers", dropped)
		s.warnings = append(s.warnings, msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}
