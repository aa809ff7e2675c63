// Package store opens a profiler trace (a read-only SQLite database)
// and exposes the logical tables the rest of the analyzer reads.
// Physical storage and SQL are deliberately thin here — per spec.md §1
// they're an external collaborator, not part of the core algorithm.
package store

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// defaultExpectedVersion is the schema version this reader was built
// against when the caller doesn't override it via config. A mismatch
// is a warning, not a fatal error (spec.md §7).
const defaultExpectedVersion = 11

// requiredTables lists the logical tables a trace must carry. memcpy2
// (peer-to-peer transfers) is optional — its absence is not a schema
// error.
var requiredTables = []string{"runtime", "concurrent_kernel", "memcpy", "marker", "device", "string_table"}

// Store is a read-only handle onto one trace database.
type Store struct {
	db         *sql.DB
	path       string
	instanceID uuid.UUID

	expectedVersion int
	strings         map[int64]string
	hasP2P          bool
	warnings        []string
}

// Open opens path read-only and validates the schema against
// defaultExpectedVersion. Warnings (e.g. a version mismatch) are
// non-fatal and collected on the Store; read them with Warnings.
func Open(path string) (*Store, error) {
	return OpenVersion(path, defaultExpectedVersion)
}

// OpenVersion is Open with an explicit expected schema version,
// letting a caller honor config.Config.ExpectedVersion.
func OpenVersion(path string, expectedVersion int) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("vprof: open trace %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("vprof: open trace %q: %w", path, err)
	}

	s := &Store{
		db:              db,
		path:            path,
		instanceID:      uuid.New(),
		expectedVersion: expectedVersion,
	}
	log.Printf("vprof: opened trace %q as instance %s", path, s.instanceID)

	if err := s.checkSchema(); err != nil {
		db.Close()
		return nil, err
	}
	s.checkVersion()
	s.hasP2P = s.tableExists("memcpy2")

	if err := s.loadStrings(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Warnings returns accumulated data-quality diagnostics (version
// mismatch, malformed ranges) collected while reading.
func (s *Store) Warnings() []string { return s.warnings }

// HasPeerToPeer reports whether the trace carries a memcpy2 logical
// table for GPU-to-GPU transfers.
func (s *Store) HasPeerToPeer() bool { return s.hasP2P }

func (s *Store) checkSchema() error {
	for _, t := range requiredTables {
		if !s.tableExists(t) {
			return fmt.Errorf("vprof: trace %q is missing required table %q", s.path, t)
		}
	}
	return nil
}

func (s *Store) checkVersion() {
	row := s.db.QueryRow(`SELECT value FROM version LIMIT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		// A missing/unreadable version table is a data-quality issue,
		// not fatal — the rest of the schema already checked out.
		return
	}
	if v != s.expectedVersion {
		msg := fmt.Sprintf("trace version %d does not match the tested version %d; results may be unreliable", v, s.expectedVersion)
		s.warnings = append(s.warnings, msg)
		log.Printf("vprof: warning: %s", msg)
	}
}

func (s *Store) tableExists(name string) bool {
	row := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, name)
	var got string
	return row.Scan(&got) == nil
}

func (s *Store) loadStrings() error {
	rows, err := s.db.Query(`SELECT id, value FROM string_table`)
	if err != nil {
		return fmt.Errorf("vprof: reading string_table: %w", err)
	}
	defer rows.Close()

	s.strings = make(map[int64]string)
	for rows.Next() {
		var id int64
		var value string
		if err := rows.Scan(&id, &value); err != nil {
			return fmt.Errorf("vprof: scanning string_table: %w", err)
		}
		s.strings[id] = value
	}
	return rows.Err()
}

// String resolves an interned string id, falling back to its decimal
// form when the table doesn't contain it.
func (s *Store) String(id int64) string {
	if v, ok := s.strings[id]; ok {
		return v
	}
	return fmt.Sprintf("%d", id)
}

// FirstTimestamp scans every interval-bearing logical table for the
// smallest start time, used as the epoch for relative --begin/--end
// values (spec.md §6).
func (s *Store) FirstTimestamp() (int64, bool, error) {
	tables := []string{"runtime", "concurrent_kernel", "memcpy"}
	if s.hasP2P {
		tables = append(tables, "memcpy2")
	}

	found := false
	var min int64
	for _, t := range tables {
		row := s.db.QueryRow(fmt.Sprintf(`SELECT MIN(start) FROM %s`, t))
		var v sql.NullInt64
		if err := row.Scan(&v); err != nil {
			return 0, false, fmt.Errorf("vprof: scanning min(start) of %s: %w", t, err)
		}
		if !v.Valid {
			continue
		}
		if !found || v.Int64 < min {
			min = v.Int64
			found = true
		}
	}
	return min, found, nil
}
