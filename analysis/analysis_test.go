package analysis

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/openvprof/vprof/model"
	"github.com/openvprof/vprof/rangefilter"
	"github.com/openvprof/vprof/source"
	"github.com/openvprof/vprof/store"

	_ "modernc.org/sqlite"
)

// rangeSelection builds a Selection whose only range is [start, end],
// for tests that only care about the range-overlap accept/reject path.
func rangeSelection(start, end int64) *rangefilter.Selection {
	return &rangefilter.Selection{Ranges: []model.Range{{Start: start, End: end, Name: "selected"}}}
}

const schema = `
CREATE TABLE string_table (id INTEGER PRIMARY KEY, value TEXT);
CREATE TABLE device (id INTEGER PRIMARY KEY);
CREATE TABLE version (value INTEGER);
CREATE TABLE runtime (cbid INTEGER, start INTEGER, end INTEGER, pid INTEGER, tid INTEGER, correlation_id INTEGER);
CREATE TABLE concurrent_kernel (start INTEGER, end INTEGER, device_id INTEGER, name_id INTEGER);
CREATE TABLE memcpy (copy_kind INTEGER, src_kind INTEGER, dst_kind INTEGER, bytes INTEGER, start INTEGER, end INTEGER, device_id INTEGER);
CREATE TABLE marker (id INTEGER, timestamp INTEGER, name_id INTEGER, domain_id INTEGER);
`

func openFixture(t *testing.T, dml string) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.sqlite")
	setup, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open for setup: %v", err)
	}
	if _, err := setup.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	if dml != "" {
		if _, err := setup.Exec(dml); err != nil {
			t.Fatalf("seeding fixture: %v", err)
		}
	}
	setup.Close()

	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEmptyTraceProducesZeroReport(t *testing.T) {
	s := openFixture(t, "")
	stream, err := source.Open(s, Tables, store.Window{})
	if err != nil {
		t.Fatalf("source.Open: %v", err)
	}
	defer stream.Close()

	report, err := Run(stream, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.AnyGPUKernel != 0 || report.AnyComm != 0 || report.AnyRuntime != 0 {
		t.Fatalf("expected all-zero totals for an empty trace, got %+v", report)
	}
}

func TestExposedKernelTimeExcludesOverlappingComm(t *testing.T) {
	s := openFixture(t, `
		INSERT INTO string_table (id, value) VALUES (1, 'matmul');
		INSERT INTO concurrent_kernel (start, end, device_id, name_id) VALUES (0, 100, 0, 1);
		INSERT INTO memcpy (copy_kind, src_kind, dst_kind, bytes, start, end, device_id) VALUES (1, 1, 2, 1024, 40, 60, 0);
	`)
	stream, err := source.Open(s, Tables, store.Window{})
	if err != nil {
		t.Fatalf("source.Open: %v", err)
	}
	defer stream.Close()

	report, err := Run(stream, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.AnyGPUKernel.Nanoseconds() != 100 {
		t.Fatalf("expected any_gpu_kernel=100ns, got %v", report.AnyGPUKernel)
	}
	if report.AnyComm.Nanoseconds() != 20 {
		t.Fatalf("expected any_comm=20ns, got %v", report.AnyComm)
	}
	// exposed kernel time excludes the [40,60) window where comm overlaps.
	if report.ExposedGPUKernel.Nanoseconds() != 80 {
		t.Fatalf("expected exposed_gpu_kernel=80ns, got %v", report.ExposedGPUKernel)
	}
	if len(report.CommBytesByPair) != 1 || report.CommBytesByPair[0].Bytes != 1024 {
		t.Fatalf("expected 1024 bytes recorded for the comm pair, got %+v", report.CommBytesByPair)
	}
}

func TestRuntimeSyncCallbacksExcludedFromActivity(t *testing.T) {
	s := openFixture(t, `
		INSERT INTO runtime (cbid, start, end, pid, tid, correlation_id) VALUES (131, 0, 100, 1, 1, 1);
	`)
	stream, err := source.Open(s, Tables, store.Window{})
	if err != nil {
		t.Fatalf("source.Open: %v", err)
	}
	defer stream.Close()

	report, err := Run(stream, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.AnyRuntime != 0 {
		t.Fatalf("expected a sync-only callback to contribute no runtime activity, got %v", report.AnyRuntime)
	}
}

func TestRangeFilterExcludesUnselectedActivity(t *testing.T) {
	s := openFixture(t, `
		INSERT INTO string_table (id, value) VALUES (1, 'k');
		INSERT INTO concurrent_kernel (start, end, device_id, name_id) VALUES (0, 50, 0, 1), (200, 250, 0, 1);
	`)
	stream, err := source.Open(s, Tables, store.Window{})
	if err != nil {
		t.Fatalf("source.Open: %v", err)
	}
	defer stream.Close()

	// A selection covering only [0,100] should keep the first kernel
	// and drop the second.
	rsel := rangeSelection(0, 100)
	report, err := Run(stream, rsel)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.AnyGPUKernel.Nanoseconds() != 50 {
		t.Fatalf("expected only the selected kernel's 50ns, got %v", report.AnyGPUKernel)
	}
}
