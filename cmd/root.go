// Package cmd implements the vprof command-line surface: flag
// parsing, wiring the store/source/rangefilter/analysis pipeline
// together, and rendering the final report.
package cmd

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/openvprof/vprof/analysis"
	"github.com/openvprof/vprof/config"
	"github.com/openvprof/vprof/model"
	"github.com/openvprof/vprof/rangefilter"
	"github.com/openvprof/vprof/source"
	"github.com/openvprof/vprof/store"
	"github.com/openvprof/vprof/ui"
	"github.com/openvprof/vprof/util"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

// ExitCodeError signals a non-zero exit code without calling os.Exit
// directly, so callers (tests, the watch loop) can inspect the
// failure instead of the process dying underneath them.
type ExitCodeError struct{ Code int }

func (e ExitCodeError) Error() string { return fmt.Sprintf("exit %d", e.Code) }

const (
	exitInputError  = 1
	exitAnalysisErr = 2
)

type rangeFlags []string

func (r *rangeFlags) String() string     { return strings.Join(*r, ",") }
func (r *rangeFlags) Set(v string) error { *r = append(*r, v); return nil }

func printUsage() {
	fmt.Fprintf(os.Stderr, `vprof v%s — GPU profiling trace exposed-time analyzer

Usage:
  vprof [OPTIONS] FILENAME

Options:
  -begin V          Lower time bound: integer ns, or a decimal "s" value
                     relative to the trace's first timestamp.
  -end V            Upper time bound, same format as -begin.
  -range PATTERN    Keep only records overlapping a range whose name
                     contains PATTERN (repeatable; case-sensitive).
  -first-ranges N   Keep only the first N selected ranges by start time.
  -watch            Live-progress view while the trace streams through.
  -save-config      Persist the resolved -range/-first-ranges as the
                     defaults used when those flags are omitted.
  -version          Print version and exit.

Examples:
  vprof trace.sqlite
  vprof -range train -first-ranges 1 trace.sqlite
  vprof -begin 0.5s -end 2.5s trace.sqlite
`, Version)
}

// Run parses os.Args, executes the summary analysis, and prints the
// report. Errors that should map to a specific process exit code are
// returned as ExitCodeError.
func Run() error {
	fs := flag.NewFlagSet("vprof", flag.ContinueOnError)
	fs.Usage = printUsage

	var begin, end string
	var ranges rangeFlags
	var firstRanges int
	var watch bool
	var saveConfig bool
	var showVersion bool

	fs.StringVar(&begin, "begin", "", "lower time bound (ns or decimal seconds + \"s\")")
	fs.StringVar(&end, "end", "", "upper time bound (ns or decimal seconds + \"s\")")
	fs.Var(&ranges, "range", "range name substring filter (repeatable)")
	fs.IntVar(&firstRanges, "first-ranges", 0, "keep only the first N selected ranges")
	fs.BoolVar(&watch, "watch", false, "live-progress view while scanning")
	fs.BoolVar(&saveConfig, "save-config", false, "persist -range/-first-ranges as future defaults")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return ExitCodeError{Code: exitInputError}
	}
	if showVersion {
		fmt.Println(Version)
		return nil
	}

	args := fs.Args()
	if len(args) != 1 {
		printUsage()
		return ExitCodeError{Code: exitInputError}
	}
	filename := args[0]

	cfg := config.Load()
	if len(ranges) == 0 {
		ranges = cfg.RangePatterns
	}
	if firstRanges == 0 {
		firstRanges = cfg.FirstRanges
	}

	if saveConfig {
		cfg.RangePatterns = ranges
		cfg.FirstRanges = firstRanges
		if err := config.Save(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "vprof: warning: could not save config: %v\n", err)
		}
	}

	s, err := store.OpenVersion(filename, cfg.ExpectedVersion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vprof: %v\n", err)
		return ExitCodeError{Code: exitInputError}
	}
	defer s.Close()

	window, err := resolveWindow(s, begin, end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vprof: %v\n", err)
		return ExitCodeError{Code: exitInputError}
	}

	var sel *rangefilter.Selection
	if len(ranges) > 0 || firstRanges > 0 {
		all, err := s.Ranges()
		if err != nil {
			fmt.Fprintf(os.Stderr, "vprof: %v\n", err)
			return ExitCodeError{Code: exitInputError}
		}
		selection := rangefilter.Select(all, ranges, firstRanges, nil)
		sel = &selection
	}

	report, err := runAnalysis(s, window, sel, watch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vprof: %v\n", err)
		return ExitCodeError{Code: exitAnalysisErr}
	}

	report.Warnings = s.Warnings()
	fmt.Print(report.Render())
	return nil
}

func resolveWindow(s *store.Store, begin, end string) (store.Window, error) {
	var w store.Window
	if begin == "" && end == "" {
		return w, nil
	}

	var epoch int64
	needEpoch := (begin != "" && strings.HasSuffix(begin, "s")) || (end != "" && strings.HasSuffix(end, "s"))
	if needEpoch {
		first, ok, err := s.FirstTimestamp()
		if err != nil {
			return w, err
		}
		if ok {
			epoch = first
		}
	}

	if begin != "" {
		ns, relative, err := util.ParseTimeBound(begin)
		if err != nil {
			return w, fmt.Errorf("invalid -begin: %w", err)
		}
		if relative {
			ns += epoch
		}
		w.Begin = &ns
	}
	if end != "" {
		ns, relative, err := util.ParseTimeBound(end)
		if err != nil {
			return w, fmt.Errorf("invalid -end: %w", err)
		}
		if relative {
			ns += epoch
		}
		w.End = &ns
	}
	return w, nil
}

func tablesFor(s *store.Store) []string {
	tables := append([]string{}, analysis.Tables...)
	if s.HasPeerToPeer() {
		tables = append(tables, "memcpy2")
	}
	return tables
}

func runAnalysis(s *store.Store, window store.Window, sel *rangefilter.Selection, watch bool) (*model.Report, error) {
	tables := tablesFor(s)

	stream, err := source.Open(s, tables, window)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var report *model.Report
	if watch {
		report, err = runWatched(s, stream, sel)
	} else {
		report, err = analysis.Run(stream, sel)
	}
	if err != nil {
		return nil, err
	}

	if sel != nil {
		report.SelectedRangeCoverage = toDuration(rangefilter.Coverage(sel.Ranges))
	}
	return report, nil
}

func toDuration(ns int64) time.Duration { return time.Duration(ns) }

func runWatched(s *store.Store, stream *source.Stream, sel *rangefilter.Selection) (*model.Report, error) {
	prog := ui.NewProgress(s.Warnings())
	p := tea.NewProgram(prog)

	resultCh := make(chan ui.Result, 1)
	go ui.Drive(stream, sel, prog, resultCh, p)

	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("vprof: watch UI: %w", err)
	}
	res := <-resultCh
	return res.Report, res.Err
}
