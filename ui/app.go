// Package ui implements the -watch live-progress view: a single
// bubbletea screen showing scan progress while the analysis driver
// streams a large trace, in place of the teacher's dozen dashboard
// pages.
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/openvprof/vprof/analysis"
	"github.com/openvprof/vprof/model"
	"github.com/openvprof/vprof/rangefilter"
	"github.com/openvprof/vprof/source"
	"github.com/openvprof/vprof/timeline"
)

// Result carries the outcome of a driven analysis run back to the
// caller once the bubbletea program exits.
type Result struct {
	Report *model.Report
	Err    error
}

type tickMsg time.Time

type progressMsg struct {
	edges     int64
	ts        int64
	kernelOn  bool
	commOn    bool
	runtimeOn bool
}

type doneMsg struct{}

// Progress is the bubbletea model for -watch mode.
type Progress struct {
	warnings []string
	edges    int64
	ts       int64
	kernelOn bool
	commOn   bool
	runtime  bool
	done     bool
	start    time.Time
}

// NewProgress returns a fresh progress model.
func NewProgress(warnings []string) *Progress {
	return &Progress{warnings: warnings, start: time.Now()}
}

func (m *Progress) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case progressMsg:
		m.edges = msg.edges
		m.ts = msg.ts
		m.kernelOn = msg.kernelOn
		m.commOn = msg.commOn
		m.runtime = msg.runtimeOn
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tickMsg:
		return m, tick()
	}
	return m, nil
}

func (m *Progress) View() string {
	elapsed := time.Since(m.start).Round(time.Millisecond)
	s := titleStyle.Render("vprof") + " " + labelStyle.Render("scanning...") + "\n\n"
	s += fmt.Sprintf("%s %s\n", labelStyle.Render("elapsed:"), valueStyle.Render(elapsed.String()))
	s += fmt.Sprintf("%s %s\n", labelStyle.Render("edges consumed:"), valueStyle.Render(fmt.Sprintf("%d", m.edges)))
	s += fmt.Sprintf("%s %s ns\n\n", labelStyle.Render("timestamp:"), valueStyle.Render(fmt.Sprintf("%d", m.ts)))
	s += activeBadge("gpu kernel", m.kernelOn) + "  "
	s += activeBadge("comm", m.commOn) + "  "
	s += activeBadge("runtime", m.runtime) + "\n"
	if len(m.warnings) > 0 {
		s += "\n" + warnStyle.Render("warnings:") + "\n"
		for _, w := range m.warnings {
			s += "  - " + w + "\n"
		}
	}
	s += "\n" + helpStyle.Render("q to quit")
	return panelStyle.Render(s)
}

func activeBadge(name string, active bool) string {
	if active {
		return okStyle.Render(name + ": active")
	}
	return dimStyle.Render(name + ": idle")
}

// Drive runs the analysis to completion, sending a progressMsg to p
// roughly every 2000 edges, and delivers the final Result on done.
// prog is unused beyond establishing the model type the caller built;
// all state updates travel through p.Send, as bubbletea requires.
func Drive(stream *source.Stream, sel *rangefilter.Selection, prog *Progress, done chan<- Result, p *tea.Program) {
	report, err := analysis.RunProgress(stream, sel, func(consumed int64, edge model.Edge, lat *timeline.Lattice) {
		if consumed%2000 != 0 {
			return
		}
		p.Send(progressMsg{
			edges:     consumed,
			ts:        edge.Timestamp,
			kernelOn:  lat.AnyGPUKernel.Active(),
			commOn:    lat.AnyComm.Active(),
			runtimeOn: lat.AnyRuntime.Active(),
		})
	})
	p.Send(doneMsg{})
	done <- Result{Report: report, Err: err}
}
