package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Timer records named phases of a compile: the CLI's config, compile and
// output steps, or one file's load, lower, emit and write stages. Safe for
// concurrent use.
type Timer struct {
	mu     sync.Mutex
	phases []phase
}

type phase struct {
	name  string
	start time.Time
	dur   time.Duration
	note  string
	ended bool
}

func NewTimer() *Timer { return &Timer{phases: make([]phase, 0, 8)} }

// Begin starts a phase and returns the handle End takes. A nil Timer returns
// -1 and ignores the matching End, so callers need no nil checks.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, phase{name: name, start: time.Now()})
	return len(t.phases) - 1
}

// End finishes the phase and returns its duration. Ending a phase twice
// keeps the first duration.
func (t *Timer) End(idx int, note string) time.Duration {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return 0
	}
	p := &t.phases[idx]
	if !p.ended {
		p.dur, p.note, p.ended = time.Since(p.start), note, true
	}
	return p.dur
}

// PhaseReport is the serialisable form of a phase.
type PhaseReport struct {
	Name       string  `json:"name" msgpack:"name"`
	DurationMS float64 `json:"duration_ms" msgpack:"duration_ms"`
	Note       string  `json:"note,omitempty" msgpack:"note,omitempty"`
}

// Report aggregates the timer. Phases still running are reported with the
// time elapsed so far and the note "unfinished".
type Report struct {
	TotalMS float64       `json:"total_ms" msgpack:"total_ms"`
	Phases  []PhaseReport `json:"phases" msgpack:"phases"`
}

func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.phases) == 0 {
		return Report{}
	}
	var report Report
	report.Phases = make([]PhaseReport, 0, len(t.phases))
	for _, p := range t.phases {
		dur, note := p.dur, p.note
		if !p.ended {
			dur, note = time.Since(p.start), "unfinished"
		}
		ms := millis(dur)
		report.TotalMS += ms
		report.Phases = append(report.Phases, PhaseReport{Name: p.name, DurationMS: ms, Note: note})
	}
	return report
}

// Summary renders the report as an aligned table with each phase's share of
// the total.
func (t *Timer) Summary() string {
	report := t.Report()
	width := len("total")
	for _, p := range report.Phases {
		width = max(width, len(p.Name))
	}
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range report.Phases {
		share := 0.0
		if report.TotalMS > 0 {
			share = 100 * p.DurationMS / report.TotalMS
		}
		fmt.Fprintf(&b, "  %-*s %9.2f ms %5.1f%%", width, p.Name, p.DurationMS, share)
		if p.Note != "" {
			b.WriteString("  " + p.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-*s %9.2f ms\n", width, "total", report.TotalMS)
	return b.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
