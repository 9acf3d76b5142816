package buildpipeline

import (
	"encoding/json"
	"time"
)

// Stage is one step of compiling a tree file, in pipeline order.
type Stage uint8

const (
	// StageLoad reads and decodes the tree file (or hits the cache).
	StageLoad Stage = iota
	// StageLower converts the raw tree into typed nodes.
	StageLower
	// StageEmit writes the source text.
	StageEmit
	// StageWrite persists the output (or compares it in check mode).
	StageWrite
	stageCount
)

// Stages lists the stages in pipeline order.
var Stages = []Stage{StageLoad, StageLower, StageEmit, StageWrite}

var stageInfo = [stageCount]struct {
	name, verb string
	progress   float64 // share of a file's work done once the stage starts
}{
	StageLoad:  {"load", "loading", 0.1},
	StageLower: {"lower", "lowering", 0.3},
	StageEmit:  {"emit", "emitting", 0.6},
	StageWrite: {"write", "writing", 0.9},
}

func (s Stage) valid() bool { return s < stageCount }

func (s Stage) String() string {
	if !s.valid() {
		return "unknown"
	}
	return stageInfo[s].name
}

// Verb is the progress label shown while the stage runs.
func (s Stage) Verb() string {
	if !s.valid() {
		return ""
	}
	return stageInfo[s].verb
}

// Progress is the fraction of a file's work reached when s starts.
func (s Stage) Progress() float64 {
	if !s.valid() {
		return 0
	}
	return stageInfo[s].progress
}

// Status captures progress state within a stage.
type Status uint8

const (
	StatusQueued Status = iota
	StatusWorking
	StatusDone
	// StatusCached means the stage was satisfied from the disk cache.
	StatusCached
	StatusError
)

var statusNames = [...]string{"queued", "working", "done", "cached", "error"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Terminal reports whether the stage is over.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCached || s == StatusError
}

// Event reports progress for one file.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Sinks are called from the driver's
// worker goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds one duration per stage. The zero value is ready to use.
type Timings struct {
	dur [stageCount]time.Duration
	set [stageCount]bool
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil || !stage.valid() {
		return
	}
	t.dur[stage], t.set[stage] = dur, true
}

// Add accumulates a duration for the given stage.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	if t == nil || !stage.valid() {
		return
	}
	t.dur[stage] += dur
	t.set[stage] = true
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	return stage.valid() && t.set[stage]
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if !stage.valid() {
		return 0
	}
	return t.dur[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	var total time.Duration
	for _, stage := range stages {
		total += t.Duration(stage)
	}
	return total
}

// MarshalJSON writes the recorded stages as {"load": ms, ...}.
func (t Timings) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, len(Stages))
	for _, stage := range Stages {
		if t.set[stage] {
			out[stage.String()] = float64(t.dur[stage].Microseconds()) / 1000
		}
	}
	return json.Marshal(out)
}
