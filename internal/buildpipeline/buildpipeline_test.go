package buildpipeline

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestDisplayFiles(t *testing.T) {
	base := t.TempDir()
	files := []string{
		filepath.Join(base, "b", "two.json"),
		filepath.Join(base, "a.yaml"),
		filepath.Join(base, "a.yaml"),
		"",
	}
	got := DisplayFiles(files, base)
	want := []string{"a.yaml", "b/two.json"}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want %v, got %v", want, got)
		}
	}
}

func TestSinks(t *testing.T) {
	rec := &Recorder{}
	ch := make(chan Event, 4)
	sink := Tee(rec, ToChannel(ch), nil)

	Queue(sink, []string{"a.json", "b.json"})
	Report(sink, "a.json", StageEmit, StatusError, errors.New("boom"), time.Millisecond)
	Report(nil, "a.json", StageWrite, StatusDone, nil, 0)

	events := rec.Events()
	if len(events) != 3 || len(ch) != 3 {
		t.Fatalf("expected three events in each sink, got %d and %d", len(events), len(ch))
	}
	if events[0].Status != StatusQueued || events[0].Stage != StageLoad {
		t.Fatalf("unexpected queued event %+v", events[0])
	}
	forA := rec.For("a.json")
	if len(forA) != 2 || !forA[1].Status.Terminal() || forA[1].Err == nil {
		t.Fatalf("unexpected events for a.json: %+v", forA)
	}
	if Tee(nil, nil) != nil {
		t.Fatalf("Tee of nil sinks must be nil")
	}
	if Tee(rec) != ProgressSink(rec) {
		t.Fatalf("Tee of one sink must return it")
	}
}

func TestDisplayPathOutsideBase(t *testing.T) {
	base := t.TempDir()
	outside := filepath.Join(filepath.Dir(base), "other.json")
	if got := DisplayPath(outside, base); got != filepath.ToSlash(outside) {
		t.Fatalf("want %q, got %q", filepath.ToSlash(outside), got)
	}
	if got := DisplayPath("x/../y.json", ""); got != "y.json" {
		t.Fatalf("want y.json, got %q", got)
	}
}

func TestTimings(t *testing.T) {
	var tm Timings
	tm.Add(StageEmit, time.Millisecond)
	tm.Add(StageEmit, time.Millisecond)
	tm.Set(StageLoad, 3*time.Millisecond)
	if !tm.Has(StageEmit) || tm.Has(StageWrite) {
		t.Fatalf("unexpected Has results")
	}
	if got := tm.Sum(Stages...); got != 5*time.Millisecond {
		t.Fatalf("want 5ms, got %v", got)
	}
}

func TestStageLabels(t *testing.T) {
	prev := -1.0
	for _, stage := range Stages {
		if stage.Verb() == "" || stage.String() == "unknown" {
			t.Fatalf("stage %d has no labels", stage)
		}
		if stage.Progress() <= prev {
			t.Fatalf("progress must grow along the pipeline: %v at %s", stage.Progress(), stage)
		}
		prev = stage.Progress()
	}
	if Stage(99).String() != "unknown" || Stage(99).Progress() != 0 {
		t.Fatalf("out of range stage not handled")
	}
	if StatusCached.String() != "cached" || StatusQueued.Terminal() {
		t.Fatalf("status helpers wrong")
	}
}

func TestTimingsJSON(t *testing.T) {
	var tm Timings
	tm.Set(StageLoad, 1500*time.Microsecond)
	tm.Set(StageWrite, 0)
	data, err := json.Marshal(tm)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(data), `{"load":1.5,"write":0}`; got != want {
		t.Fatalf("json:\nwant %s\ngot  %s", want, got)
	}
}
