package driver

import (
	"encoding/json"
	"fmt"

	"treecomp/internal/diag"
	"treecomp/internal/observ"
)

// timingNote is the JSON carried in the note of an OBS6001 diagnostic.
type timingNote struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// recordTimings adds the timer report of one file to its bag as an info
// diagnostic. It bypasses the bag limit so --timings output never vanishes
// behind a flood of warnings.
func recordTimings(bag *diag.Bag, file string, report observ.Report) {
	note, err := json.Marshal(timingNote{Kind: "file", Path: file, TotalMS: report.TotalMS, Phases: report.Phases})
	if err != nil {
		return
	}
	at := diag.Location{File: file}
	d := diag.New(diag.SevInfo, diag.ObsTimings, at, fmt.Sprintf("timings: total %.2f ms", report.TotalMS))
	d.Notes = []diag.Note{{At: at, Msg: string(note)}}
	bag.Pin(d)
}
