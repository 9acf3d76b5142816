package buildpipeline

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Queue reports each file as waiting for the load stage.
func Queue(sink ProgressSink, files []string) {
	if sink == nil {
		return
	}
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: StageLoad, Status: StatusQueued})
	}
}

// Report sends one stage transition of file to sink, which may be nil.
func Report(sink ProgressSink, file string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink != nil {
		sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	}
}

// DisplayFiles maps files through DisplayPath, skipping empty entries, and
// returns the distinct names sorted. The progress view and the reports key
// files by these names.
func DisplayFiles(files []string, baseDir string) []string {
	base := absBase(baseDir)
	names := make([]string, 0, len(files))
	for _, file := range files {
		if file != "" {
			names = append(names, DisplayPath(file, base))
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// DisplayPath is the slash-separated name of file below base, or the cleaned
// file path when it is not under base. base should be absolute.
func DisplayPath(file, base string) string {
	name := filepath.Clean(file)
	if base == "" {
		return filepath.ToSlash(name)
	}
	if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}
	rel, err := filepath.Rel(base, name)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(name)
	}
	return filepath.ToSlash(rel)
}

func absBase(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return ""
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
