package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Tracer receives events from the driver and the emitter. Implementations
// are called from every worker goroutine.
type Tracer interface {
	Emit(ev *Event)
	// Flush writes out anything buffered.
	Flush() error
	// Close flushes and releases the output.
	Close() error
	Level() Level
	// Enabled is false only at LevelOff.
	Enabled() bool
}

// DefaultRingSize is the ring capacity when none is configured.
const DefaultRingSize = 4096

// StorageMode says where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they happen
	ModeRing                          // last N kept in memory
	ModeBoth
)

var modeNames = [...]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m StorageMode) String() string {
	if int(m) < len(modeNames) && modeNames[m] != "" {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode converts a --trace-mode value.
func ParseMode(s string) (StorageMode, error) {
	for i, name := range modeNames {
		if name != "" && strings.EqualFold(s, name) {
			return StorageMode(i), nil
		}
	}
	return ModeRing, fmt.Errorf("trace mode %q: want stream, ring or both", s)
}

type Config struct {
	Level Level
	Mode  StorageMode
	// Format defaults to NDJSON for .ndjson and .jsonl outputs, text otherwise.
	Format Format
	// Output takes precedence over OutputPath. OutputPath "" or "-" is stderr.
	Output     io.Writer
	OutputPath string
	// RingSize defaults to DefaultRingSize.
	RingSize int
}

// New builds the tracer cfg describes. LevelOff gives Nop, and LevelError
// always keeps events in a ring whatever Mode says.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.Level == LevelError {
		cfg.Mode = ModeRing
	}
	if cfg.Mode == ModeRing {
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	}
	if cfg.Mode != ModeStream && cfg.Mode != ModeBoth {
		return nil, fmt.Errorf("trace mode %v not supported", cfg.Mode)
	}

	w := cfg.Output
	if w == nil {
		var err error
		if w, err = openTraceFile(cfg.OutputPath); err != nil {
			return nil, err
		}
	}
	stream := NewStreamTracer(w, cfg.Level, cfg.format())
	if cfg.Mode == ModeStream {
		return stream, nil
	}
	return NewMultiTracer(cfg.Level, stream, NewRingTracer(cfg.RingSize, cfg.Level)), nil
}

func (cfg Config) format() Format {
	if cfg.Format != FormatAuto {
		return cfg.Format
	}
	switch filepath.Ext(cfg.OutputPath) {
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	}
	return FormatText
}

func openTraceFile(path string) (io.Writer, error) {
	if path == "" || path == "-" {
		return stderrWriter{os.Stderr}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("trace output: %w", err)
	}
	return f, nil
}

// stderrWriter hides Close so closing the tracer leaves stderr open.
type stderrWriter struct{ io.Writer }
