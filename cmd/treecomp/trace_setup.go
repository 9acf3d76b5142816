package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"treecomp/internal/trace"
)

// traceFlags are the persistent --trace* flags of one invocation.
type traceFlags struct {
	output   string
	level    trace.Level
	mode     trace.StorageMode
	ringSize int
}

func readTraceFlags(cmd *cobra.Command) (traceFlags, error) {
	flags := cmd.Flags()
	var tf traceFlags
	var level, mode string
	var err error
	if tf.output, err = flags.GetString("trace"); err != nil {
		return tf, err
	}
	if level, err = flags.GetString("trace-level"); err != nil {
		return tf, err
	}
	if mode, err = flags.GetString("trace-mode"); err != nil {
		return tf, err
	}
	if tf.ringSize, err = flags.GetInt("trace-ring-size"); err != nil {
		return tf, err
	}
	if tf.level, err = trace.ParseLevel(level); err != nil {
		return tf, err
	}
	if tf.mode, err = trace.ParseMode(mode); err != nil {
		return tf, err
	}
	// a bare --trace FILE means phase tracing
	if tf.output != "" && tf.level == trace.LevelOff && !flags.Changed("trace-level") {
		tf.level = trace.LevelPhase
	}
	return tf, nil
}

// setupTracing puts the tracer the flags ask for into the command context.
// The returned finish closes it. A kept ring is printed to stderr on finish:
// always in ring mode, otherwise only when the run failed.
func setupTracing(cmd *cobra.Command) (finish func(failed bool), err error) {
	tf, err := readTraceFlags(cmd)
	if err != nil {
		return nil, err
	}
	tracer, err := trace.New(trace.Config{
		Level:      tf.level,
		Mode:       tf.mode,
		OutputPath: tf.output,
		RingSize:   tf.ringSize,
	})
	if err != nil {
		return nil, err
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	stderr := cmd.ErrOrStderr()
	dumpAlways := tf.mode == trace.ModeRing && tf.level != trace.LevelError
	return func(failed bool) {
		if ring := trace.RingOf(tracer); ring != nil && (failed || dumpAlways) {
			if failed {
				fmt.Fprintln(stderr, "trace: events before the failure:")
			}
			_ = ring.Dump(stderr, trace.FormatText)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintln(stderr, "trace:", err)
		}
	}, nil
}
