package main

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"treecomp/internal/buildpipeline"
	"treecomp/internal/driver"
	"treecomp/internal/ui"
)

// runCompileWithUI compiles paths in the background while the progress view
// renders its events. files are the display names the driver reports under.
// The view exits once the driver closes the event channel.
func runCompileWithUI(ctx context.Context, title string, files, paths []string, opts driver.Options) (*driver.Run, error) {
	events := make(chan buildpipeline.Event, 256)
	opts.Progress = buildpipeline.Tee(opts.Progress, buildpipeline.ToChannel(events))

	var (
		run        *driver.Run
		compileErr error
		finished   = make(chan struct{})
	)
	go func() {
		defer close(finished)
		defer close(events)
		run, compileErr = driver.CompileFiles(ctx, paths, opts)
	}()

	_, viewErr := tea.NewProgram(ui.NewProgressModel(title, files, events), tea.WithOutput(os.Stdout)).Run()
	if viewErr != nil {
		// keep draining so the workers never block on a full channel
		go func() {
			for range events {
			}
		}()
	}
	<-finished
	return run, errors.Join(viewErr, compileErr)
}
