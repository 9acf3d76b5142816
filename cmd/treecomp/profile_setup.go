package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"treecomp/internal/prof"
)

// setupProfiling starts whatever --cpu-profile, --mem-profile and
// --runtime-trace ask for. The returned stop func reports its own errors and
// may be called more than once.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	flags := cmd.Flags()
	paths := map[string]*string{}
	var cfg prof.Config
	paths["cpu-profile"] = &cfg.CPUPath
	paths["mem-profile"] = &cfg.MemPath
	paths["runtime-trace"] = &cfg.TracePath
	for name, dst := range paths {
		v, err := flags.GetString(name)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}
		*dst = v
	}
	if !cfg.Enabled() {
		return func() {}, nil
	}
	session, err := prof.Start(cfg)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "profile:", err)
		}
	}, nil
}
