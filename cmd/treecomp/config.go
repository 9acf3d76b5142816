package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"treecomp/internal/optable"
	"treecomp/internal/project"
)

// loadedConfig is the project configuration after --config lookup.
type loadedConfig struct {
	cfg  project.Config
	path string // manifest path, "" when running on defaults
	root string
}

func loadConfig(cmd *cobra.Command) (loadedConfig, error) {
	explicit, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return loadedConfig{}, err
	}
	if explicit != "" {
		m, err := project.LoadManifestFile(explicit)
		if err != nil {
			return loadedConfig{}, err
		}
		return loadedConfig{cfg: m.Config, path: m.Path, root: m.Root}, nil
	}
	m, ok, err := project.LoadManifest(".")
	if err != nil {
		return loadedConfig{}, err
	}
	if !ok {
		return loadedConfig{cfg: project.Defaults()}, nil
	}
	return loadedConfig{cfg: m.Config, path: m.Path, root: m.Root}, nil
}

func (l loadedConfig) operators() (*optable.Table, error) {
	table, err := l.cfg.OperatorTable(l.root)
	if err != nil {
		if l.path != "" {
			return nil, fmt.Errorf("%s: operators: %w", l.path, err)
		}
		return nil, err
	}
	return table, nil
}

// applyCompileFlags overrides config values with flags the user set.
func applyCompileFlags(cmd *cobra.Command, c *project.CompileConfig) error {
	flags := cmd.Flags()
	var err error
	if flags.Changed("formatted") {
		if c.Formatted, err = flags.GetBool("formatted"); err != nil {
			return err
		}
	}
	if flags.Changed("max-depth") {
		if c.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
			return err
		}
	}
	if flags.Changed("out-dir") {
		if c.OutDir, err = flags.GetString("out-dir"); err != nil {
			return err
		}
	}
	if flags.Changed("jobs") {
		if c.Jobs, err = flags.GetInt("jobs"); err != nil {
			return err
		}
	}
	if flags.Changed("no-cache") {
		noCache, err := flags.GetBool("no-cache")
		if err != nil {
			return err
		}
		c.Cache = !noCache
	}
	if cmd.Root().PersistentFlags().Changed("max-diagnostics") {
		if c.MaxDiagnostics, err = cmd.Root().PersistentFlags().GetInt("max-diagnostics"); err != nil {
			return err
		}
	}
	if c.MaxDepth < 0 || c.Jobs < 0 || c.MaxDiagnostics < 0 {
		return fmt.Errorf("--max-depth, --jobs and --max-diagnostics must not be negative")
	}
	return nil
}
