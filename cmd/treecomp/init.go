package main

import (
	"cmp"
	"fmt"

	"github.com/spf13/cobra"

	"treecomp/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a default treecomp.toml",
	Long:  "Write a treecomp.toml holding the default settings to dir (the current directory by default).",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing treecomp.toml")
}

func runInit(cmd *cobra.Command, args []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	dir := "."
	if len(args) > 0 {
		dir = cmp.Or(args[0], dir)
	}
	path, err := project.WriteDefaultManifest(dir, force)
	if err != nil {
		return err
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), "created", path)
	}
	return nil
}
