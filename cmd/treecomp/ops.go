package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"treecomp/internal/optable"
)

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "List the operator table compiles would use",
	Long: `List the operator names and tokens the emitter resolves against, after
treecomp.toml's [operators] settings are applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		loaded, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		table, err := loaded.operators()
		if err != nil {
			return err
		}
		switch format {
		case "text":
			writeOperatorTable(cmd.OutOrStdout(), table)
			return nil
		case "json":
			return writeOperatorJSON(cmd.OutOrStdout(), table)
		default:
			return fmt.Errorf("unsupported format %q (expected text|json)", format)
		}
	},
}

func init() {
	opsCmd.Flags().String("format", "text", "output format (text|json)")
}

func writeOperatorTable(w io.Writer, table *optable.Table) {
	names := table.Names()
	width := len("NAME")
	for _, name := range names {
		width = max(width, runewidth.StringWidth(name))
	}
	header := color.New(color.Bold)
	header.Fprintf(w, "%s  %s\n", runewidth.FillRight("NAME", width), "TOKEN")
	for _, name := range names {
		tok, _ := table.Resolve(name)
		fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(name, width), tok)
	}
}

type operatorEntry struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

func writeOperatorJSON(w io.Writer, table *optable.Table) error {
	names := table.Names()
	entries := make([]operatorEntry, 0, len(names))
	for _, name := range names {
		tok, _ := table.Resolve(name)
		entries = append(entries, operatorEntry{Name: name, Token: tok})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Fingerprint string          `json:"fingerprint"`
		Operators   []operatorEntry `json:"operators"`
	}{Fingerprint: table.Fingerprint(), Operators: entries})
}
