package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"treecomp/internal/version"
)

// versionReport is the structured form of `treecomp version`. Optional
// fields are empty unless requested.
type versionReport struct {
	Tool       string `json:"tool" yaml:"tool"`
	Version    string `json:"version" yaml:"version"`
	GitCommit  string `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
	GitMessage string `json:"git_message,omitempty" yaml:"git_message,omitempty"`
	BuildDate  string `json:"build_date,omitempty" yaml:"build_date,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show treecomp build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		full, _ := flags.GetBool("full")
		want := func(name string) bool {
			on, _ := flags.GetBool(name)
			return on || full
		}
		info := version.Current()
		rep := versionReport{Tool: "treecomp", Version: info.Version}
		if want("hash") {
			rep.GitCommit = orUnknown(info.GitCommit)
		}
		if want("message") {
			rep.GitMessage = orUnknown(info.GitMessage)
		}
		if want("date") {
			rep.BuildDate = orUnknown(info.BuildDate)
		}

		format, _ := flags.GetString("format")
		out := cmd.OutOrStdout()
		switch strings.ToLower(format) {
		case "pretty":
			writeVersionPretty(out, rep)
			return nil
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		case "yaml":
			data, err := yaml.Marshal(rep)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		}
		return fmt.Errorf("unsupported format %q (pretty, json or yaml)", format)
	},
}

func init() {
	f := versionCmd.Flags()
	f.Bool("hash", false, "include the git commit hash")
	f.Bool("message", false, "include the git commit message")
	f.Bool("date", false, "include the build date")
	f.Bool("full", false, "include all build metadata")
	f.String("format", "pretty", "output format: pretty, json or yaml")
}

func writeVersionPretty(w io.Writer, rep versionReport) {
	fmt.Fprintf(w, "%s %s\n", rep.Tool, version.Colored())
	for _, row := range [...]struct{ label, value string }{
		{"commit:", rep.GitCommit},
		{"message:", rep.GitMessage},
		{"built:", rep.BuildDate},
	} {
		if row.value != "" {
			fmt.Fprintf(w, "%-8s %s\n", row.label, row.value)
		}
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
