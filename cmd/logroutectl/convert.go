package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robokit/logroute"
)

// Usage:
//   logroutectl convert <config> [flags]
//
// Flags:
//   -h, --help         help for convert
//   -o, --out string   Write to the given file instead of stdout
//   -t, --to string    Output format, json or yaml (default "json")
func NewCmdConvert() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "convert <config>",
		Short: "Rewrite a configuration document as JSON or YAML",
		Long: `Convert loads the given document, validates it, and writes it back out
in the requested format. Field names and nesting survive the trip, so
converting a document to its own format reproduces it.`,
		Example: `  logroutectl convert --to yaml deploy/logging.json
  logroutectl convert --to json --out logging.json deploy/logging.yaml`,
		Args:    cobra.ExactArgs(1),
		GroupID: "commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := logroute.Load(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			switch format {
			case "json":
				return cfg.WriteJSON(w)
			case "yaml", "yml":
				return cfg.WriteYAML(w)
			}
			return fmt.Errorf("unknown output format %q", format)
		},
	}
	cmd.Flags().StringVarP(&format, "to", "t", "json", "Output format, json or yaml")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Write to the given file instead of stdout")
	return cmd
}
