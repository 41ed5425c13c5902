package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robokit/logroute"
)

// Usage:
//   logroutectl verify <config>... [flags]
//
// Flags:
//   -h, --help   help for verify
func NewCmdVerify() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <config>...",
		Short: "Check configuration documents",
		Long: `Verify loads each document, checks it against the schema, and reports
every problem found. The format is chosen by file extension: ".json"
for JSON, ".yaml" or ".yml" for YAML.

Verification covers parsing only. Destinations named by the documents,
such as log files, are not opened.`,
		Example: `  logroutectl verify deploy/logging.yaml
  logroutectl verify conf.d/*.json`,
		Args:    cobra.MinimumNArgs(1),
		GroupID: "commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, path := range args {
				if _, err := logroute.Load(path); err != nil {
					cmd.PrintErrf("%s: %v\n", path, err)
					failed++
					continue
				}
				cmd.Printf("%s: ok\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(args))
			}
			return nil
		},
	}
}
