package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/robokit/logroute/internal/build"
)

var (
	rootCmd = &cobra.Command{
		Use:     "logroutectl",
		Short:   "Validate and convert logging configuration documents",
		Version: build.Version(),
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "commands", Title: "Commands:"},
	)
	rootCmd.AddCommand(
		NewCmdVerify(),
		NewCmdConvert(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
