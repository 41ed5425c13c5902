//go:build docgen

package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var docGenCmd = &cobra.Command{
	Use:    "docgen",
	Short:  "Generate documentation",
	Hidden: true,
}

var manDocGenCmd = &cobra.Command{
	Use:   "man",
	Short: "Generate man pages",
	RunE: func(_ *cobra.Command, _ []string) error {
		hdr := &doc.GenManHeader{
			Title:   "LOGROUTECTL",
			Section: "1",
		}
		if err := os.MkdirAll("docs/man", 0750); err != nil {
			return err
		}
		return doc.GenManTree(rootCmd, hdr, "docs/man")
	},
}

func init() {
	docGenCmd.AddCommand(manDocGenCmd)
	rootCmd.AddCommand(docGenCmd)
}
