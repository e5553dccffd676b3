package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omarluq/skillswap/internal/version"
)

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, git commit, and build date.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), version.Get())
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version.String())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
