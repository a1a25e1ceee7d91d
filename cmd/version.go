package cmd

import (
	"fmt"

	"github.com/conneroisu/sitegen/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd(c *cli) *cobra.Command {
	var (
		format string
		short  bool
	)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display version information including build details, git commit, and platform.

Examples:
  sitegen version                 Show version information
  sitegen version --short         Show only the version
  sitegen version --format json   Show version in JSON format`,
		Args: maxArgs(0),
		// Version output must not depend on a readable configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetBuildInfo()
			if short {
				_, err := fmt.Fprintln(c.stdout, info.Short())
				return err
			}
			return info.Write(c.stdout, format)
		},
	}

	versionCmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json)")
	versionCmd.Flags().BoolVarP(&short, "short", "s", false, "show only version number")

	return versionCmd
}
