package cmd

import (
	"github.com/spf13/cobra"
)

func newCleanCmd(c *cli) *cobra.Command {
	cleanCmd := &cobra.Command{
		Use:   "clean [path]",
		Short: "Remove the output directory",
		Long: `Remove the Output directory of the site rooted at path (default: current
directory) and everything in it. The Template directory is never touched.

A missing Output directory is an error unless --missing-ok is given.

Examples:
  sitegen clean mysite
  sitegen clean --missing-ok`,
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.builder().Clean(cmd.Context(), siteRoot(args))
		},
	}

	cleanCmd.Flags().Bool("missing-ok", false, "succeed when the output directory does not exist")

	return cleanCmd
}
