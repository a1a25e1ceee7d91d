package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newBuildCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "build [path]",
		Short: "Render the template directory into the output directory",
		Long: `Build the site rooted at path (default: current directory).

Every file under Template is published to the same relative path under
Output: .html files are rendered as templates with the site configuration,
everything else is copied byte for byte. Files whose destination already
exists are skipped, and paths with a segment starting with "." are ignored.

Examples:
  sitegen build                 Build the site in the current directory
  sitegen build mysite          Build the site at mysite
  sitegen build --workers 1     Publish one file at a time`,
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd, siteRoot(args))
		},
	}
}

func (c *cli) runBuild(cmd *cobra.Command, root string) error {
	result, err := c.builder().Build(cmd.Context(), root)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "Built %d file(s) in %s (%d rendered, %d copied, %d skipped)\n",
		result.Written(),
		result.Duration.Round(time.Millisecond),
		result.Rendered,
		result.Copied,
		result.Skipped,
	)
	return nil
}
