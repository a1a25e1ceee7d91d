package cmd

import (
	"github.com/conneroisu/sitegen/internal/errors"
	"github.com/conneroisu/sitegen/internal/site"
	"github.com/spf13/cobra"
)

func newNewCmd(c *cli) *cobra.Command {
	var example bool

	newCmd := &cobra.Command{
		Use:     "new <path>",
		Aliases: []string{"init"},
		Short:   "Create a new site",
		Long: `Create a new site at the given path.

The site root gets a Template directory for sources, an Output directory for
the generated site and a starter .sitegen.yml. Existing files are left
untouched, so running new twice is harmless.

Examples:
  sitegen new mysite              Scaffold an empty site
  sitegen new mysite --example    Also seed an index page and stylesheet`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.NewInvalidCommand("must provide a site path")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.builder().Create(cmd.Context(), args[0], site.CreateOptions{Example: example})
		},
	}

	newCmd.Flags().BoolVar(&example, "example", false, "seed the template directory with a starter page and stylesheet")

	return newCmd
}
