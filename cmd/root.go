// Package cmd provides the sitegen command-line interface.
//
// Configuration System:
//
//	Values are resolved from, highest priority first:
//	1. Command-line flags (--log-level, --workers, --missing-ok, ...)
//	2. SITEGEN_<SECTION>_<KEY> environment variables (SITEGEN_BUILD_WORKERS=4)
//	3. The configuration file: --config, else SITEGEN_CONFIG_FILE, else
//	   .sitegen.yml in the site root or the current directory
//	4. Built-in defaults
//
// Every invocation builds a fresh command tree and viper instance, so Run can
// be called repeatedly (and concurrently from tests) without shared state.
package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/sitegen/internal/config"
	"github.com/conneroisu/sitegen/internal/errors"
	"github.com/conneroisu/sitegen/internal/events"
	"github.com/conneroisu/sitegen/internal/logging"
	"github.com/conneroisu/sitegen/internal/site"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ConfigFileEnv names the environment variable holding a config file path.
const ConfigFileEnv = config.EnvPrefix + "_CONFIG_FILE"

// cli holds the state shared by the commands of one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	stdout  io.Writer
	stderr  io.Writer
	cfg     *config.Config
	logger  logging.Logger
	bus     *events.Bus
}

func newCLI(stdout, stderr io.Writer) *cli {
	c := &cli{
		v:      viper.New(),
		stdout: stdout,
		stderr: stderr,
		bus:    events.NewBus(),
	}
	c.bus.Subscribe(events.SinkFunc(c.printEvent))
	return c
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sitegen",
		Short: "Build a static site from a directory of templates and assets",
		Long: `sitegen turns a site root into a static website. Files under the site's
Template directory are rendered (.html templates) or copied verbatim (everything
else) into the Output directory, mirroring the directory structure. Paths with a
segment starting with "." are never published.

Quick Start:
  sitegen new mysite --example    Create a site with a starter page
  sitegen build mysite            Render Template/ into Output/
  sitegen watch mysite            Rebuild whenever Template/ changes
  sitegen clean mysite            Remove Output/`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return errors.NewInvalidCommand(fmt.Sprintf("unknown command %q", args[0]))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.NewInvalidCommand("must provide a command")
		},
		PersistentPreRunE: c.initConfig,
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.NewInvalidCommand(err.Error())
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is .sitegen.yml, can also use "+ConfigFileEnv+" env var)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.Int("workers", 0, "number of resources published in parallel (default min(NumCPU, 8))")
	flags.String("params", "", "YAML file whose mapping is merged into .Site.Params")

	rootCmd.AddCommand(
		newNewCmd(c),
		newBuildCmd(c),
		newCleanCmd(c),
		newWatchCmd(c),
		newVersionCmd(c),
	)

	rootCmd.SetOut(c.stdout)
	rootCmd.SetErr(c.stderr)

	return rootCmd
}

// initConfig loads the configuration and builds the logger before any
// command runs.
func (c *cli) initConfig(cmd *cobra.Command, args []string) error {
	v := c.v

	explicit := c.cfgFile
	if explicit == "" {
		explicit = os.Getenv(ConfigFileEnv)
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		if len(args) > 0 {
			v.AddConfigPath(args[0])
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(config.FileName)
	}

	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Only a searched-for file may be absent.
		if explicit != "" || !stderrors.As(err, &notFound) {
			return errors.NewConfigError(fmt.Sprintf("failed to read config file: %v", err))
		}
	}

	if err := absFlag(cmd, "params"); err != nil {
		return errors.NewConfigError(err.Error())
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return errors.NewConfigError(err.Error())
	}

	cfg, err := config.LoadFrom(v)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level, _ := logging.ParseLevel(cfg.Log.Level)
	c.logger = logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: c.stderr,
	})

	if used := v.ConfigFileUsed(); used != "" {
		c.logger.Debug(cmd.Context(), "Using config file", "path", used)
	}

	return nil
}

func (c *cli) builder() *site.Builder {
	return site.New(
		site.WithConfig(c.cfg),
		site.WithLogger(c.logger),
		site.WithSink(c.bus),
	)
}

func (c *cli) verbose() bool {
	return c.cfg != nil && strings.EqualFold(c.cfg.Log.Level, "debug")
}

// siteRoot returns the optional site root argument, defaulting to the
// current directory.
func siteRoot(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

// absFlag pins a relative path flag to the working directory, so it is not
// later resolved against the config file's directory.
func absFlag(cmd *cobra.Command, name string) error {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed || f.Value.String() == "" || filepath.IsAbs(f.Value.String()) {
		return nil
	}
	abs, err := filepath.Abs(f.Value.String())
	if err != nil {
		return fmt.Errorf("invalid --%s path: %w", name, err)
	}
	return f.Value.Set(abs)
}

// maxArgs rejects more than n positional arguments as an invalid command.
func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return errors.NewInvalidCommand(fmt.Sprintf("%s accepts at most %d argument(s), got %d", cmd.Name(), n, len(args)))
		}
		return nil
	}
}
