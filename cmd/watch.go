package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/conneroisu/sitegen/internal/errors"
	"github.com/conneroisu/sitegen/internal/events"
	"github.com/conneroisu/sitegen/internal/logging"
	"github.com/conneroisu/sitegen/internal/site"
	"github.com/conneroisu/sitegen/internal/watcher"
	"github.com/spf13/cobra"
)

func newWatchCmd(c *cli) *cobra.Command {
	var clean bool

	watchCmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Build the site and rebuild whenever the template directory changes",
		Long: `Build the site rooted at path (default: current directory), then watch its
Template directory and rebuild after every burst of changes.

Rebuilds skip files whose destination already exists, so by default only new
files are published. Use --clean to remove Output before every rebuild so that
modified and deleted sources are reflected too.

Stop watching with Ctrl+C.

Examples:
  sitegen watch mysite
  sitegen watch mysite --clean`,
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), siteRoot(args), clean)
		},
	}

	watchCmd.Flags().BoolVar(&clean, "clean", false, "remove the output directory before each rebuild")

	return watchCmd
}

func (c *cli) runWatch(ctx context.Context, root string, clean bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	builder := c.builder()
	logger := c.logger.WithComponent("watch")

	// The first build must succeed before anything is watched.
	if _, err := builder.Build(ctx, root); err != nil {
		return err
	}

	finished := c.bus.Watch()
	defer c.bus.UnWatch(finished)
	go reportRebuilds(ctx, logger, builder.Metrics(), finished)

	fileWatcher, err := watcher.NewFileWatcher(c.cfg.Watch.Debounce, c.logger)
	if err != nil {
		return errors.WrapIO(err, root, "failed to create file watcher")
	}
	defer fileWatcher.Stop()

	templateRoot := builder.TemplateRoot(root)
	fileWatcher.AddFilter(watcher.NoEditorTempFilter)
	fileWatcher.AddFilter(watcher.IgnorableFilter(templateRoot, builder.Classifier()))
	fileWatcher.AddHandler(func(changes []watcher.ChangeEvent) error {
		logger.Info(ctx, "Changes detected, rebuilding", "changes", len(changes))
		return rebuild(ctx, builder, root, clean)
	})

	if err := fileWatcher.AddRecursive(templateRoot); err != nil {
		return errors.WrapIO(err, templateRoot, "failed to watch template directory")
	}
	if err := fileWatcher.Start(ctx); err != nil {
		return errors.WrapIO(err, templateRoot, "failed to start file watcher")
	}

	logger.Info(ctx, "Watching for changes", "path", templateRoot)
	<-ctx.Done()
	logger.Info(ctx, "Stopped watching")

	return nil
}

// reportRebuilds logs the running build totals after every rebuild until
// finished is closed.
func reportRebuilds(ctx context.Context, logger logging.Logger, metrics *site.Metrics, finished <-chan events.Event) {
	for event := range finished {
		if event.Type != events.EventTypeBuildFinished {
			continue
		}
		snapshot := metrics.GetSnapshot()
		logger.Info(ctx, "Rebuild finished",
			"duration", event.Duration,
			"ok", event.Err == nil,
			"builds", snapshot.TotalBuilds,
			"success_rate", fmt.Sprintf("%.0f%%", metrics.GetSuccessRate()),
		)
	}
}

// rebuild runs one build after a batch of changes, cleaning the output first
// when requested. A missing output directory does not fail the clean.
func rebuild(ctx context.Context, builder *site.Builder, root string, clean bool) error {
	if clean {
		if err := builder.Clean(ctx, root); err != nil && !errors.IsCleanMissing(err) {
			return err
		}
	}
	_, err := builder.Build(ctx, root)
	return err
}
