package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/conneroisu/sitegen/internal/errors"
	"github.com/conneroisu/sitegen/internal/events"
	"github.com/conneroisu/sitegen/internal/publish"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Run executes the command line args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), args, stdout, stderr)
}

// RunContext is Run with a caller-supplied context; cancelling ctx stops
// long-running commands such as watch.
func RunContext(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := newCLI(stdout, stderr)
	rootCmd := newRootCmd(c)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	code := ExitCode(err)
	if c.logger != nil {
		c.logger.Debug(ctx, "Command failed", "error_type", errors.TypeOf(err), "exit_code", code)
	}
	if code == ExitUsage && errors.IsInvalidCommand(err) {
		fmt.Fprintln(stderr, "Run 'sitegen --help' for usage.")
	}
	return code
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.IsInvalidCommand(err), errors.IsConfigError(err):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// printEvent reports pipeline progress on stdout. Skipped files are only
// listed at debug level.
func (c *cli) printEvent(event events.Event) {
	switch event.Type {
	case events.EventTypeSiteCreated:
		fmt.Fprintf(c.stdout, "Created new site at %s\n", event.Root)
	case events.EventTypeResourcePublished:
		path := filepath.ToSlash(event.Path)
		switch event.Outcome {
		case publish.OutcomeRendered, publish.OutcomeCopied:
			fmt.Fprintf(c.stdout, "%-8s %s\n", event.Outcome, path)
		case publish.OutcomeSkipped:
			if c.verbose() {
				fmt.Fprintf(c.stdout, "%-8s %s\n", event.Outcome, path)
			}
		}
	case events.EventTypeSiteCleaned:
		fmt.Fprintf(c.stdout, "Cleaned %s\n", event.Root)
	}
}
