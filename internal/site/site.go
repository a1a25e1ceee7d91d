// Package site drives the build pipeline for one site root.
//
// A site root holds two subtrees: the template directory (sources) and the
// output directory (generated). Builder scaffolds a root, builds the output
// tree from the template tree, and cleans the output tree away again.
//
// Build proceeds through Init, Walking, Classifying and Publishing to Done, or
// to Failed on the first error. Publishing runs on a bounded worker pool. A
// failed build is not rolled back; every destination is written atomically
// and existing destinations are skipped, so running Build again resumes.
package site

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/sitegen/internal/config"
	"github.com/conneroisu/sitegen/internal/errors"
	"github.com/conneroisu/sitegen/internal/events"
	"github.com/conneroisu/sitegen/internal/logging"
	"github.com/conneroisu/sitegen/internal/publish"
	"github.com/conneroisu/sitegen/internal/renderer"
	"github.com/conneroisu/sitegen/internal/resource"
	"github.com/conneroisu/sitegen/internal/walker"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// State is the phase a build is in.
type State int

const (
	StateInit State = iota
	StateWalking
	StateClassifying
	StatePublishing
	StateDone
	StateFailed
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateWalking:
		return "walking"
	case StateClassifying:
		return "classifying"
	case StatePublishing:
		return "publishing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result summarises a build.
type Result struct {
	Root      string
	Rendered  int
	Copied    int
	Skipped   int
	Ignored   int
	Published []string
	Duration  time.Duration
	State     State
}

// Total is the number of resources the build considered.
func (r *Result) Total() int {
	return r.Rendered + r.Copied + r.Skipped + r.Ignored
}

// Written is the number of destinations the build created.
func (r *Result) Written() int {
	return r.Rendered + r.Copied
}

func (r *Result) record(path string, outcome publish.Outcome) {
	switch outcome {
	case publish.OutcomeRendered:
		r.Rendered++
	case publish.OutcomeCopied:
		r.Copied++
	case publish.OutcomeSkipped:
		r.Skipped++
	case publish.OutcomeIgnored:
		r.Ignored++
	}
	if outcome.Wrote() {
		r.Published = append(r.Published, path)
	}
}

// CreateOptions controls Create.
type CreateOptions struct {
	// Example seeds the template directory with a starter page and stylesheet.
	Example bool
}

// Builder runs Create, Build and Clean against site roots.
type Builder struct {
	fs         afero.Fs
	cfg        *config.Config
	renderer   renderer.RenderService
	logger     logging.Logger
	sink       events.Sink
	now        func() time.Time
	metrics    *Metrics
	classifier *resource.Classifier
}

// Option configures a Builder.
type Option func(*Builder)

// WithFs sets the filesystem every operation runs against.
func WithFs(fs afero.Fs) Option {
	return func(b *Builder) {
		b.fs = fs
	}
}

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(b *Builder) {
		b.cfg = cfg
	}
}

// WithRenderer replaces the template renderer.
func WithRenderer(r renderer.RenderService) Option {
	return func(b *Builder) {
		b.renderer = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithSink sets where events are emitted.
func WithSink(sink events.Sink) Option {
	return func(b *Builder) {
		b.sink = sink
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// New creates a builder. Unset collaborators default to the OS filesystem,
// the default configuration, the HTML renderer, a discarding logger and a
// discarding event sink.
func New(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}

	if b.fs == nil {
		b.fs = afero.NewOsFs()
	}
	if b.cfg == nil {
		b.cfg = config.Default()
	}
	if b.renderer == nil {
		b.renderer = renderer.NewHTMLRenderer()
	}
	if b.logger == nil {
		b.logger = logging.NewNopLogger()
	}
	if b.sink == nil {
		b.sink = events.Discard
	}
	if b.now == nil {
		b.now = time.Now
	}

	b.logger = b.logger.WithComponent("site")
	b.metrics = NewMetrics()
	b.classifier = resource.NewClassifier(b.cfg.Build.HiddenPrefix, b.cfg.Build.TemplateExt)

	return b
}

// Metrics returns the builder's accumulated metrics.
func (b *Builder) Metrics() *Metrics {
	return b.metrics
}

// Classifier returns the rules used to classify template paths.
func (b *Builder) Classifier() *resource.Classifier {
	return b.classifier
}

// TemplateRoot returns the template directory of root. An absolute
// build.template_dir is used as is.
func (b *Builder) TemplateRoot(root string) string {
	return siteDir(root, b.cfg.Build.TemplateDir)
}

// OutputRoot returns the output directory of root. An absolute
// build.output_dir is used as is.
func (b *Builder) OutputRoot(root string) string {
	return siteDir(root, b.cfg.Build.OutputDir)
}

func siteDir(root, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(root, dir)
}

const (
	exampleIndex = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{ .Site.Title }}</title>
  <link rel="stylesheet" href="{{ .Site.BaseURL }}style.css">
</head>
<body>
  <h1>{{ title .Site.Title }}</h1>
  <p>Built {{ .BuildTime.Format "2006-01-02" }}.</p>
</body>
</html>
`
	exampleStyle = `body {
  font-family: system-ui, sans-serif;
  margin: 2rem auto;
  max-width: 40rem;
}
`
)

// Create scaffolds the template and output directories under root and
// writes a starter configuration file if none exists. Existing directories
// and files are left alone, so Create is idempotent.
func (b *Builder) Create(ctx context.Context, root string, opts CreateOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	templateRoot := b.TemplateRoot(root)
	for _, dir := range []string{templateRoot, b.OutputRoot(root)} {
		if err := b.fs.MkdirAll(dir, 0755); err != nil {
			return errors.NewWriteError(dir, err)
		}
	}

	if opts.Example {
		seeds := map[string]string{
			"index.html": exampleIndex,
			"style.css":  exampleStyle,
		}
		for name, content := range seeds {
			if err := b.writeIfAbsent(filepath.Join(templateRoot, name), []byte(content)); err != nil {
				return err
			}
		}
	}

	starter, err := b.cfg.StarterYAML()
	if err != nil {
		return fmt.Errorf("failed to encode starter config: %w", err)
	}
	if err := b.writeIfAbsent(filepath.Join(root, config.FileName+".yml"), starter); err != nil {
		return err
	}

	b.logger.Info(ctx, "Site created", "root", root, "example", opts.Example)
	b.sink.Emit(events.Event{Type: events.EventTypeSiteCreated, Root: root, Timestamp: b.now()})

	return nil
}

func (b *Builder) writeIfAbsent(path string, data []byte) error {
	exists, err := afero.Exists(b.fs, path)
	if err != nil {
		return errors.NewWriteError(path, err)
	}
	if exists {
		return nil
	}
	if err := afero.WriteFile(b.fs, path, data, 0644); err != nil {
		return errors.NewWriteError(path, err)
	}
	return nil
}

// Build publishes every resource of root's template directory into its
// output directory.
//
// The returned Result is populated even when Build fails; its State is then
// StateFailed and the error is a build error wrapping the first failure.
func (b *Builder) Build(ctx context.Context, root string) (*Result, error) {
	start := b.now()
	result := &Result{Root: root, State: StateInit}
	perf := logging.StartOperation(b.logger, "build")

	b.sink.Emit(events.Event{Type: events.EventTypeBuildStarted, Root: root, Timestamp: start})

	err := b.build(ctx, root, start, result)
	result.Duration = b.now().Sub(start)
	sort.Strings(result.Published)

	if err != nil {
		result.State = StateFailed
		err = errors.NewBuildError(root, err)
		perf.EndWithError(ctx, err)
	} else {
		result.State = StateDone
		perf.End(ctx)
	}

	b.metrics.RecordBuild(result, err)
	b.sink.Emit(events.Event{
		Type:      events.EventTypeBuildFinished,
		Root:      root,
		Duration:  result.Duration,
		Err:       err,
		Timestamp: b.now(),
	})

	return result, err
}

func (b *Builder) build(ctx context.Context, root string, start time.Time, result *Result) error {
	templateRoot, err := filepath.Abs(b.TemplateRoot(root))
	if err != nil {
		return errors.WrapIO(err, root, "failed to resolve site root")
	}
	outputRoot, err := filepath.Abs(b.OutputRoot(root))
	if err != nil {
		return errors.WrapIO(err, root, "failed to resolve site root")
	}

	// Validate only sees the configured strings; the resolved roots decide.
	if config.Nested(templateRoot, outputRoot) || config.Nested(outputRoot, templateRoot) {
		return errors.NewConfigError(fmt.Sprintf(
			"template directory %s and output directory %s must not be nested", templateRoot, outputRoot))
	}

	if err := b.fs.MkdirAll(outputRoot, 0755); err != nil {
		return errors.NewWriteError(outputRoot, err)
	}

	result.State = StateWalking
	files, err := walker.New(b.fs, b.logger).Walk(ctx, templateRoot)
	if err != nil {
		return err
	}

	result.State = StateClassifying
	resources := make([]resource.Resource, 0, len(files))
	for _, file := range files {
		rel, err := filepath.Rel(templateRoot, file)
		if err != nil {
			return errors.WrapIO(err, file, "failed to compute relative path")
		}
		res, err := resource.New(rel, b.classifier)
		if err != nil {
			return errors.WrapIO(err, file, "invalid resource path")
		}
		resources = append(resources, res)
	}
	b.logger.Debug(ctx, "Classified resources", "count", len(resources))

	result.State = StatePublishing
	publisher := publish.New(b.fs, b.renderer,
		publish.WithSite(renderer.SiteInfo{
			Title:   b.cfg.Site.Title,
			BaseURL: b.cfg.Site.BaseURL,
			Params:  b.cfg.Site.Params,
		}),
		publish.WithBuildTime(start),
		publish.WithLogger(b.logger),
	)

	var mu sync.Mutex
	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(b.workers())

	for _, res := range resources {
		res := res
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			outcome, err := publisher.Publish(ctx, res, templateRoot, outputRoot)
			if err != nil {
				return err
			}

			mu.Lock()
			result.record(res.Path, outcome)
			mu.Unlock()

			b.sink.Emit(events.Event{
				Type:      events.EventTypeResourcePublished,
				Root:      root,
				Path:      res.Path,
				Kind:      res.Kind(),
				Outcome:   outcome,
				Timestamp: b.now(),
			})
			return nil
		})
	}

	return p.Wait()
}

func (b *Builder) workers() int {
	if b.cfg.Build.Workers < 1 {
		return 1
	}
	return b.cfg.Build.Workers
}

// Clean removes root's output directory and everything in it.
//
// A missing output directory is an error unless build.clean_missing_ok is
// set. Clean refuses to run when the output directory is, or contains, the
// template directory.
func (b *Builder) Clean(ctx context.Context, root string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	perf := logging.StartOperation(b.logger, "clean")
	err := b.clean(ctx, root)
	if err != nil {
		perf.EndWithError(ctx, err)
		return err
	}
	perf.End(ctx)

	return nil
}

func (b *Builder) clean(ctx context.Context, root string) error {
	templateRoot, err := filepath.Abs(b.TemplateRoot(root))
	if err != nil {
		return errors.NewCleanError(errors.ErrCodeCleanFailed, root, err)
	}
	outputRoot, err := filepath.Abs(b.OutputRoot(root))
	if err != nil {
		return errors.NewCleanError(errors.ErrCodeCleanFailed, root, err)
	}

	if config.Nested(outputRoot, templateRoot) {
		return errors.NewCleanError(errors.ErrCodeCleanFailed, outputRoot,
			fmt.Errorf("refusing to remove %s: it contains the template directory", outputRoot))
	}

	info, err := b.fs.Stat(outputRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			return errors.NewCleanError(errors.ErrCodeCleanFailed, outputRoot, err)
		}
		if b.cfg.Build.CleanMissingOK {
			b.logger.Debug(ctx, "Output directory already absent", "path", outputRoot)
			b.sink.Emit(events.Event{Type: events.EventTypeSiteCleaned, Root: root, Timestamp: b.now()})
			return nil
		}
		return errors.NewCleanError(errors.ErrCodeCleanMissing, outputRoot, err)
	}
	if !info.IsDir() {
		return errors.NewCleanError(errors.ErrCodeCleanFailed, outputRoot,
			fmt.Errorf("%s is not a directory", outputRoot))
	}

	if err := b.fs.RemoveAll(outputRoot); err != nil {
		return errors.NewCleanError(errors.ErrCodeCleanFailed, outputRoot, err)
	}

	b.logger.Info(ctx, "Output removed", "path", outputRoot)
	b.sink.Emit(events.Event{Type: events.EventTypeSiteCleaned, Root: root, Timestamp: b.now()})

	return nil
}
