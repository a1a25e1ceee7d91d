// Package publish materialises a single resource under the output root.
//
// Publishing is build-once: an existing destination is never overwritten.
// Template resources are rendered through a renderer.RenderService, every
// other resource is copied byte for byte. Destinations are written to a
// temporary file in the target directory and then linked into place, so an
// interrupted build never leaves a partial file behind and a file that
// appears concurrently is never replaced.
package publish

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/conneroisu/sitegen/internal/errors"
	"github.com/conneroisu/sitegen/internal/logging"
	"github.com/conneroisu/sitegen/internal/renderer"
	"github.com/conneroisu/sitegen/internal/resource"
	"github.com/spf13/afero"
)

// Outcome is what Publish did with a resource.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeSkipped
	OutcomeRendered
	OutcomeCopied
)

// String returns the string representation of the Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRendered:
		return "rendered"
	case OutcomeCopied:
		return "copied"
	default:
		return "unknown"
	}
}

// Wrote reports whether the outcome created a destination file.
func (o Outcome) Wrote() bool {
	return o == OutcomeRendered || o == OutcomeCopied
}

const (
	dirPerm      = 0755
	renderedPerm = 0644
)

// errDestinationExists reports that dest appeared while it was being written.
var errDestinationExists = stderrors.New("destination already exists")

// Publisher writes resources from a template root to an output root.
type Publisher struct {
	fs        afero.Fs
	renderer  renderer.RenderService
	site      renderer.SiteInfo
	buildTime time.Time
	logger    logging.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithSite sets the site-wide data passed to every template.
func WithSite(site renderer.SiteInfo) Option {
	return func(p *Publisher) {
		p.site = site
	}
}

// WithBuildTime fixes the .BuildTime value seen by templates.
func WithBuildTime(t time.Time) Option {
	return func(p *Publisher) {
		p.buildTime = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a publisher. A nil fs means the OS filesystem and a nil
// renderer means renderer.NewHTMLRenderer.
func New(fs afero.Fs, r renderer.RenderService, opts ...Option) *Publisher {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if r == nil {
		r = renderer.NewHTMLRenderer()
	}

	p := &Publisher{
		fs:        fs,
		renderer:  r,
		buildTime: time.Now(),
		logger:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("publisher")

	return p
}

// Destination returns the mirrored output path of res.
func Destination(res resource.Resource, outputRoot string) string {
	return filepath.Join(outputRoot, res.Path)
}

// Publish materialises res under outputRoot.
//
// Ignorable resources are not touched. A destination that already exists is
// skipped. Template resources are rendered, opaque resources are copied, and
// in both cases missing parent directories are created first.
func (p *Publisher) Publish(ctx context.Context, res resource.Resource, templateRoot, outputRoot string) (Outcome, error) {
	if res.Ignorable() {
		p.logger.Debug(ctx, "Ignoring resource", "path", res.Path)
		return OutcomeIgnored, nil
	}
	if err := ctx.Err(); err != nil {
		return OutcomeIgnored, err
	}

	source := filepath.Join(templateRoot, res.Path)
	dest := Destination(res, outputRoot)

	exists, err := afero.Exists(p.fs, dest)
	if err != nil {
		return OutcomeIgnored, errors.NewWriteError(dest, err)
	}
	if exists {
		p.logger.Debug(ctx, "Destination exists, skipping", "path", res.Path)
		return OutcomeSkipped, nil
	}

	if err := p.fs.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return OutcomeIgnored, errors.NewWriteError(filepath.Dir(dest), err)
	}

	outcome := OutcomeCopied
	if res.Kind() == resource.KindTemplate {
		outcome = OutcomeRendered
		err = p.render(ctx, res, source, dest)
	} else {
		err = p.copy(ctx, source, dest)
	}

	if stderrors.Is(err, errDestinationExists) {
		p.logger.Debug(ctx, "Destination created concurrently, skipping", "path", res.Path)
		return OutcomeSkipped, nil
	}
	if err != nil {
		return OutcomeIgnored, err
	}
	return outcome, nil
}

func (p *Publisher) render(ctx context.Context, res resource.Resource, source, dest string) error {
	content, err := afero.ReadFile(p.fs, source)
	if err != nil {
		return errors.NewSourceReadError(source, err)
	}

	data := renderer.Context{
		Site:      p.site,
		Path:      filepath.ToSlash(res.Path),
		BuildTime: p.buildTime,
	}

	out, err := p.renderer.Render(ctx, res.Path, content, data)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeRender) {
			return err
		}
		return errors.NewRenderError(res.Path, err)
	}

	p.logger.Debug(ctx, "Rendered template", "path", res.Path, "bytes", len(out))
	return p.writeAtomic(ctx, dest, bytes.NewReader(out), renderedPerm)
}

func (p *Publisher) copy(ctx context.Context, source, dest string) error {
	src, err := p.fs.Open(source)
	if err != nil {
		return errors.NewSourceReadError(source, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return errors.NewSourceReadError(source, err)
	}

	return p.writeAtomic(ctx, dest, &sourceReader{r: src, path: source}, info.Mode().Perm())
}

// writeAtomic streams r into a temporary sibling of dest and moves it into
// place without replacing an existing dest. The temporary file is always
// removed unless it became dest.
func (p *Publisher) writeAtomic(ctx context.Context, dest string, r io.Reader, perm os.FileMode) (err error) {
	dir := filepath.Dir(dest)
	tmp, err := afero.TempFile(p.fs, dir, "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return errors.NewWriteError(dest, err)
	}
	tmpName := tmp.Name()

	renamed := false
	defer func() {
		if err != nil {
			_ = tmp.Close()
		}
		if !renamed {
			_ = p.fs.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		var se *sourceError
		if stderrors.As(err, &se) {
			return errors.NewSourceReadError(se.path, se.err)
		}
		return errors.NewWriteError(dest, err)
	}
	if err = tmp.Close(); err != nil {
		return errors.NewWriteError(dest, err)
	}
	if err = p.fs.Chmod(tmpName, perm); err != nil {
		return errors.NewWriteError(dest, err)
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	renamed, err = p.finalize(ctx, tmpName, dest)
	return err
}

// finalize moves tmpName to dest, failing with errDestinationExists instead
// of replacing a file. On the OS filesystem a hard link makes the check and
// the move one step; other filesystems recheck dest right before renaming.
// It reports whether tmpName itself was renamed.
func (p *Publisher) finalize(ctx context.Context, tmpName, dest string) (bool, error) {
	if _, ok := p.fs.(*afero.OsFs); ok {
		err := os.Link(tmpName, dest)
		switch {
		case err == nil:
			return false, nil
		case stderrors.Is(err, os.ErrExist):
			return false, errDestinationExists
		}
		// Hard links are unsupported here; fall through to rename.
		p.logger.Debug(ctx, "Hard link failed, renaming instead", "path", dest, "error", err)
	}

	exists, err := afero.Exists(p.fs, dest)
	if err != nil {
		return false, errors.NewWriteError(dest, err)
	}
	if exists {
		return false, errDestinationExists
	}
	if err := p.fs.Rename(tmpName, dest); err != nil {
		return false, errors.NewWriteError(dest, err)
	}
	return true, nil
}

// sourceReader tags read failures so they are reported against the source
// file rather than the destination.
type sourceReader struct {
	r    io.Reader
	path string
}

func (s *sourceReader) Read(b []byte) (int, error) {
	n, err := s.r.Read(b)
	if err != nil && err != io.EOF {
		return n, &sourceError{path: s.path, err: err}
	}
	return n, err
}

type sourceError struct {
	path string
	err  error
}

func (e *sourceError) Error() string { return e.path + ": " + e.err.Error() }

func (e *sourceError) Unwrap() error { return e.err }
