// Package walker enumerates the regular files below a template root.
package walker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/sitegen/internal/errors"
	"github.com/conneroisu/sitegen/internal/logging"
	"github.com/spf13/afero"
)

// Walker recursively lists files on an afero filesystem.
type Walker struct {
	fs     afero.Fs
	logger logging.Logger
}

// New creates a walker. A nil fs means the OS filesystem.
func New(fs afero.Fs, logger logging.Logger) *Walker {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Walker{fs: fs, logger: logger.WithComponent("walker")}
}

// Walk returns the absolute path of every regular file under rootDir,
// descending into every subdirectory. Order is unspecified.
//
// A missing rootDir yields a DirectoryNotFound error. Any other filesystem
// error aborts the walk. A symlink to a regular file is returned under its
// own path; dangling links, links to directories and other non-regular
// entries fail the walk.
func (w *Walker) Walk(ctx context.Context, rootDir string) ([]string, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, errors.WrapIO(err, rootDir, "failed to resolve directory")
	}

	info, err := w.fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewDirectoryNotFound(root, err)
		}
		return nil, errors.WrapIO(err, root, "failed to stat directory")
	}
	if !info.IsDir() {
		return nil, errors.NewDirectoryNotFound(root, nil)
	}

	var files []string
	err = afero.Walk(w.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.WrapIO(err, path, "failed to read directory entry")
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if info.IsDir() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return w.followLink(path, &files)
		}
		if !info.Mode().IsRegular() {
			return errors.WrapIO(fmt.Errorf("unsupported file mode %s", info.Mode()), path, "failed to read directory entry")
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.logger.Debug(ctx, "Walked template root", "root", root, "files", len(files))
	return files, nil
}

func (w *Walker) followLink(path string, files *[]string) error {
	target, err := w.fs.Stat(path)
	if err != nil {
		return errors.WrapIO(err, path, "failed to resolve symlink")
	}
	if !target.Mode().IsRegular() {
		return errors.WrapIO(fmt.Errorf("symlink target has unsupported mode %s", target.Mode()), path, "failed to resolve symlink")
	}
	*files = append(*files, path)
	return nil
}
