// Package testutils holds fixtures shared by the package tests: site trees on
// a real or in-memory filesystem and a few filesystem assertions.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/conneroisu/sitegen/internal/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// WriteTree writes files under root on fs. Keys are slash-separated paths
// relative to root.
func WriteTree(t testing.TB, fs afero.Fs, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
}

// ReadTree returns every regular file under root keyed by its
// slash-separated relative path. A missing root yields an empty map.
func ReadTree(t testing.TB, fs afero.Fs, root string) map[string]string {
	t.Helper()

	tree := make(map[string]string)
	if exists, err := afero.DirExists(fs, root); err != nil || !exists {
		return tree
	}

	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)

	return tree
}

// CreateSite creates a site root in a temporary directory with the given
// template files and an empty output directory, and returns the root.
func CreateSite(t testing.TB, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	fs := afero.NewOsFs()

	require.NoError(t, fs.MkdirAll(filepath.Join(root, cfg.Build.TemplateDir), 0755))
	require.NoError(t, fs.MkdirAll(filepath.Join(root, cfg.Build.OutputDir), 0755))
	WriteTree(t, fs, filepath.Join(root, cfg.Build.TemplateDir), files)

	return root
}

// CreateMemSite is CreateSite on an in-memory filesystem rooted at /site.
func CreateMemSite(t testing.TB, files map[string]string) (afero.Fs, string) {
	t.Helper()

	fs := afero.NewMemMapFs()
	root := "/site"
	cfg := config.Default()

	require.NoError(t, fs.MkdirAll(filepath.Join(root, cfg.Build.TemplateDir), 0755))
	WriteTree(t, fs, filepath.Join(root, cfg.Build.TemplateDir), files)

	return fs, root
}

// AssertFilePermissions checks the permission bits of a file.
func AssertFilePermissions(t testing.TB, fs afero.Fs, path string, expectedMode os.FileMode) {
	t.Helper()

	info, err := fs.Stat(path)
	require.NoError(t, err)

	actualMode := info.Mode()
	require.Equal(t, expectedMode, actualMode&os.FileMode(0777),
		"File %s has incorrect permissions: got %o, want %o",
		path, actualMode&os.FileMode(0777), expectedMode)
}

// WaitForFile waits until path exists (useful for testing file watchers)
func WaitForFile(t testing.TB, path string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s did not appear within %v", path, timeout)
}

// WaitForFileChange waits for a file to be modified (useful for testing file watchers)
func WaitForFileChange(
	t testing.TB,
	filePath string,
	originalModTime time.Time,
	timeout time.Duration,
) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}
