//go:build property
// +build property

package resource

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func segmentGen() gopter.Gen {
	return gen.RegexMatch(`^[a-z][a-z0-9_-]{0,8}$`)
}

// TestClassifierProperties checks the ignore rule and kind dispatch over
// generated relative paths.
func TestClassifierProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	c := DefaultClassifier()

	properties.Property("a hidden segment anywhere makes the path ignorable", prop.ForAll(
		func(dirs []string, hiddenAt int, name string) bool {
			parts := append(append([]string{}, dirs...), name+".html")
			idx := hiddenAt % len(parts)
			parts[idx] = "." + parts[idx]
			return c.IsIgnorable(filepath.Join(parts...))
		},
		gen.SliceOfN(3, segmentGen()),
		gen.IntRange(0, 100),
		segmentGen(),
	))

	properties.Property("paths without hidden segments are never ignorable", prop.ForAll(
		func(dirs []string, name string) bool {
			parts := append(append([]string{}, dirs...), name)
			return !c.IsIgnorable(filepath.Join(parts...))
		},
		gen.SliceOf(segmentGen()),
		segmentGen(),
	))

	properties.Property("only the template extension selects the template kind", prop.ForAll(
		func(dirs []string, name, ext string) bool {
			parts := append(append([]string{}, dirs...), name+"."+ext)
			kind := c.ClassifyKind(filepath.Join(parts...))
			if ext == c.TemplateExt() {
				return kind == KindTemplate
			}
			return kind == KindOpaque
		},
		gen.SliceOf(segmentGen()),
		segmentGen(),
		gen.OneConstOf("html", "htm", "HTML", "css", "png", "js", "xhtml"),
	))

	properties.Property("directory names never influence the kind", prop.ForAll(
		func(dirs []string, name string) bool {
			for i := range dirs {
				dirs[i] = dirs[i] + ".html"
			}
			parts := append(append([]string{}, dirs...), name)
			return c.ClassifyKind(filepath.Join(parts...)) == KindOpaque
		},
		gen.SliceOf(segmentGen()),
		segmentGen().SuchThat(func(s string) bool { return !strings.Contains(s, ".") }),
	))

	properties.TestingRun(t)
}
