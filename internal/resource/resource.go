// Package resource classifies files found under a site's template root.
//
// A Resource is a value object wrapping a path relative to the template
// root. Whether it is ignorable and what kind it is are never stored: both
// are pure functions of the path, evaluated by a Classifier on every call.
package resource

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the publishing strategy for a resource.
type Kind int

const (
	// KindOpaque resources are copied byte for byte.
	KindOpaque Kind = iota
	// KindTemplate resources are rendered before being written.
	KindTemplate
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindTemplate:
		return "template"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Default classification settings.
const (
	DefaultHiddenPrefix = "."
	DefaultTemplateExt  = "html"
)

// ErrEmptyPath is returned by New for an empty relative path.
var ErrEmptyPath = errors.New("resource path must not be empty")

// Classifier decides whether a relative path is ignorable and which Kind it is.
type Classifier struct {
	hiddenPrefix string
	templateExt  string
}

// NewClassifier creates a classifier. Empty arguments fall back to the
// defaults; a leading dot on templateExt is ignored.
func NewClassifier(hiddenPrefix, templateExt string) *Classifier {
	if hiddenPrefix == "" {
		hiddenPrefix = DefaultHiddenPrefix
	}
	templateExt = strings.TrimPrefix(templateExt, ".")
	if templateExt == "" {
		templateExt = DefaultTemplateExt
	}
	return &Classifier{hiddenPrefix: hiddenPrefix, templateExt: templateExt}
}

// DefaultClassifier treats dot-prefixed segments as hidden and .html as templates.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultHiddenPrefix, DefaultTemplateExt)
}

// TemplateExt returns the designated template extension without its dot.
func (c *Classifier) TemplateExt() string {
	return c.templateExt
}

// IsIgnorable reports whether any non-empty segment of path starts with the
// hidden prefix.
func (c *Classifier) IsIgnorable(path string) bool {
	for _, segment := range segments(path) {
		if segment != "" && strings.HasPrefix(segment, c.hiddenPrefix) {
			return true
		}
	}
	return false
}

// ClassifyKind returns KindTemplate iff the extension of the final segment
// (the text after its last dot) equals the template extension exactly.
func (c *Classifier) ClassifyKind(path string) Kind {
	parts := segments(path)
	if len(parts) == 0 {
		return KindOpaque
	}
	name := parts[len(parts)-1]

	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return KindOpaque
	}
	if name[i+1:] == c.templateExt {
		return KindTemplate
	}
	return KindOpaque
}

// segments splits on both '/' and the platform separator.
func segments(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == os.PathSeparator
	})
}

// Resource is one file from the template root, identified by its relative path.
type Resource struct {
	Path       string
	classifier *Classifier
}

// New creates a resource for a path relative to the template root.
func New(relPath string, c *Classifier) (Resource, error) {
	if relPath == "" || relPath == "." {
		return Resource{}, ErrEmptyPath
	}
	if c == nil {
		c = DefaultClassifier()
	}
	return Resource{Path: filepath.Clean(relPath), classifier: c}, nil
}

// Ignorable reports whether the resource is excluded from publishing.
func (r Resource) Ignorable() bool {
	return r.rules().IsIgnorable(r.Path)
}

// Kind returns the publishing strategy of the resource.
func (r Resource) Kind() Kind {
	return r.rules().ClassifyKind(r.Path)
}

func (r Resource) rules() *Classifier {
	if r.classifier == nil {
		return DefaultClassifier()
	}
	return r.classifier
}

// String renders the path, prefixed with [I] when the resource is ignorable.
func (r Resource) String() string {
	if r.Ignorable() {
		return "[I]" + r.Path
	}
	return r.Path
}
