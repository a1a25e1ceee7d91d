// Package renderer provides the rendering service used to turn template-kind
// resources into output documents.
//
// Templates are parsed with html/template and executed through a
// templ.Component so that the pipeline writes every rendered page the same
// way, whatever produced it. A small function map is available to every
// template: title, upper, lower and markdown.
package renderer

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/conneroisu/sitegen/internal/errors"
	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RenderService turns template source into output text.
type RenderService interface {
	Render(ctx context.Context, name string, source []byte, data Context) ([]byte, error)
}

// RenderFunc adapts an ordinary function to RenderService.
type RenderFunc func(ctx context.Context, name string, source []byte, data Context) ([]byte, error)

// Render calls f.
func (f RenderFunc) Render(ctx context.Context, name string, source []byte, data Context) ([]byte, error) {
	return f(ctx, name, source, data)
}

// SiteInfo is the site-wide part of the rendering context.
type SiteInfo struct {
	Title   string
	BaseURL string
	Params  map[string]interface{}
}

// Context is the data passed to every template.
type Context struct {
	Site      SiteInfo
	Path      string
	BuildTime time.Time
}

// HTMLRenderer renders html/template sources.
type HTMLRenderer struct {
	funcs template.FuncMap
}

// NewHTMLRenderer creates a renderer with the default function map.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		funcs: template.FuncMap{
			"title":    titleCase,
			"upper":    strings.ToUpper,
			"lower":    strings.ToLower,
			"markdown": markdownToHTML,
		},
	}
}

// Render parses source as a template named name and executes it with data.
// Parse and execution failures are returned as render errors.
func (r *HTMLRenderer) Render(ctx context.Context, name string, source []byte, data Context) ([]byte, error) {
	if len(source) == 0 {
		return []byte{}, nil
	}

	tmpl, err := template.New(name).Funcs(r.funcs).Option("missingkey=zero").Parse(string(source))
	if err != nil {
		return nil, errors.NewRenderError(name, err)
	}

	var buf bytes.Buffer
	if err := templ.FromGoHTML(tmpl, data).Render(ctx, &buf); err != nil {
		return nil, errors.NewRenderError(name, err)
	}

	return buf.Bytes(), nil
}

// titleCase uses a fresh caser per call; cases.Caser is not safe for
// concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func markdownToHTML(s string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(s), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
