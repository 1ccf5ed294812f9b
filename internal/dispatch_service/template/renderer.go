// Package template renders workflow step templates with handlebars syntax.
package template

import (
	"fmt"
	"sync"

	"github.com/aymerick/raymond"
)

// RenderError reports a template that failed to parse or execute.
type RenderError struct {
	Field string // "title" or "content"
	Err   error
}

func (e *RenderError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("template render failed: %v", e.Err)
	}
	return fmt.Sprintf("template render failed for %s: %v", e.Field, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer is a pure function from a template and a data context to text.
type Renderer interface {
	Render(tpl string, data map[string]any) (string, error)
}

// HandlebarsRenderer renders handlebars templates, caching parsed templates.
type HandlebarsRenderer struct {
	parsed sync.Map // source -> *raymond.Template
}

// NewHandlebarsRenderer returns a ready-to-use renderer.
func NewHandlebarsRenderer() *HandlebarsRenderer {
	return &HandlebarsRenderer{}
}

// Render parses (once) and executes tpl against data. Failures are *RenderError.
func (r *HandlebarsRenderer) Render(tpl string, data map[string]any) (string, error) {
	if tpl == "" {
		return "", nil
	}
	compiled, err := r.compile(tpl)
	if err != nil {
		return "", &RenderError{Err: err}
	}
	out, err := compiled.Exec(data)
	if err != nil {
		return "", &RenderError{Err: err}
	}
	return out, nil
}

func (r *HandlebarsRenderer) compile(tpl string) (*raymond.Template, error) {
	if cached, ok := r.parsed.Load(tpl); ok {
		return cached.(*raymond.Template), nil
	}
	compiled, err := raymond.Parse(tpl)
	if err != nil {
		return nil, err
	}
	r.parsed.Store(tpl, compiled)
	return compiled, nil
}

// RenderStep renders a step's title and content with the same data context.
func RenderStep(r Renderer, title, content string, data map[string]any) (renderedTitle, renderedContent string, err error) {
	renderedTitle, err = r.Render(title, data)
	if err != nil {
		return "", "", withField("title", err)
	}
	renderedContent, err = r.Render(content, data)
	if err != nil {
		return "", "", withField("content", err)
	}
	return renderedTitle, renderedContent, nil
}

func withField(field string, err error) error {
	if re, ok := err.(*RenderError); ok {
		return &RenderError{Field: field, Err: re.Err}
	}
	return &RenderError{Field: field, Err: err}
}
