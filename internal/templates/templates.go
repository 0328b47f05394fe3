// Package templates bridges embedded html/template files and templ components.
package templates

import (
	"context"
	"html/template"
	"io/fs"

	"github.com/a-h/templ"
)

// Component is the unit every page and partial is rendered through.
type Component = templ.Component

// Set is a parsed group of templates that can reference each other.
type Set struct {
	root *template.Template
}

// MustParseFS parses every file matching the patterns into one template set.
// Panics if parsing fails since templates are embedded at build time.
func MustParseFS(fsys fs.FS, funcs template.FuncMap, patterns ...string) *Set {
	root := template.New("").Funcs(funcs)
	return &Set{root: template.Must(root.ParseFS(fsys, patterns...))}
}

// Execute returns a component that renders the named template with data.
func (s *Set) Execute(name string, data any) Component {
	tmpl := s.root.Lookup(name)
	if tmpl == nil {
		panic("template not found: " + name)
	}
	return templ.FromGoHTML(tmpl, data)
}

// Embed renders a component so its output can be placed into another template.
func Embed(ctx context.Context, c Component) (template.HTML, error) {
	return templ.ToGoHTML(ctx, c)
}

// FromString builds a component from an inline template.
func FromString(tmplStr string, data any) Component {
	return templ.FromGoHTML(template.Must(template.New("inline").Parse(tmplStr)), data)
}
