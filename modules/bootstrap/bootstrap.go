package bootstrap

import (
	"context"
	"embed"
	"html/template"
	"io"

	"github.com/TheLab-ms/bookcase/internal/templates"
)

//go:embed templates/*.html
var templateFS embed.FS

var viewTemplates = templates.MustParseFS(templateFS, nil, "templates/*.html")

type ViewData struct {
	Title   string
	User    string
	Content template.HTML
}

// View wraps content in the bare layout used by signed-out pages.
func View(title string, content templates.Component) templates.Component {
	return &layoutComponent{title: title, content: content}
}

// AppView wraps content in the layout with the navigation bar for the signed-in user.
func AppView(title, user string, content templates.Component) templates.Component {
	return &layoutComponent{title: title, user: user, content: content}
}

type layoutComponent struct {
	title   string
	user    string
	content templates.Component
}

func (lc *layoutComponent) Render(ctx context.Context, w io.Writer) error {
	content, err := templates.Embed(ctx, lc.content)
	if err != nil {
		return err
	}
	return viewTemplates.Execute("view", &ViewData{
		Title:   lc.title,
		User:    lc.user,
		Content: content,
	}).Render(ctx, w)
}
