package engine

import (
	"embed"
	"net/http"

	"github.com/TheLab-ms/bookcase/internal/templates"
	"github.com/TheLab-ms/bookcase/modules/bootstrap"
)

//go:embed templates/*.html
var templateFS embed.FS

var errorTemplates = templates.MustParseFS(templateFS, nil, "templates/*.html")

type errorView struct {
	StatusCode int
	StatusText string
	Message    string
}

func renderError(e *httpError) templates.Component {
	return bootstrap.View("Error", errorTemplates.Execute("error", &errorView{
		StatusCode: e.StatusCode,
		StatusText: http.StatusText(e.StatusCode),
		Message:    e.Message,
	}))
}
