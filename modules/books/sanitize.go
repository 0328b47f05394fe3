package books

import (
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var descriptionPolicy = bluemonday.UGCPolicy()

// renderDescription allows the user-generated subset of HTML in descriptions.
// Plain text line breaks are kept.
func renderDescription(s string) template.HTML {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "<") {
		s = strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br>")
	}
	return template.HTML(descriptionPolicy.Sanitize(s))
}
