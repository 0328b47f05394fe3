package books

import (
	"embed"
	"fmt"
	"slices"
	"strings"

	"github.com/TheLab-ms/bookcase/engine/form"
)

//go:embed forms/*.yaml
var formFS embed.FS

var (
	bookSchema = form.MustLoadSchema(mustReadForm("forms/book.yaml"))
	bulkSchema = form.MustLoadSchema(mustReadForm("forms/bulk.yaml"))
)

func mustReadForm(name string) []byte {
	data, err := formFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return data
}

var formatLabels = map[string]string{
	"paperback": "Paperback",
	"hardcover": "Hardcover",
	"ebook":     "E-book",
}

func genreChoices(genres []*Genre) []form.Choice {
	choices := make([]form.Choice, len(genres))
	for i, g := range genres {
		choices[i] = form.Choice{Value: g.Slug, Label: g.Name}
	}
	return choices
}

func formatChoices() []form.Choice {
	choices := make([]form.Choice, len(Formats))
	for i, f := range Formats {
		choices[i] = form.Choice{Value: f, Label: formatLabels[f]}
	}
	return choices
}

// NewBookForm builds the single book form. It fails when there are no genres to pick from.
func NewBookForm(genres []*Genre, opts ...form.Option) (*form.Form, error) {
	return newForm(bookSchema, genres, opts...)
}

func newBulkForm(genres []*Genre, opts ...form.Option) (*form.Form, error) {
	return newForm(bulkSchema, genres, opts...)
}

func newForm(schema *form.Schema, genres []*Genre, opts ...form.Option) (*form.Form, error) {
	base := []form.Option{
		form.WithChoices("genre", genreChoices(genres)),
		form.WithChoices("format", formatChoices()),
	}
	return form.New(schema, append(base, opts...)...)
}

// BookValues is the form's initial data for an existing book.
func BookValues(b *Book) map[string]any {
	return map[string]any{
		"title":       b.Title,
		"author":      b.Author,
		"genre":       b.Genre,
		"format":      b.Format,
		"description": b.Description,
		"read":        b.Read,
	}
}

func BookFromSubmission(sub form.Submission) *Book {
	return &Book{
		Title:       strings.TrimSpace(sub.String("title")),
		Author:      strings.TrimSpace(sub.String("author")),
		Genre:       sub.String("genre"),
		Format:      sub.String("format"),
		Description: strings.TrimSpace(sub.String("description")),
		Read:        sub.Bool("read"),
	}
}

// ValidateChoices returns field errors for a genre or format that isn't one of the known options.
func ValidateChoices(b *Book, genres []*Genre) map[string]string {
	errs := map[string]string{}
	if !slices.ContainsFunc(genres, func(g *Genre) bool { return g.Slug == b.Genre }) {
		errs["genre"] = fmt.Sprintf("unknown genre %q", b.Genre)
	}
	if !slices.Contains(Formats, b.Format) {
		errs["format"] = fmt.Sprintf("unknown format %q", b.Format)
	}
	return errs
}

// splitTitles returns the non-empty lines of a bulk title list, without duplicates.
func splitTitles(raw string) []string {
	titles := []string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || slices.Contains(titles, line) {
			continue
		}
		titles = append(titles, line)
	}
	return titles
}
