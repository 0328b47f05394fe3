package books

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/TheLab-ms/bookcase/engine"
	"github.com/TheLab-ms/bookcase/engine/form"
	"github.com/TheLab-ms/bookcase/modules/auth"
	"github.com/julienschmidt/httprouter"
)

type bookPage struct {
	Heading   string
	Error     string
	BackURL   string
	DeleteURL string
	Form      template.HTML
}

// parentListURL is the list the user came from, falling back to the last list they looked at.
func (m *Module) parentListURL(r *http.Request) string {
	if parent := r.FormValue("parentListUrl"); parent != "" {
		return withoutDeletion(parent)
	}
	return withoutDeletion(m.state.Snapshot(auth.GetUserMeta(r.Context()).ID).ListBaseURL)
}

func (m *Module) renderBookPage(r *http.Request, f *form.Form, page *bookPage) engine.Response {
	html, err := embedForm(r, f.Component())
	if err != nil {
		return engine.Errorf("rendering form: %s", err)
	}
	page.Form = html
	return m.render(r, page.Heading, "book", page)
}

func (m *Module) handleNew(r *http.Request, ps httprouter.Params) engine.Response {
	genres, err := m.store.Genres(r.Context())
	if err != nil {
		return engine.Errorf("loading genres: %s", err)
	}

	if err := r.ParseForm(); err != nil {
		return engine.ClientErrorf(http.StatusBadRequest, "invalid form: %s", err)
	}
	parent := m.parentListURL(r)
	f, err := NewBookForm(genres,
		form.WithAction("/books/new"),
		form.WithSubmitLabel("Add book"),
		form.WithHidden("parentListUrl", parent))
	if err != nil {
		return engine.Errorf("building book form: %s", err)
	}
	page := &bookPage{Heading: "Add a book", BackURL: parent}

	if r.Method != http.MethodPost {
		return m.renderBookPage(r, f, page)
	}

	f.Bind(r.PostForm)
	sub, ok := f.Submit()
	if !ok {
		return m.renderBookPage(r, f, page)
	}

	book := BookFromSubmission(sub)
	if errs := ValidateChoices(book, genres); len(errs) > 0 {
		f.SetExternalErrors(errs)
		return m.renderBookPage(r, f, page)
	}

	id, err := m.store.Create(r.Context(), book)
	if errors.Is(err, ErrDuplicateTitle) {
		f.SetExternalErrors(map[string]string{"title": err.Error()})
		return m.renderBookPage(r, f, page)
	}
	if err != nil {
		slog.Error("unable to create book", "error", err)
		page.Error = "Failed to save the book."
		return m.renderBookPage(r, f, page)
	}

	slog.Info("created book", "id", id, "title", book.Title)
	return engine.Redirect(parent, http.StatusSeeOther)
}

func (m *Module) handleBulk(r *http.Request, ps httprouter.Params) engine.Response {
	genres, err := m.store.Genres(r.Context())
	if err != nil {
		return engine.Errorf("loading genres: %s", err)
	}

	if err := r.ParseForm(); err != nil {
		return engine.ClientErrorf(http.StatusBadRequest, "invalid form: %s", err)
	}
	parent := m.parentListURL(r)
	f, err := newBulkForm(genres,
		form.WithAction("/books/new/bulk"),
		form.WithSubmitLabel("Add books"),
		form.WithHidden("parentListUrl", parent))
	if err != nil {
		return engine.Errorf("building bulk form: %s", err)
	}
	page := &bookPage{Heading: "Add several books", BackURL: parent}

	if r.Method != http.MethodPost {
		return m.renderBookPage(r, f, page)
	}

	f.Bind(r.PostForm)
	sub, ok := f.Submit()
	if !ok {
		return m.renderBookPage(r, f, page)
	}

	shared := BookFromSubmission(sub)
	errs := ValidateChoices(shared, genres)
	titles := splitTitles(sub.String("titles"))
	if len(titles) == 0 {
		errs["titles"] = "Enter at least one title"
	}
	if len(errs) > 0 {
		f.SetExternalErrors(errs)
		return m.renderBookPage(r, f, page)
	}

	books := make([]*Book, len(titles))
	for i, title := range titles {
		b := *shared
		b.Title = title
		books[i] = &b
	}

	ids, err := m.store.CreateMany(r.Context(), books)
	if errors.Is(err, ErrDuplicateTitle) {
		f.SetExternalErrors(map[string]string{"titles": "One of these books already exists"})
		return m.renderBookPage(r, f, page)
	}
	if err != nil {
		slog.Error("unable to create books", "error", err)
		page.Error = "Failed to save the books."
		return m.renderBookPage(r, f, page)
	}

	slog.Info("created books", "count", len(ids))
	return engine.Redirect(parent, http.StatusSeeOther)
}

func (m *Module) handleEdit(r *http.Request, ps httprouter.Params) engine.Response {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil {
		return engine.NotFoundf("Book with id=\"%s\" not found", ps.ByName("id"))
	}

	user := auth.GetUserMeta(r.Context())
	book, err := m.store.Get(r.Context(), user.ID, id)
	if errors.Is(err, ErrNotFound) {
		return engine.NotFoundf("Book with id=\"%d\" not found", id)
	}
	if err != nil {
		return engine.Errorf("loading book: %s", err)
	}

	genres, err := m.store.Genres(r.Context())
	if err != nil {
		return engine.Errorf("loading genres: %s", err)
	}

	if err := r.ParseForm(); err != nil {
		return engine.ClientErrorf(http.StatusBadRequest, "invalid form: %s", err)
	}
	parent := m.parentListURL(r)
	f, err := NewBookForm(genres,
		form.WithInitialData(BookValues(book)),
		form.WithAction(editURL(id, parent)),
		form.WithSubmitLabel("Save"),
		form.WithHidden("parentListUrl", parent))
	if err != nil {
		return engine.Errorf("building book form: %s", err)
	}
	page := &bookPage{
		Heading:   "Edit " + book.Title,
		BackURL:   parent,
		DeleteURL: withDeletion(parent, strconv.FormatInt(id, 10), false),
	}

	if r.Method != http.MethodPost {
		return m.renderBookPage(r, f, page)
	}

	f.Bind(r.PostForm)
	sub, ok := f.Submit()
	if !ok {
		return m.renderBookPage(r, f, page)
	}

	updated := BookFromSubmission(sub)
	updated.ID = id
	if errs := ValidateChoices(updated, genres); len(errs) > 0 {
		f.SetExternalErrors(errs)
		return m.renderBookPage(r, f, page)
	}

	err = m.store.Update(r.Context(), updated)
	if errors.Is(err, ErrDuplicateTitle) {
		f.SetExternalErrors(map[string]string{"title": err.Error()})
		return m.renderBookPage(r, f, page)
	}
	if errors.Is(err, ErrNotFound) {
		return engine.NotFoundf("Book with id=\"%d\" not found", id)
	}
	if err != nil {
		slog.Error("unable to update book", "error", err, "id", id)
		page.Error = "Failed to save the book."
		return m.renderBookPage(r, f, page)
	}

	slog.Info("updated book", "id", id)
	return engine.Redirect(parent, http.StatusSeeOther)
}

