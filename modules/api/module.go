package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/TheLab-ms/bookcase/engine"
	"github.com/TheLab-ms/bookcase/engine/form"
	"github.com/TheLab-ms/bookcase/modules/books"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// Resetter restores the demo data.
type Resetter interface {
	Reset(ctx context.Context) error
}

type Module struct {
	db    *sql.DB
	books *books.Store
	demo  Resetter
}

func New(db *sql.DB, demo Resetter) (*Module, error) {
	var id int
	if err := db.QueryRow("SELECT id FROM api_tokens").Scan(&id); err != nil {
		slog.Info("generating initial API token...")
		token := uuid.Must(uuid.NewRandom()).String() + "-" + uuid.Must(uuid.NewRandom()).String()
		_, err = db.Exec("INSERT INTO api_tokens (label, token) VALUES ('Automatically generated', ?)", token)
		if err != nil {
			return nil, err
		}
	}
	return &Module{db: db, books: books.NewStore(db), demo: demo}, nil
}

func (m *Module) AttachRoutes(router *engine.Router) {
	router.Handle("GET", "/api/books", m.withAuth(m.handleListBooks))
	router.Handle("POST", "/api/books", m.withAuth(m.handleCreateBook))
	router.Handle("DELETE", "/api/books", m.withAuth(m.handleDeleteBooks))
	router.Handle("GET", "/api/books/:id", m.withAuth(m.handleGetBook))
	router.Handle("PUT", "/api/books/:id", m.withAuth(m.handleUpdateBook))
	router.Handle("POST", "/api/books/:id/favorite", m.withAuth(m.handleFavorite(true)))
	router.Handle("DELETE", "/api/books/:id/favorite", m.withAuth(m.handleFavorite(false)))
	router.Handle("GET", "/api/genres", m.withAuth(m.handleListGenres))
	router.Handle("POST", "/api/demo/reset", m.withAuth(m.handleDemoReset))
}

func (m *Module) withAuth(next engine.Handler) engine.Handler {
	return func(r *http.Request, ps httprouter.Params) engine.Response {
		var id int
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		err := m.db.QueryRowContext(r.Context(), "SELECT id FROM api_tokens WHERE token = $1", token).Scan(&id)
		if err != nil {
			return engine.Unauthorized(err)
		}
		return next(r, ps)
	}
}

// userParam is the user whose favorites are reported. Zero means nobody's.
func userParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("user")
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid user parameter")
	}
	return id, nil
}

func (m *Module) handleListBooks(r *http.Request, ps httprouter.Params) engine.Response {
	q := r.URL.Query()
	user, err := userParam(r)
	if err != nil {
		return engine.ClientErrorf(http.StatusBadRequest, "%s", err)
	}

	search, err := books.CheckSearch(q.Get("search"))
	if err != nil {
		return engine.ClientErrorf(http.StatusBadRequest, "%s", err)
	}

	mode := books.ModeDefault
	if q.Get("favorites") == "true" {
		if user == 0 {
			return engine.ClientErrorf(http.StatusBadRequest, "favorites require a user")
		}
		mode = books.ModeFavorites
	}

	list, err := m.books.Load(r.Context(), books.DeriveView(mode, search), user, search)
	if err != nil {
		return engine.Error(err)
	}
	if list == nil {
		list = []*books.Book{}
	}
	return engine.JSON(list)
}

func (m *Module) handleGetBook(r *http.Request, ps httprouter.Params) engine.Response {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil {
		return engine.NotFoundf("book not found")
	}
	user, err := userParam(r)
	if err != nil {
		return engine.ClientErrorf(http.StatusBadRequest, "%s", err)
	}

	book, err := m.books.Get(r.Context(), user, id)
	if errors.Is(err, books.ErrNotFound) {
		return engine.NotFoundf("book not found")
	}
	if err != nil {
		return engine.Error(err)
	}
	return engine.JSON(book)
}

func (m *Module) handleCreateBook(r *http.Request, ps httprouter.Params) engine.Response {
	book, resp := m.decodeBook(r, nil)
	if resp != nil {
		return resp
	}

	id, err := m.books.Create(r.Context(), book)
	if errors.Is(err, books.ErrDuplicateTitle) {
		return invalid(map[string]string{"title": err.Error()})
	}
	if err != nil {
		return engine.Error(err)
	}
	book.ID = id

	created, err := m.books.Get(r.Context(), 0, id)
	if err != nil {
		return engine.Error(err)
	}
	slog.Info("created book via API", "id", id)
	return engine.JSONStatus(http.StatusCreated, created)
}

func (m *Module) handleUpdateBook(r *http.Request, ps httprouter.Params) engine.Response {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil {
		return engine.NotFoundf("book not found")
	}
	existing, err := m.books.Get(r.Context(), 0, id)
	if errors.Is(err, books.ErrNotFound) {
		return engine.NotFoundf("book not found")
	}
	if err != nil {
		return engine.Error(err)
	}

	book, resp := m.decodeBook(r, existing)
	if resp != nil {
		return resp
	}
	book.ID = id

	err = m.books.Update(r.Context(), book)
	if errors.Is(err, books.ErrDuplicateTitle) {
		return invalid(map[string]string{"title": err.Error()})
	}
	if errors.Is(err, books.ErrNotFound) {
		return engine.NotFoundf("book not found")
	}
	if err != nil {
		return engine.Error(err)
	}

	updated, err := m.books.Get(r.Context(), 0, id)
	if err != nil {
		return engine.Error(err)
	}
	return engine.JSON(updated)
}

// decodeBook validates a JSON payload with the same form the HTML pages use.
// Fields missing from the payload keep the values of existing, if any.
func (m *Module) decodeBook(r *http.Request, existing *books.Book) (*books.Book, engine.Response) {
	payload := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, engine.ClientErrorf(http.StatusBadRequest, "invalid request: %s", err)
	}

	genres, err := m.books.Genres(r.Context())
	if err != nil {
		return nil, engine.Error(err)
	}

	var opts []form.Option
	if existing != nil {
		opts = append(opts, form.WithInitialData(books.BookValues(existing)))
	}
	f, err := books.NewBookForm(genres, opts...)
	if err != nil {
		return nil, engine.Error(err)
	}

	f.BindJSON(payload)
	sub, ok := f.Submit()
	if !ok {
		return nil, invalid(f.LocalErrors())
	}

	book := books.BookFromSubmission(sub)
	if errs := books.ValidateChoices(book, genres); len(errs) > 0 {
		return nil, invalid(errs)
	}
	return book, nil
}

func invalid(errs map[string]string) engine.Response {
	return engine.JSONStatus(http.StatusUnprocessableEntity, map[string]any{"errors": errs})
}

func (m *Module) handleDeleteBooks(r *http.Request, ps httprouter.Params) engine.Response {
	ids, err := books.ParseDeleteIDs(r.URL.Query().Get("ids"))
	if err != nil {
		return engine.ClientErrorf(http.StatusBadRequest, "%s", err)
	}

	err = m.books.Delete(r.Context(), ids)
	if errors.Is(err, books.ErrNotFound) {
		return engine.NotFoundf("one or more books not found")
	}
	if err != nil {
		return engine.Error(err)
	}

	slog.Info("deleted books via API", "count", len(ids))
	return engine.Empty()
}

func (m *Module) handleFavorite(favorite bool) engine.Handler {
	return func(r *http.Request, ps httprouter.Params) engine.Response {
		id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
		if err != nil {
			return engine.NotFoundf("book not found")
		}
		user, err := userParam(r)
		if err != nil {
			return engine.ClientErrorf(http.StatusBadRequest, "%s", err)
		}
		if user == 0 {
			return engine.ClientErrorf(http.StatusBadRequest, "user is required")
		}

		if favorite {
			err = m.books.AddFavorite(r.Context(), user, id)
		} else {
			err = m.books.RemoveFavorite(r.Context(), user, id)
		}
		if errors.Is(err, books.ErrNotFound) {
			return engine.NotFoundf("book not found")
		}
		if err != nil {
			return engine.Error(err)
		}
		return engine.Empty()
	}
}

func (m *Module) handleListGenres(r *http.Request, ps httprouter.Params) engine.Response {
	genres, err := m.books.Genres(r.Context())
	if err != nil {
		return engine.Error(err)
	}
	if genres == nil {
		genres = []*books.Genre{}
	}
	return engine.JSON(genres)
}

func (m *Module) handleDemoReset(r *http.Request, ps httprouter.Params) engine.Response {
	if err := m.demo.Reset(r.Context()); err != nil {
		return engine.Error(err)
	}
	return engine.Empty()
}
