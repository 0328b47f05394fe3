package books

import (
	"context"
	"database/sql"
	"embed"
	"html/template"
	"net/http"

	"github.com/TheLab-ms/bookcase/engine"
	"github.com/TheLab-ms/bookcase/internal/templates"
	"github.com/TheLab-ms/bookcase/internal/viewstate"
	"github.com/TheLab-ms/bookcase/modules/auth"
	"github.com/TheLab-ms/bookcase/modules/bootstrap"
	"github.com/julienschmidt/httprouter"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = templates.MustParseFS(templateFS, nil, "templates/*.html")

// listLoader loads the books shown by a list view.
type listLoader interface {
	Load(ctx context.Context, view View, user int64, search string) ([]*Book, error)
}

type Module struct {
	store *Store
	lists listLoader
	state *viewstate.Store
}

func New(db *sql.DB, state *viewstate.Store) *Module {
	store := NewStore(db)
	return &Module{store: store, lists: store, state: state}
}

func (m *Module) AttachRoutes(router *engine.Router) {
	router.Handle("GET", "/", func(r *http.Request, ps httprouter.Params) engine.Response {
		return engine.Redirect(allBooksPath, http.StatusFound)
	})
	router.Handle("GET", "/books", router.WithAuth(m.handleList(ModeDefault)))
	router.Handle("GET", "/books/favorites", router.WithAuth(m.handleList(ModeFavorites)))
	router.Handle("POST", "/books/select/:id", router.WithAuth(m.handleSelect))
	router.Handle("POST", "/books/delete", router.WithAuth(m.handleDelete))

	router.Handle("GET", "/books/new", router.WithAuth(m.handleNew))
	router.Handle("POST", "/books/new", router.WithAuth(m.handleNew))
	router.Handle("GET", "/books/new/bulk", router.WithAuth(m.handleBulk))
	router.Handle("POST", "/books/new/bulk", router.WithAuth(m.handleBulk))
	router.Handle("GET", "/books/edit/:id", router.WithAuth(m.handleEdit))
	router.Handle("POST", "/books/edit/:id", router.WithAuth(m.handleEdit))

	router.Handle("POST", "/books/favorite/:id", router.WithAuth(m.handleFavorite(true)))
	router.Handle("POST", "/books/unfavorite/:id", router.WithAuth(m.handleFavorite(false)))
}

func (m *Module) render(r *http.Request, title, name string, data any) engine.Response {
	var email string
	if meta := auth.GetUserMeta(r.Context()); meta != nil {
		email = meta.Email
	}
	return engine.Component(bootstrap.AppView(title, email, pageTemplates.Execute(name, data)))
}

func embedForm(r *http.Request, c templates.Component) (template.HTML, error) {
	return templates.Embed(r.Context(), c)
}
