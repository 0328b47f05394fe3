package books

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/TheLab-ms/bookcase/engine"
	"github.com/TheLab-ms/bookcase/internal/viewstate"
	"github.com/TheLab-ms/bookcase/modules/auth"
	"github.com/julienschmidt/httprouter"
)

type listPage struct {
	Mode        ListMode
	View        View
	Path        string
	Search      string
	SearchError string
	ListError   string

	// CurrentURL is the list as requested, ReturnURL is the same list without a pending deletion.
	CurrentURL string
	ReturnURL  string

	Deletion          *Deletion
	Selected          int
	DeleteSelectedURL string
	Rows              []*listRow
}

type listRow struct {
	*Book
	GenreName   string
	FormatName  string
	Description template.HTML
	Selected    bool
	EditURL     string
	DeleteURL   string
}

func (m *Module) handleList(mode ListMode) engine.Handler {
	return func(r *http.Request, ps httprouter.Params) engine.Response {
		user := auth.GetUserMeta(r.Context())
		q := r.URL.Query()

		page := &listPage{
			Mode:       mode,
			Path:       r.URL.Path,
			CurrentURL: SafeListURL(r.URL.RequestURI()),
		}

		search, err := CheckSearch(q.Get("search"))
		page.Search = search
		page.ReturnURL = listURL(mode, search)
		page.View = DeriveView(mode, search)
		m.state.Dispatch(user.ID, viewstate.SetSearchString{Value: search})
		m.state.Dispatch(user.ID, viewstate.SetListBaseURL{URL: page.ReturnURL})

		// Too short searches are never queried
		result := ListResult{}
		if err != nil {
			page.SearchError = err.Error()
		} else {
			result.Books, result.Err = m.lists.Load(r.Context(), page.View, user.ID, search)
			result.Settled = true
			if result.Err != nil {
				slog.Error("unable to load books", "error", result.Err, "view", page.View)
				page.ListError = "Failed to load books."
			}
		}

		page.Deletion = ResolveDeletion(q.Get("deleteId"), result, q.Get("error") == "true")

		genres, err := m.store.Genres(r.Context())
		if err != nil {
			return engine.Errorf("loading genres: %s", err)
		}
		genreNames := map[string]string{}
		for _, g := range genres {
			genreNames[g.Slug] = g.Name
		}

		state := m.state.Snapshot(user.ID)
		page.Selected = len(state.Selected)
		if page.Selected > 0 {
			page.DeleteSelectedURL = withDeletion(page.ReturnURL, viewstate.DeleteSelectedParam(state), false)
		}

		for _, b := range result.Books {
			page.Rows = append(page.Rows, &listRow{
				Book:        b,
				GenreName:   genreNames[b.Genre],
				FormatName:  formatLabels[b.Format],
				Description: renderDescription(b.Description),
				Selected:    viewstate.IsSelected(state, b.ID),
				EditURL:     editURL(b.ID, page.ReturnURL),
				DeleteURL:   withDeletion(page.ReturnURL, strconv.FormatInt(b.ID, 10), false),
			})
		}

		title := "Books"
		if mode == ModeFavorites {
			title = "Favorites"
		}
		return m.render(r, title, "list", page)
	}
}

func (m *Module) handleSelect(r *http.Request, ps httprouter.Params) engine.Response {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil || id <= 0 {
		return engine.ClientErrorf(http.StatusBadRequest, "invalid book id")
	}
	m.state.Dispatch(auth.GetUserMeta(r.Context()).ID, viewstate.ToggleSelected{ID: id})
	return engine.Redirect(SafeListURL(r.FormValue("returnUrl")), http.StatusSeeOther)
}

// handleDelete confirms a pending deletion. On success the selection is
// cleared and the user returns to the list. On failure the list is shown
// again with the same pending deletion and an error marker.
func (m *Module) handleDelete(r *http.Request, ps httprouter.Params) engine.Response {
	raw := r.FormValue("deleteId")
	returnURL := withoutDeletion(r.FormValue("returnUrl"))

	ids, err := ParseDeleteIDs(raw)
	if err != nil {
		return engine.ClientErrorf(http.StatusBadRequest, "%s", err)
	}

	user := auth.GetUserMeta(r.Context())
	if err := m.store.Delete(r.Context(), ids); err != nil {
		slog.Warn("unable to delete books", "error", err, "ids", raw)
		return engine.Redirect(withDeletion(returnURL, raw, true), http.StatusSeeOther)
	}

	slog.Info("deleted books", "ids", raw, "user", user.ID)
	m.state.Dispatch(user.ID, viewstate.ClearSelected{})
	return engine.Redirect(returnURL, http.StatusSeeOther)
}

func (m *Module) handleFavorite(favorite bool) engine.Handler {
	return func(r *http.Request, ps httprouter.Params) engine.Response {
		id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
		if err != nil {
			return engine.ClientErrorf(http.StatusBadRequest, "invalid book id")
		}

		user := auth.GetUserMeta(r.Context())
		if favorite {
			err = m.store.AddFavorite(r.Context(), user.ID, id)
		} else {
			err = m.store.RemoveFavorite(r.Context(), user.ID, id)
		}
		if errors.Is(err, ErrNotFound) {
			return engine.NotFoundf("Book with id=\"%d\" not found", id)
		}
		if err != nil {
			return engine.Errorf("updating favorite: %s", err)
		}

		return engine.Redirect(SafeListURL(r.FormValue("returnUrl")), http.StatusSeeOther)
	}
}

func editURL(id int64, parent string) string {
	return "/books/edit/" + strconv.FormatInt(id, 10) + "?" + url.Values{"parentListUrl": {parent}}.Encode()
}
