package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TheLab-ms/bookcase/db"
	"github.com/TheLab-ms/bookcase/engine"
	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResetter struct{ calls int }

func (f *fakeResetter) Reset(ctx context.Context) error {
	f.calls++
	return nil
}

func TestBooksAPI(t *testing.T) {
	db := db.NewTest(t)
	_, err := db.Exec("INSERT INTO users (email, password_hash) VALUES ('a@example.com', 'x')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO genres (slug, name) VALUES ('fantasy', 'Fantasy'), ('classics', 'Classics')")
	require.NoError(t, err)

	demo := &fakeResetter{}
	_, err = New(db, demo)
	require.NoError(t, err)

	m, err := New(db, demo) // shouldn't generate a token this time
	require.NoError(t, err)

	var token string
	var count int
	err = db.QueryRow("SELECT token, count(*) FROM api_tokens").Scan(&token, &count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	router := engine.NewRouter(nil)
	m.AttachRoutes(router)
	server := httptest.NewServer(router)
	defer server.Close()

	e := httpexpect.Default(t, server.URL)
	auth := e.Builder(func(req *httpexpect.Request) {
		req.WithHeader("Authorization", "Bearer "+token)
	})

	e.GET("/api/books").
		Expect().
		Status(http.StatusUnauthorized).JSON().Object().Value("error").IsEqual("Unauthorized")

	e.GET("/api/books").
		WithHeader("Authorization", "Bearer nope").
		Expect().
		Status(http.StatusUnauthorized)

	// Empty list
	auth.GET("/api/books").
		Expect().
		Status(http.StatusOK).JSON().Array().IsEmpty()

	// Creation
	obj := auth.POST("/api/books").
		WithJSON(map[string]any{
			"title":  "Dune",
			"author": "Frank Herbert",
			"genre":  "fantasy",
			"format": "ebook",
			"read":   true,
		}).
		Expect().
		Status(http.StatusCreated).JSON().Object()
	obj.Value("id").IsEqual(1)
	obj.Value("title").IsEqual("Dune")
	obj.Value("format").IsEqual("ebook")
	obj.Value("read").IsEqual(true)
	obj.Value("favorite").IsEqual(false)

	// Validation uses the book form
	errs := auth.POST("/api/books").
		WithJSON(map[string]any{"title": "ab"}).
		Expect().
		Status(http.StatusUnprocessableEntity).JSON().Object().Value("errors").Object()
	errs.Value("title").IsEqual("field's length must be at least 3 symbols")
	errs.Value("author").IsEqual("Author is required")
	errs.Value("genre").IsEqual("Pick a genre")
	errs.NotContainsKey("format")

	auth.POST("/api/books").
		WithJSON(map[string]any{"title": "Emma", "author": "Jane Austen", "genre": "poetry"}).
		Expect().
		Status(http.StatusUnprocessableEntity).JSON().Object().
		Value("errors").Object().Value("genre").IsEqual(`unknown genre "poetry"`)

	auth.POST("/api/books").
		WithJSON(map[string]any{"title": "dune", "author": "frank herbert", "genre": "fantasy"}).
		Expect().
		Status(http.StatusUnprocessableEntity).JSON().Object().
		Value("errors").Object().Value("title").IsEqual("a book with this title and author already exists")

	auth.POST("/api/books").
		WithBytes([]byte("{")).
		Expect().
		Status(http.StatusBadRequest)

	// Partial update
	obj = auth.PUT("/api/books/1").
		WithJSON(map[string]any{"title": "Dune Messiah"}).
		Expect().
		Status(http.StatusOK).JSON().Object()
	obj.Value("title").IsEqual("Dune Messiah")
	obj.Value("author").IsEqual("Frank Herbert")
	obj.Value("format").IsEqual("ebook")
	obj.Value("read").IsEqual(true)

	auth.PUT("/api/books/99").
		WithJSON(map[string]any{"title": "Nothing"}).
		Expect().
		Status(http.StatusNotFound)

	auth.GET("/api/books/1").
		Expect().
		Status(http.StatusOK).JSON().Object().Value("title").IsEqual("Dune Messiah")

	auth.GET("/api/books/99").Expect().Status(http.StatusNotFound)

	// Favorites
	auth.POST("/api/books/1/favorite").WithQuery("user", 1).Expect().Status(http.StatusNoContent)
	auth.POST("/api/books/99/favorite").WithQuery("user", 1).Expect().Status(http.StatusNotFound)
	auth.POST("/api/books/1/favorite").Expect().Status(http.StatusBadRequest)

	list := auth.GET("/api/books").
		WithQuery("favorites", "true").
		WithQuery("user", 1).
		Expect().
		Status(http.StatusOK).JSON().Array()
	list.Length().IsEqual(1)
	list.Value(0).Object().Value("favorite").IsEqual(true)

	auth.GET("/api/books").WithQuery("favorites", "true").Expect().Status(http.StatusBadRequest)
	auth.GET("/api/books").WithQuery("user", "x").Expect().Status(http.StatusBadRequest)

	auth.DELETE("/api/books/1/favorite").WithQuery("user", 1).Expect().Status(http.StatusNoContent)
	auth.DELETE("/api/books/99/favorite").WithQuery("user", 1).Expect().Status(http.StatusNotFound)
	auth.GET("/api/books").
		WithQuery("favorites", "true").
		WithQuery("user", 1).
		Expect().
		Status(http.StatusOK).JSON().Array().IsEmpty()

	// Search
	auth.POST("/api/books").
		WithJSON(map[string]any{"title": "Emma", "author": "Jane Austen", "genre": "classics", "format": "hardcover"}).
		Expect().
		Status(http.StatusCreated)

	list = auth.GET("/api/books").WithQuery("search", "emm").Expect().Status(http.StatusOK).JSON().Array()
	list.Length().IsEqual(1)
	list.Value(0).Object().Value("title").IsEqual("Emma")

	auth.GET("/api/books").
		WithQuery("search", "em").
		Expect().
		Status(http.StatusBadRequest).JSON().Object().
		Value("error").IsEqual("Search string must contain at least three symbols")

	auth.GET("/api/genres").Expect().Status(http.StatusOK).JSON().Array().Length().IsEqual(2)

	// Deletion
	auth.DELETE("/api/books").WithQuery("ids", "1,99").Expect().Status(http.StatusNotFound)
	auth.DELETE("/api/books").WithQuery("ids", "07").Expect().Status(http.StatusBadRequest)
	auth.DELETE("/api/books").WithQuery("ids", "1,2,1").Expect().Status(http.StatusNoContent)
	auth.GET("/api/books").Expect().Status(http.StatusOK).JSON().Array().IsEmpty()

	auth.POST("/api/demo/reset").Expect().Status(http.StatusNoContent)
	assert.Equal(t, 1, demo.calls)
}
