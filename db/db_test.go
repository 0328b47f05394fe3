package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB(t *testing.T) {
	NewTest(t)
	NewTest(t)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.db")

	db1, err := New(file)
	require.NoError(t, err)
	_, err = db1.Exec("INSERT INTO genres (slug, name) VALUES ('poetry', 'Poetry')")
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, err := New(file)
	require.NoError(t, err)
	defer db2.Close()

	var count int
	require.NoError(t, db2.QueryRow("SELECT COUNT(*) FROM genres").Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, db2.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestFavoritesCascade(t *testing.T) {
	db := NewTest(t)

	_, err := db.Exec("INSERT INTO users (email, password_hash) VALUES ('a@b.c', 'x')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO books (title, author) VALUES ('Dune', 'Frank Herbert')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO favorites (user, book) VALUES (1, 1)")
	require.NoError(t, err)

	_, err = db.Exec("DELETE FROM books WHERE id = 1")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM favorites").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestBookTitleUniquePerAuthor(t *testing.T) {
	db := NewTest(t)

	_, err := db.Exec("INSERT INTO books (title, author) VALUES ('Dune', 'Frank Herbert')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO books (title, author) VALUES ('dune', 'frank herbert')")
	assert.Error(t, err)
	_, err = db.Exec("INSERT INTO books (title, author) VALUES ('Dune', 'Someone Else')")
	assert.NoError(t, err)
}
