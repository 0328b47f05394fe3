package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("book not found")
	ErrDuplicateTitle = errors.New("a book with this title and author already exists")
)

type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Genre       string    `json:"genre"`
	Format      string    `json:"format"`
	Description string    `json:"description"`
	Read        bool      `json:"read"`
	Favorite    bool      `json:"favorite"`
	Created     time.Time `json:"created"`
}

type Genre struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

var Formats = []string{"paperback", "hardcover", "ebook"}

// Store reads and writes books. Favorites are scoped to a user id.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const selectBooks = `SELECT b.id, b.title, b.author, b.genre, b.format, b.description, b.read, f.book IS NOT NULL, b.created
FROM books b LEFT JOIN favorites f ON f.book = b.id AND f.user = ?`

const orderBooks = ` ORDER BY b.title COLLATE NOCASE, b.id`

func (s *Store) List(ctx context.Context, user int64) ([]*Book, error) {
	return s.query(ctx, selectBooks+orderBooks, user)
}

// Search matches the query against titles and authors, case-insensitively.
func (s *Store) Search(ctx context.Context, user int64, query string) ([]*Book, error) {
	pattern := "%" + escapeLike(query) + "%"
	return s.query(ctx, selectBooks+` WHERE b.title LIKE ? ESCAPE '\' OR b.author LIKE ? ESCAPE '\'`+orderBooks, user, pattern, pattern)
}

func (s *Store) Favorites(ctx context.Context, user int64) ([]*Book, error) {
	return s.query(ctx, selectBooks+` WHERE f.book IS NOT NULL`+orderBooks, user)
}

// Load returns the books of a list view.
func (s *Store) Load(ctx context.Context, view View, user int64, search string) ([]*Book, error) {
	switch view {
	case ViewFiltered:
		return s.Search(ctx, user, search)
	case ViewFavorites:
		return s.Favorites(ctx, user)
	default:
		return s.List(ctx, user)
	}
}

func (s *Store) Get(ctx context.Context, user, id int64) (*Book, error) {
	books, err := s.query(ctx, selectBooks+` WHERE b.id = ?`, user, id)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, ErrNotFound
	}
	return books[0], nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]*Book, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	defer rows.Close()

	books := []*Book{}
	for rows.Next() {
		b := &Book{}
		var created int64
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.Format, &b.Description, &b.Read, &b.Favorite, &created); err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		b.Created = time.Unix(created, 0)
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *Store) Create(ctx context.Context, b *Book) (int64, error) {
	ids, err := s.CreateMany(ctx, []*Book{b})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// CreateMany inserts every book or none of them.
func (s *Store) CreateMany(ctx context.Context, books []*Book) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ids := make([]int64, len(books))
	for i, b := range books {
		err := tx.QueryRowContext(ctx, "INSERT INTO books (title, author, genre, format, description, read) VALUES (?, ?, ?, ?, ?, ?) RETURNING id",
			b.Title, b.Author, b.Genre, b.Format, b.Description, b.Read).Scan(&ids[i])
		if err != nil {
			return nil, mapWriteError(err)
		}
	}
	return ids, tx.Commit()
}

func (s *Store) Update(ctx context.Context, b *Book) error {
	result, err := s.db.ExecContext(ctx, "UPDATE books SET title = ?, author = ?, genre = ?, format = ?, description = ?, read = ? WHERE id = ?",
		b.Title, b.Author, b.Genre, b.Format, b.Description, b.Read, b.ID)
	if err != nil {
		return mapWriteError(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes all of the given books. Nothing is deleted if any of them doesn't exist.
// Repeated ids are deleted once.
func (s *Store) Delete(ctx context.Context, ids []int64) error {
	ids = slices.Compact(slices.Sorted(slices.Values(ids)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		result, err := tx.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting book %d: %w", id, err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("deleting book %d: %w", id, ErrNotFound)
		}
	}
	return tx.Commit()
}

func (s *Store) AddFavorite(ctx context.Context, user, book int64) error {
	if err := s.checkExists(ctx, book); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO favorites (user, book) VALUES (?, ?) ON CONFLICT DO NOTHING", user, book)
	return err
}

func (s *Store) RemoveFavorite(ctx context.Context, user, book int64) error {
	if err := s.checkExists(ctx, book); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM favorites WHERE user = ? AND book = ?", user, book)
	return err
}

func (s *Store) checkExists(ctx context.Context, book int64) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM books WHERE id = ?)", book).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Genres(ctx context.Context) ([]*Genre, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT slug, name FROM genres ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying genres: %w", err)
	}
	defer rows.Close()

	genres := []*Genre{}
	for rows.Next() {
		g := &Genre{}
		if err := rows.Scan(&g.Slug, &g.Name); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

func mapWriteError(err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateTitle
	}
	return fmt.Errorf("writing book: %w", err)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
