// Package demo restores the catalog to a known set of genres and books.
package demo

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/TheLab-ms/bookcase/engine"
	"github.com/TheLab-ms/bookcase/internal/viewstate"
	"github.com/julienschmidt/httprouter"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedFile []byte

type Seed struct {
	Genres []SeedGenre `yaml:"genres"`
	Books  []SeedBook  `yaml:"books"`
}

type SeedGenre struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

type SeedBook struct {
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	Genre       string `yaml:"genre"`
	Format      string `yaml:"format"`
	Description string `yaml:"description"`
	Read        bool   `yaml:"read"`
}

func ParseSeed(data []byte) (*Seed, error) {
	seed := &Seed{}
	if err := yaml.Unmarshal(data, seed); err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	if len(seed.Genres) == 0 {
		return nil, fmt.Errorf("seed has no genres")
	}
	return seed, nil
}

type Module struct {
	db       *sql.DB
	state    *viewstate.Store
	seed     *Seed
	interval time.Duration

	lock      sync.Mutex
	lastReset time.Time
}

// New returns the demo module. A non-zero interval enables the periodic reset worker.
func New(db *sql.DB, state *viewstate.Store, interval time.Duration) *Module {
	seed, err := ParseSeed(seedFile)
	if err != nil {
		panic(err)
	}
	return &Module{db: db, state: state, seed: seed, interval: interval, lastReset: time.Now()}
}

func (m *Module) AttachRoutes(router *engine.Router) {
	router.Handle("POST", "/demo/reset", router.WithAuth(m.handleReset))
}

func (m *Module) AttachWorkers(mgr *engine.ProcMgr) {
	if m.interval > 0 {
		mgr.Add(engine.Poll(time.Minute, m.resetWhenDue))
	}
}

func (m *Module) handleReset(r *http.Request, ps httprouter.Params) engine.Response {
	if err := m.Reset(r.Context()); err != nil {
		return engine.Errorf("resetting demo data: %s", err)
	}
	return engine.Redirect("/books", http.StatusSeeOther)
}

func (m *Module) resetWhenDue(ctx context.Context) bool {
	m.lock.Lock()
	due := time.Since(m.lastReset) >= m.interval
	m.lock.Unlock()

	if due {
		if err := m.Reset(ctx); err != nil {
			slog.Error("unable to reset demo data", "error", err)
		}
	}
	return false
}

// EnsureSeeded loads the seed into an empty database.
func (m *Module) EnsureSeeded(ctx context.Context) error {
	var n int
	if err := m.db.QueryRowContext(ctx, "SELECT count(*) FROM genres").Scan(&n); err != nil {
		return fmt.Errorf("counting genres: %w", err)
	}
	if n > 0 {
		return nil
	}
	return m.Reset(ctx)
}

// Reset replaces every genre, book, and favorite with the seed data.
// Selections that point at the old books are dropped.
func (m *Module) Reset(ctx context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting txn: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM favorites",
		"DELETE FROM books",
		"DELETE FROM genres",
		"DELETE FROM sqlite_sequence WHERE name = 'books'",
	} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("wiping data: %w", err)
		}
	}

	for _, g := range m.seed.Genres {
		_, err := tx.ExecContext(ctx, "INSERT INTO genres (slug, name) VALUES (?, ?)", g.Slug, g.Name)
		if err != nil {
			return fmt.Errorf("inserting genre %q: %w", g.Slug, err)
		}
	}
	for _, b := range m.seed.Books {
		_, err := tx.ExecContext(ctx, "INSERT INTO books (title, author, genre, format, description, read) VALUES (?, ?, ?, ?, ?, ?)",
			b.Title, b.Author, b.Genre, b.Format, b.Description, b.Read)
		if err != nil {
			return fmt.Errorf("inserting book %q: %w", b.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	m.lastReset = time.Now()
	m.state.DispatchAll(viewstate.ClearSelected{})
	slog.Info("reset demo data", "genres", len(m.seed.Genres), "books", len(m.seed.Books))
	return nil
}
