// Bookcase serves the book catalog: the HTML pages, the JSON API and the sqlite database behind them.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/TheLab-ms/bookcase/db"
	"github.com/TheLab-ms/bookcase/engine"
	"github.com/TheLab-ms/bookcase/modules"
	"github.com/TheLab-ms/bookcase/modules/auth"
	"github.com/caarlos0/env/v11"
)

type Config struct {
	HttpAddr string `envDefault:":8080"`
	Dir      string

	// DemoEmail and DemoPassword are the credentials of the account seeded on startup.
	DemoEmail    string `envDefault:"demo@example.com"`
	DemoPassword string `envDefault:"demo-password"`

	// DemoResetInterval restores the demo catalog periodically. Zero disables it.
	DemoResetInterval time.Duration

	SessionTTL time.Duration `envDefault:"24h"`
	LoginRate  int           `envDefault:"10"`
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	conf, err := parseConfig()
	if err != nil {
		panic(err)
	}

	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		err := engine.CheckHealthProbe("http://localhost:8080/healthz") // assume server is running on the default port
		if err != nil {
			panic(err)
		}
		return
	}

	app, _, err := newApp(context.Background(), conf)
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	app.Run(ctx)
}

func parseConfig() (Config, error) {
	return env.ParseAsWithOptions[Config](env.Options{Prefix: "BOOKCASE_", UseFieldNameByDefault: true})
}

func newApp(ctx context.Context, conf Config) (*engine.App, *sql.DB, error) {
	database, err := db.New(filepath.Join(conf.Dir, "bookcase.sqlite3"))
	if err != nil {
		return nil, nil, err
	}

	router := engine.NewRouter(nil)
	router.HandleFunc("GET", "/healthz", engine.ServeHealthProbe(database))

	var hint string
	if conf.DemoEmail != "" {
		hint = fmt.Sprintf("Demo account: %s / %s", conf.DemoEmail, conf.DemoPassword)
	}

	a := engine.NewApp(conf.HttpAddr, router)
	mods, err := modules.Register(a, modules.Options{
		Database:   database,
		AuthIssuer: engine.NewTokenIssuer(filepath.Join(conf.Dir, "auth.pem")),
		Auth: auth.Options{
			SessionTTL: conf.SessionTTL,
			LoginRate:  conf.LoginRate,
			Hint:       hint,
		},
		DemoResetInterval: conf.DemoResetInterval,
	})
	if err != nil {
		return nil, nil, err
	}

	if conf.DemoEmail != "" {
		if err := mods.Auth.SeedUser(ctx, conf.DemoEmail, conf.DemoPassword); err != nil {
			return nil, nil, err
		}
	}
	if err := mods.Demo.EnsureSeeded(ctx); err != nil {
		return nil, nil, fmt.Errorf("seeding demo data: %w", err)
	}

	return a, database, nil
}
