// Package modules provides shared module registration for Bookcase.
package modules

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/TheLab-ms/bookcase/engine"
	"github.com/TheLab-ms/bookcase/internal/viewstate"
	"github.com/TheLab-ms/bookcase/modules/api"
	"github.com/TheLab-ms/bookcase/modules/auth"
	"github.com/TheLab-ms/bookcase/modules/books"
	"github.com/TheLab-ms/bookcase/modules/demo"
)

// Options configures module registration.
type Options struct {
	Database   *sql.DB
	AuthIssuer *engine.TokenIssuer

	// State is shared by the modules that read or reset the per-user list state.
	State *viewstate.Store

	Auth auth.Options

	// DemoResetInterval enables the periodic demo reset when non-zero.
	DemoResetInterval time.Duration
}

// Registered exposes the modules callers need after registration.
type Registered struct {
	Auth *auth.Module
	Demo *demo.Module
}

// Register adds all modules to the app and sets the router's authenticator.
func Register(a *engine.App, opts Options) (*Registered, error) {
	if opts.State == nil {
		opts.State = viewstate.NewStore()
	}

	authModule := auth.New(opts.Database, opts.AuthIssuer, opts.State, opts.Auth)
	a.Add(authModule)
	a.Router.Authenticator = authModule // Must set before adding modules that use WithAuth

	demoModule := demo.New(opts.Database, opts.State, opts.DemoResetInterval)
	a.Add(demoModule)
	a.Add(books.New(opts.Database, opts.State))

	apiModule, err := api.New(opts.Database, demoModule)
	if err != nil {
		return nil, fmt.Errorf("creating api module: %w", err)
	}
	a.Add(apiModule)

	return &Registered{Auth: authModule, Demo: demoModule}, nil
}
