package auth

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/TheLab-ms/bookcase/engine"
	"github.com/TheLab-ms/bookcase/engine/form"
	"github.com/TheLab-ms/bookcase/internal/templates"
	"github.com/TheLab-ms/bookcase/internal/viewstate"
	"github.com/TheLab-ms/bookcase/modules/bootstrap"
	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const audience = "bookcase"

//go:embed templates/*.html forms/*.yaml
var embedded embed.FS

var (
	pageTemplates = templates.MustParseFS(embedded, nil, "templates/*.html")
	loginSchema   = form.MustLoadSchema(mustRead("forms/login.yaml"))
)

func mustRead(name string) []byte {
	data, err := embedded.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return data
}

type Options struct {
	SessionTTL time.Duration

	// LoginRate is the number of login attempts allowed per email per minute.
	LoginRate int

	// Hint is shown above the login form, e.g. the demo credentials.
	Hint string
}

type Module struct {
	db     *sql.DB
	tokens *engine.TokenIssuer
	state  *viewstate.Store
	opts   Options

	limiterLock sync.Mutex
	limiters    map[string]*loginLimiter
}

type loginLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

func New(db *sql.DB, tokens *engine.TokenIssuer, state *viewstate.Store, opts Options) *Module {
	if opts.SessionTTL == 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.LoginRate == 0 {
		opts.LoginRate = 10
	}
	return &Module{db: db, tokens: tokens, state: state, opts: opts, limiters: map[string]*loginLimiter{}}
}

// SeedUser creates the user or resets its password.
func (m *Module) SeedUser(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	_, err = m.db.ExecContext(ctx, "INSERT INTO users (email, password_hash) VALUES (?, ?) ON CONFLICT (email) DO UPDATE SET password_hash = excluded.password_hash", email, string(hash))
	if err != nil {
		return fmt.Errorf("seeding user: %w", err)
	}
	slog.Info("seeded user", "email", email)
	return nil
}

func (m *Module) AttachWorkers(mgr *engine.ProcMgr) {
	mgr.Add(engine.Poll(time.Minute, m.pruneLimiters))
}

func (m *Module) AttachRoutes(router *engine.Router) {
	router.Handle("GET", "/login", m.handleLogin)
	router.Handle("POST", "/login", m.handleLogin)

	router.Handle("GET", "/whoami", m.WithAuth(func(r *http.Request, ps httprouter.Params) engine.Response {
		return engine.JSON(GetUserMeta(r.Context()))
	}))

	router.Handle("GET", "/logout", func(r *http.Request, ps httprouter.Params) engine.Response {
		if cook, err := r.Cookie("token"); err == nil {
			if claims, _ := m.tokens.Verify(cook.Value); claims != nil {
				if id, err := strconv.ParseInt(claims.Subject, 10, 64); err == nil {
					m.state.Dispatch(id, viewstate.Reset{})
				}
			}
		}
		cook := &http.Cookie{Name: "token", Path: "/", MaxAge: -1}
		return engine.WithCookie(cook, engine.Redirect("/login", http.StatusFound))
	})
}

// WithAuth authenticates incoming requests, or redirects them to the login page.
// An expired session also clears the user's list state.
func (m *Module) WithAuth(next engine.Handler) engine.Handler {
	return func(r *http.Request, p httprouter.Params) engine.Response {
		q := url.Values{}
		q.Add("callback_uri", r.URL.String())
		login := engine.Redirect("/login?"+q.Encode(), http.StatusFound)

		cook, err := r.Cookie("token")
		if err != nil {
			return login
		}

		claims, err := m.tokens.Verify(cook.Value)
		if errors.Is(err, jwt.ErrTokenExpired) {
			if id, err := strconv.ParseInt(claims.Subject, 10, 64); err == nil {
				slog.Info("session expired", "user", id)
				m.state.Dispatch(id, viewstate.Reset{})
			}
			return login
		}
		if err != nil || len(claims.Audience) == 0 || claims.Audience[0] != audience {
			return login
		}

		meta := &UserMetadata{}
		err = m.db.QueryRowContext(r.Context(), "SELECT id, email FROM users WHERE id = ?", claims.Subject).Scan(&meta.ID, &meta.Email)
		if err != nil {
			return login
		}

		r = r.WithContext(WithUserMeta(r.Context(), meta))
		return next(r, p)
	}
}

type loginPage struct {
	Error string
	Hint  string
	Form  template.HTML
}

func (m *Module) handleLogin(r *http.Request, ps httprouter.Params) engine.Response {
	if err := r.ParseForm(); err != nil {
		return engine.ClientErrorf(http.StatusBadRequest, "invalid form: %s", err)
	}
	callback := safeCallback(r.FormValue("callback_uri"))
	f := form.MustNew(loginSchema,
		form.WithAction("/login"),
		form.WithSubmitLabel("Sign in"),
		form.WithHidden("callback_uri", callback))
	page := &loginPage{Hint: m.opts.Hint}

	if r.Method != http.MethodPost {
		return m.renderLogin(r, f, page)
	}

	f.Bind(r.PostForm)
	sub, ok := f.Submit()
	if !ok {
		return m.renderLogin(r, f, page)
	}
	email := strings.ToLower(strings.TrimSpace(sub.String("email")))

	if !m.allowLogin(email) {
		slog.Warn("login attempts rate limited", "email", email)
		page.Error = "Too many login attempts. Try again in a minute."
		f.SetDisabled(true)
		f.Set("email", email)
		return m.renderLogin(r, f, page)
	}

	var userID int64
	var hash string
	err := m.db.QueryRowContext(r.Context(), "SELECT id, password_hash FROM users WHERE email = ?", email).Scan(&userID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		f.SetExternalErrors(map[string]string{"password": "Incorrect email or password"})
		return m.renderLogin(r, f, page)
	}
	if err != nil {
		return engine.Errorf("finding user: %s", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(sub.String("password"))); err != nil {
		f.SetExternalErrors(map[string]string{"password": "Incorrect email or password"})
		return m.renderLogin(r, f, page)
	}

	exp := time.Now().Add(m.opts.SessionTTL)
	token, err := m.tokens.Sign(&jwt.RegisteredClaims{
		Issuer:    audience,
		Subject:   strconv.FormatInt(userID, 10),
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: &jwt.NumericDate{Time: exp},
	})
	if err != nil {
		return engine.Errorf("signing jwt: %s", err)
	}

	slog.Info("user logged in", "user", userID)
	cook := &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	}
	return engine.WithCookie(cook, engine.Redirect(callback, http.StatusSeeOther))
}

func (m *Module) renderLogin(r *http.Request, f *form.Form, page *loginPage) engine.Response {
	html, err := templates.Embed(r.Context(), f.Component())
	if err != nil {
		return engine.Errorf("rendering login form: %s", err)
	}
	page.Form = html
	return engine.Component(bootstrap.View("Sign in", pageTemplates.Execute("login", page)))
}

func (m *Module) allowLogin(email string) bool {
	m.limiterLock.Lock()
	defer m.limiterLock.Unlock()

	l, ok := m.limiters[email]
	if !ok {
		l = &loginLimiter{Limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.opts.LoginRate)), m.opts.LoginRate)}
		m.limiters[email] = l
	}
	l.lastSeen = time.Now()
	return l.Allow()
}

func (m *Module) pruneLimiters(ctx context.Context) bool {
	m.limiterLock.Lock()
	defer m.limiterLock.Unlock()

	for email, l := range m.limiters {
		if time.Since(l.lastSeen) > 10*time.Minute {
			delete(m.limiters, email)
		}
	}
	return false
}

// safeCallback only allows redirects to local paths.
func safeCallback(raw string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, `/\`) {
		return "/books"
	}
	return raw
}
