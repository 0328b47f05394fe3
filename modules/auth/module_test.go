package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/TheLab-ms/bookcase/db"
	"github.com/TheLab-ms/bookcase/engine"
	"github.com/TheLab-ms/bookcase/internal/viewstate"
	"github.com/gavv/httpexpect/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	*Module
	e      *httpexpect.Expect
	userID int64
}

func newTestEnv(t *testing.T) *testEnv {
	db := db.NewTest(t)
	tokens := engine.NewTokenIssuer(filepath.Join(t.TempDir(), "auth.pem"))
	m := New(db, tokens, viewstate.NewStore(), Options{LoginRate: 3, Hint: "Try demo@example.com"})
	require.NoError(t, m.SeedUser(t.Context(), "demo@example.com", "demo-password"))

	env := &testEnv{Module: m}
	require.NoError(t, db.QueryRow("SELECT id FROM users WHERE email = 'demo@example.com'").Scan(&env.userID))

	router := engine.NewRouter(nil)
	router.Authenticator = m
	m.AttachRoutes(router)
	router.Handle("GET", "/private", router.WithAuth(func(r *http.Request, ps httprouter.Params) engine.Response {
		return engine.JSON(GetUserMeta(r.Context()))
	}))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	env.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  server.URL,
		Reporter: httpexpect.NewAssertReporter(t),
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error { return http.ErrUseLastResponse },
		},
	})
	return env
}

func (env *testEnv) login(email, password, callback string) *httpexpect.Response {
	return env.e.POST("/login").
		WithFormField("email", email).
		WithFormField("password", password).
		WithFormField("callback_uri", callback).
		Expect()
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	// Not signed in
	env.e.GET("/private").
		Expect().
		Status(http.StatusFound).
		Header("Location").IsEqual("/login?callback_uri=%2Fprivate")

	page := env.e.GET("/login").WithQuery("callback_uri", "/private").
		Expect().
		Status(http.StatusOK).Body()
	page.Contains("Try demo@example.com")
	page.Contains(`<input type="hidden" name="callback_uri" value="/private">`)
	page.Contains(`type="password"`)

	// Local validation
	page = env.login("not-an-email", "", "/private").Status(http.StatusOK).Body()
	page.Contains("field must be a valid email address")
	page.Contains("Password is required")

	// Wrong password is reported on the field
	page = env.login("demo@example.com", "wrong", "/private").Status(http.StatusOK).Body()
	page.Contains("Incorrect email or password")
	page.NotContains("wrong")

	// Success
	resp := env.login("  Demo@Example.com ", "demo-password", "/private").Status(http.StatusSeeOther)
	resp.Header("Location").IsEqual("/private")
	token := resp.Cookie("token").Value().Raw()
	require.NotEmpty(t, token)

	obj := env.e.GET("/private").WithCookie("token", token).
		Expect().
		Status(http.StatusOK).JSON().Object()
	obj.Value("email").IsEqual("demo@example.com")
	obj.Value("id").IsEqual(env.userID)

	env.e.GET("/whoami").WithCookie("token", token).
		Expect().
		Status(http.StatusOK).JSON().Object().Value("email").IsEqual("demo@example.com")
}

func TestLoginMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	resp := env.e.POST("/login").
		WithHeader("Content-Type", "application/x-www-form-urlencoded").
		WithBytes([]byte("email=demo%40example.com&password=%zz")).
		Expect()
	resp.Status(http.StatusBadRequest)
	resp.Cookies().IsEmpty()
}

func TestLoginCallbackMustBeLocal(t *testing.T) {
	env := newTestEnv(t)

	for _, callback := range []string{"", "https://evil.example/", "//evil.example"} {
		env.login("demo@example.com", "demo-password", callback).
			Status(http.StatusSeeOther).
			Header("Location").IsEqual("/books")
	}

	assert.Equal(t, "/books", safeCallback(`/\evil.example`))
	assert.Equal(t, "/books/favorites?search=abc", safeCallback("/books/favorites?search=abc"))
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t)

	for range 3 {
		env.login("demo@example.com", "wrong", "/books").Status(http.StatusOK).Body().Contains("Incorrect email or password")
	}

	page := env.login("demo@example.com", "demo-password", "/books").Status(http.StatusOK).Body()
	page.Contains("Too many login attempts. Try again in a minute.")
	page.Contains(`value="demo@example.com" disabled`)

	// Other addresses have their own budget
	env.login("other@example.com", "x", "/books").Status(http.StatusOK).Body().NotContains("Too many login attempts")

	// Idle limiters are pruned
	for _, l := range env.limiters {
		l.lastSeen = time.Now().Add(-time.Hour)
	}
	assert.False(t, env.pruneLimiters(t.Context()))
	assert.Empty(t, env.limiters)
}

func TestExpiredSessionResetsViewState(t *testing.T) {
	env := newTestEnv(t)
	env.state.Dispatch(env.userID, viewstate.ToggleSelected{ID: 5})
	env.state.Dispatch(env.userID, viewstate.SetSearchString{Value: "dune"})

	token, err := env.tokens.Sign(&jwt.RegisteredClaims{
		Subject:   "1",
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), env.userID)

	env.e.GET("/private").WithCookie("token", token).
		Expect().
		Status(http.StatusFound)

	assert.Equal(t, viewstate.Initial(), env.state.Snapshot(env.userID))
}

func TestWrongAudience(t *testing.T) {
	env := newTestEnv(t)

	token, err := env.tokens.Sign(&jwt.RegisteredClaims{
		Subject:   "1",
		Audience:  jwt.ClaimStrings{"something-else"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	require.NoError(t, err)

	env.e.GET("/private").WithCookie("token", token).
		Expect().
		Status(http.StatusFound)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("demo@example.com", "demo-password", "/books").Cookie("token").Value().Raw()
	env.state.Dispatch(env.userID, viewstate.ToggleSelected{ID: 5})

	resp := env.e.GET("/logout").WithCookie("token", token).
		Expect().
		Status(http.StatusFound)
	resp.Header("Location").IsEqual("/login")
	resp.Cookie("token").Value().IsEmpty()

	assert.Equal(t, viewstate.Initial(), env.state.Snapshot(env.userID))
}

func TestSeedUserResetsPassword(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.SeedUser(t.Context(), "demo@example.com", "new-password"))

	var count int
	require.NoError(t, env.db.QueryRow("SELECT count(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)

	env.login("demo@example.com", "demo-password", "/books").Status(http.StatusOK)
	env.login("demo@example.com", "new-password", "/books").Status(http.StatusSeeOther)
}
