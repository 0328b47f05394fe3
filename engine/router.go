package engine

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/TheLab-ms/bookcase/static"
	"github.com/julienschmidt/httprouter"
)

// Handler is the shape of every route in the app.
// Handlers return a Response instead of writing to the ResponseWriter directly.
type Handler func(*http.Request, httprouter.Params) Response

type Authenticator interface {
	WithAuth(Handler) Handler
}

type noopAuthenticator struct{}

func (noopAuthenticator) WithAuth(fn Handler) Handler { return fn }

type Router struct {
	router *httprouter.Router

	// Authenticator can be used to pass an authenticator implementation to other handlers.
	Authenticator
}

// NewRouter allocates a router. notFound is optional.
func NewRouter(notFound http.Handler) *Router {
	router := httprouter.New()
	router.NotFound = notFound
	router.ServeFiles("/assets/*filepath", http.FS(static.Assets))
	return &Router{router: router, Authenticator: noopAuthenticator{}}
}

// Serve wires up the stdlib http server to the engine.
func (r *Router) Serve(addr string) Proc {
	return func(ctx context.Context) error {
		svr := &http.Server{Handler: r, Addr: addr}
		go func() {
			<-ctx.Done()
			slog.Warn("gracefully shutting down http server...")
			svr.Shutdown(context.Background())
		}()
		if err := svr.ListenAndServe(); err != nil {
			return err
		}
		slog.Info("the http server has shut down")
		return nil
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, rr *http.Request) { r.router.ServeHTTP(w, rr) }

func (r *Router) Handle(method, path string, fn Handler) {
	r.router.Handle(method, path, func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		start := time.Now()

		ww := &responseWrapper{ResponseWriter: w, status: 200}
		Handle(ww, r, p, fn)
		slog.Info("http request", "url", r.URL.Path, "method", r.Method, "userAgent", r.UserAgent(), "latencyMS", time.Since(start).Milliseconds(), "status", ww.status)
	})
}

// HandleFunc registers a plain http.HandlerFunc, e.g. health probes.
func (r *Router) HandleFunc(method, path string, fn http.HandlerFunc) {
	r.router.HandlerFunc(method, path, fn)
}

// Handle invokes the handler and writes its response.
// It's exported so tests can call handlers without a router.
func Handle(w http.ResponseWriter, r *http.Request, p httprouter.Params, fn Handler) {
	resp := fn(r, p)
	if resp == nil {
		resp = Empty()
	}
	resp.write(w, r)
}

type responseWrapper struct {
	http.ResponseWriter
	status int
}

func (w *responseWrapper) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
