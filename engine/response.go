package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// Response is returned by handlers and written by the router.
type Response interface {
	write(w http.ResponseWriter, r *http.Request)
}

type responseFunc func(w http.ResponseWriter, r *http.Request)

func (f responseFunc) write(w http.ResponseWriter, r *http.Request) { f(w, r) }

// Component renders a templ component as an HTML page.
func Component(c templ.Component) Response {
	return responseFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := c.Render(r.Context(), w); err != nil {
			slog.Error("error while rendering component", "error", err, "url", r.URL.Path)
		}
	})
}

func JSON(v any) Response { return JSONStatus(http.StatusOK, v) }

func JSONStatus(status int, v any) Response {
	return responseFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("error while encoding json response", "error", err)
		}
	})
}

func Redirect(url string, status int) Response {
	return responseFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, url, status)
	})
}

func WithCookie(cook *http.Cookie, next Response) Response {
	return responseFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, cook)
		next.write(w, r)
	})
}

// Empty responds with 204.
func Empty() Response {
	return responseFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// Errorf logs the message and returns a generic 500 error to the client.
func Errorf(format string, args ...any) Response {
	return &httpError{
		StatusCode: http.StatusInternalServerError,
		Message:    "Internal error - please try again later",
		internal:   fmt.Sprintf(format, args...),
	}
}

func Error(err error) Response { return Errorf("%s", err) }

// ClientErrorf returns the formatted message to the client without logging it.
func ClientErrorf(status int, format string, args ...any) Response {
	return &httpError{StatusCode: status, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) Response {
	return ClientErrorf(http.StatusNotFound, format, args...)
}

func Unauthorized(err error) Response {
	slog.Debug("unauthorized request", "error", err)
	return &httpError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized"}
}

type httpError struct {
	StatusCode int
	Message    string
	internal   string
}

func (e *httpError) write(w http.ResponseWriter, r *http.Request) {
	if e.internal != "" {
		slog.Error("system error", "error", e.internal, "url", r.URL.Path, "method", r.Method)
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") || strings.HasPrefix(r.URL.Path, "/api/") {
		JSONStatus(e.StatusCode, map[string]string{"error": e.Message}).write(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(e.StatusCode)
	if err := renderError(e).Render(r.Context(), w); err != nil {
		slog.Error("error while rendering error page", "error", err)
	}
}
