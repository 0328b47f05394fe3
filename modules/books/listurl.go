package books

import (
	"net/url"
	"strings"
)

const (
	allBooksPath  = "/books"
	favoritesPath = "/books/favorites"
)

// SafeListURL returns raw when it's a local path, otherwise the default list.
func SafeListURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, `/\`) {
		return allBooksPath
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return allBooksPath
	}
	return u.String()
}

// listURL builds the URL of a list view. An empty search is omitted.
func listURL(mode ListMode, search string) string {
	path := allBooksPath
	if mode == ModeFavorites {
		path = favoritesPath
	}
	if search == "" {
		return path
	}
	return path + "?" + url.Values{"search": {search}}.Encode()
}

// withoutDeletion strips the pending deletion from a list URL.
func withoutDeletion(raw string) string {
	u, err := url.Parse(SafeListURL(raw))
	if err != nil {
		return allBooksPath
	}
	q := u.Query()
	q.Del("deleteId")
	q.Del("error")
	u.RawQuery = q.Encode()
	return u.String()
}

// withDeletion adds a pending deletion to a list URL. failed marks a
// previous attempt that didn't go through.
func withDeletion(raw, ids string, failed bool) string {
	u, err := url.Parse(withoutDeletion(raw))
	if err != nil {
		return allBooksPath
	}
	q := u.Query()
	if failed {
		q.Set("error", "true")
	}

	// Commas separating the ids stay literal
	query := "deleteId=" + strings.ReplaceAll(url.QueryEscape(ids), "%2C", ",")
	if rest := q.Encode(); rest != "" {
		query += "&" + rest
	}
	u.RawQuery = query
	return u.String()
}
