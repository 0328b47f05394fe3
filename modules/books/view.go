package books

import (
	"errors"
	"strings"
	"unicode/utf8"
)

type ListMode int

const (
	ModeDefault ListMode = iota
	ModeFavorites
)

// View is the list the page shows.
type View string

const (
	ViewAll       View = "all_books_list"
	ViewFavorites View = "favorites_list"
	ViewFiltered  View = "filtered_list"
)

const minSearchLength = 3

var ErrSearchTooShort = errors.New("Search string must contain at least three symbols")

// DeriveView picks the list for a mode and search string. A search takes
// precedence over the favorites mode.
func DeriveView(mode ListMode, search string) View {
	switch {
	case strings.TrimSpace(search) != "":
		return ViewFiltered
	case mode == ModeFavorites:
		return ViewFavorites
	default:
		return ViewAll
	}
}

// CheckSearch trims the search string. Searches shorter than three
// characters are present but invalid and must not be queried.
func CheckSearch(raw string) (string, error) {
	q := strings.TrimSpace(raw)
	if q != "" && utf8.RuneCountInString(q) < minSearchLength {
		return q, ErrSearchTooShort
	}
	return q, nil
}
