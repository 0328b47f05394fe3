package books

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var deleteIDPattern = regexp.MustCompile(`^([1-9][0-9]*)(,[1-9][0-9]*)*$`)

type DeleteParamError struct {
	Raw string
}

func (e *DeleteParamError) Error() string {
	return fmt.Sprintf("Incorrect deleteId parameter: \"%s\"", e.Raw)
}

// ParseDeleteIDs parses a deleteId value: one or more comma-separated
// positive integers without leading zeros. Repeated ids are kept.
func ParseDeleteIDs(raw string) ([]int64, error) {
	if !deleteIDPattern.MatchString(raw) {
		return nil, &DeleteParamError{Raw: raw}
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, &DeleteParamError{Raw: raw}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FormatDeleteIDs is the inverse of ParseDeleteIDs.
func FormatDeleteIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// ListResult is the already loaded list of the active view.
type ListResult struct {
	Books   []*Book
	Err     error
	Settled bool
}

// Deletion is what the confirmation area shows for a deleteId parameter:
// either a prompt naming what will be deleted, or an error in its place.
type Deletion struct {
	Raw    string
	IDs    []int64
	Prompt string
	Error  string

	// Failed is set when the previous attempt to delete these books failed.
	Failed bool
}

// ResolveDeletion builds the confirmation context for raw. It returns nil
// when there is nothing to confirm, and also while the list hasn't settled
// or failed to load, so a book that simply isn't loaded yet is never
// reported as missing. A single id is looked up in the list to show its
// title; several ids are only counted, repeats included.
func ResolveDeletion(raw string, list ListResult, failed bool) *Deletion {
	if raw == "" {
		return nil
	}

	ids, err := ParseDeleteIDs(raw)
	if err != nil {
		return &Deletion{Raw: raw, Error: err.Error()}
	}

	if !list.Settled || list.Err != nil {
		return nil
	}

	d := &Deletion{Raw: raw, IDs: ids, Failed: failed}
	if len(ids) > 1 {
		d.Prompt = fmt.Sprintf("%d books", len(ids))
		return d
	}

	i := slices.IndexFunc(list.Books, func(b *Book) bool { return b.ID == ids[0] })
	if i < 0 {
		return &Deletion{Raw: raw, Error: fmt.Sprintf("Book with id=\"%d\" not found", ids[0])}
	}
	d.Prompt = fmt.Sprintf("\"%s\"", list.Books[i].Title)
	return d
}

// Confirmable is true when the dialog should be shown.
func (d *Deletion) Confirmable() bool { return d != nil && d.Error == "" }
