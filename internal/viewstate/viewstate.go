// Package viewstate holds the per-user list state shared between pages:
// the current search string, the books selected for deletion, and the list
// URL the user last looked at.
package viewstate

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
)

const DefaultListURL = "/books"

type State struct {
	SearchString string
	Selected     []int64
	ListBaseURL  string
}

// Action is a named state transition. The set is closed.
type Action interface {
	apply(State) State
}

type SetSearchString struct{ Value string }

type ToggleSelected struct{ ID int64 }

type ClearSelected struct{}

type SetListBaseURL struct{ URL string }

// Reset returns the state to its initial value, e.g. when the session expires.
type Reset struct{}

func (a SetSearchString) apply(s State) State {
	s.SearchString = strings.TrimSpace(a.Value)
	return s
}

func (a ToggleSelected) apply(s State) State {
	if i := slices.Index(s.Selected, a.ID); i >= 0 {
		s.Selected = slices.Delete(s.Selected, i, i+1)
		return s
	}
	s.Selected = append(s.Selected, a.ID)
	return s
}

func (ClearSelected) apply(s State) State {
	s.Selected = nil
	return s
}

func (a SetListBaseURL) apply(s State) State {
	s.ListBaseURL = a.URL
	return s
}

func (Reset) apply(State) State { return Initial() }

func Initial() State { return State{ListBaseURL: DefaultListURL} }

// Reduce returns the state after applying the action. The input is never modified.
func Reduce(s State, a Action) State {
	s.Selected = slices.Clone(s.Selected)
	return a.apply(s)
}

// Store keeps one State per user. Dispatches are applied in the order they arrive.
type Store struct {
	lock  sync.Mutex
	state map[int64]State
}

func NewStore() *Store {
	return &Store{state: map[int64]State{}}
}

func (s *Store) Dispatch(user int64, a Action) State {
	s.lock.Lock()
	defer s.lock.Unlock()

	current, ok := s.state[user]
	if !ok {
		current = Initial()
	}
	next := Reduce(current, a)
	if _, ok := a.(Reset); ok {
		slog.Info("resetting view state", "user", user)
		delete(s.state, user)
		return next
	}
	s.state[user] = next
	return clone(next)
}

// DispatchAll applies the action to every user that has state.
func (s *Store) DispatchAll(a Action) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for user, current := range s.state {
		s.state[user] = Reduce(current, a)
	}
}

// Snapshot returns a copy of the user's state that callers are free to keep.
func (s *Store) Snapshot(user int64) State {
	s.lock.Lock()
	defer s.lock.Unlock()

	current, ok := s.state[user]
	if !ok {
		return Initial()
	}
	return clone(current)
}

func clone(s State) State {
	s.Selected = slices.Clone(s.Selected)
	return s
}

// IsSelected reports whether the book is marked for deletion.
func IsSelected(s State, id int64) bool { return slices.Contains(s.Selected, id) }

// SelectedIDs returns the selection in the order it was made.
func SelectedIDs(s State) []int64 { return slices.Clone(s.Selected) }

// DeleteSelectedParam formats the selection as a deleteId query value, or "" when nothing is selected.
func DeleteSelectedParam(s State) string {
	parts := make([]string, len(s.Selected))
	for i, id := range s.Selected {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
