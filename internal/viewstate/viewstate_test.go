package viewstate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	tests := []struct {
		name     string
		start    State
		action   Action
		expected State
	}{
		{
			name:     "search is trimmed",
			start:    Initial(),
			action:   SetSearchString{Value: "  dune "},
			expected: State{SearchString: "dune", ListBaseURL: "/books"},
		},
		{
			name:     "toggle adds",
			start:    State{Selected: []int64{3}},
			action:   ToggleSelected{ID: 10},
			expected: State{Selected: []int64{3, 10}},
		},
		{
			name:     "toggle removes",
			start:    State{Selected: []int64{3, 10, 4}},
			action:   ToggleSelected{ID: 10},
			expected: State{Selected: []int64{3, 4}},
		},
		{
			name:     "clear",
			start:    State{Selected: []int64{3, 10}, SearchString: "abc"},
			action:   ClearSelected{},
			expected: State{SearchString: "abc"},
		},
		{
			name:     "base url",
			start:    Initial(),
			action:   SetListBaseURL{URL: "/books/favorites"},
			expected: State{ListBaseURL: "/books/favorites"},
		},
		{
			name:     "reset",
			start:    State{Selected: []int64{1}, SearchString: "abc", ListBaseURL: "/books/favorites"},
			action:   Reset{},
			expected: Initial(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Reduce(tt.start, tt.action))
		})
	}
}

func TestReduceDoesNotAliasInput(t *testing.T) {
	start := State{Selected: []int64{1, 2, 3}}
	next := Reduce(start, ToggleSelected{ID: 2})

	assert.Equal(t, []int64{1, 2, 3}, start.Selected)
	assert.Equal(t, []int64{1, 3}, next.Selected)

	next.Selected[0] = 99
	assert.Equal(t, int64(1), start.Selected[0])
}

func TestStore(t *testing.T) {
	s := NewStore()

	assert.Equal(t, Initial(), s.Snapshot(1))

	s.Dispatch(1, ToggleSelected{ID: 5})
	s.Dispatch(1, ToggleSelected{ID: 7})
	s.Dispatch(2, SetSearchString{Value: "abc"})

	snap := s.Snapshot(1)
	assert.Equal(t, []int64{5, 7}, SelectedIDs(snap))
	assert.True(t, IsSelected(snap, 7))
	assert.False(t, IsSelected(snap, 8))
	assert.Equal(t, "5,7", DeleteSelectedParam(snap))
	assert.Equal(t, "", DeleteSelectedParam(s.Snapshot(2)))
	assert.Equal(t, "abc", s.Snapshot(2).SearchString)

	// Snapshots are copies
	snap.Selected[0] = 100
	assert.Equal(t, []int64{5, 7}, s.Snapshot(1).Selected)

	s.Dispatch(1, Reset{})
	assert.Equal(t, Initial(), s.Snapshot(1))
	assert.Equal(t, "abc", s.Snapshot(2).SearchString)

	s.Dispatch(1, ToggleSelected{ID: 5})
	s.Dispatch(2, ToggleSelected{ID: 6})
	s.DispatchAll(ClearSelected{})
	assert.Empty(t, s.Snapshot(1).Selected)
	assert.Empty(t, s.Snapshot(2).Selected)
	assert.Equal(t, "abc", s.Snapshot(2).SearchString)
}

func TestStoreConcurrentDispatch(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Dispatch(1, ToggleSelected{ID: id})
		}(int64(i + 1))
	}
	wg.Wait()

	snap := s.Snapshot(1)
	require.Len(t, snap.Selected, 50)
	assert.ElementsMatch(t, func() []int64 {
		ids := make([]int64, 50)
		for i := range ids {
			ids[i] = int64(i + 1)
		}
		return ids
	}(), snap.Selected)
}
