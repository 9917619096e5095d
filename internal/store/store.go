// Package store holds the recipe history and the selected entry.
//
// History is an owned, ordered slice of normalized recipes. The selection is
// an index into that slice, never a detached copy, so an in-place mutation is
// observed by both the history list and the detail view at once.
package store

import (
	"sync"

	"github.com/hpungsan/chefai/internal/errors"
	"github.com/hpungsan/chefai/internal/recipe"
)

const noSelection = -1

// Store is the only mutator of history and selection. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	entries  []recipe.Recipe
	selected int
	revision uint64
}

// New creates an empty store with nothing selected.
func New() *Store {
	return &Store{selected: noSelection}
}

// SetHistory replaces the history with the normalized records. A selection that
// still names an entry in the new history is kept; otherwise the first entry is
// selected, or nothing when the history is empty.
func (s *Store) SetHistory(raws []recipe.Raw) {
	entries := recipe.NormalizeAll(raws)

	s.mu.Lock()
	defer s.mu.Unlock()

	prevKey := ""
	if s.selected != noSelection {
		prevKey = s.entries[s.selected].Key()
	}

	s.entries = entries
	s.selected = noSelection
	if len(entries) == 0 {
		s.revision++
		return
	}

	if prevKey != "" {
		if i := s.indexOf(prevKey); i != noSelection {
			s.selected = i
			s.revision++
			return
		}
	}
	s.selected = 0
	s.revision++
}

// Select points the selection at the entry with the given id.
// Returns a NOT_FOUND error and leaves the selection unchanged if no entry matches.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i == noSelection {
		return errors.NewNotFound(id)
	}
	if i != s.selected {
		s.selected = i
		s.revision++
	}
	return nil
}

// UpdateNutrition replaces the nutrition of the entry with the given id,
// keeping its position and every other field. When that entry is selected,
// CurrentRecipe reflects the change under the same lock.
func (s *Store) UpdateNutrition(id string, n *recipe.Nutrition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i == noSelection {
		return errors.NewNotFound(id)
	}
	s.entries[i].Nutrition = n.Clone()
	return nil
}

// CurrentRecipe returns a copy of the selected entry, or false when nothing is selected.
func (s *Store) CurrentRecipe() (recipe.Recipe, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected == noSelection {
		return recipe.Recipe{}, false
	}
	return s.entries[s.selected].Clone(), true
}

// SelectedID returns the id of the selected entry, or "" when nothing is selected.
func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected == noSelection {
		return ""
	}
	return s.entries[s.selected].Key()
}

// Revision changes every time the selection moves to a different entry or the
// history is replaced. Callers compare revisions to detect a stale view.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Contains reports whether an entry with the given id is in the history.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) != noSelection
}

// Len returns the number of history entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Summary is the list view of one history entry.
type Summary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CreatedAt   string `json:"created_at,omitempty"`
	Ingredients string `json:"ingredients"`
	Selected    bool   `json:"selected"`
}

// Summaries returns the history list in order, marking the selected entry.
func (s *Store) Summaries() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.entries))
	for i, r := range s.entries {
		out = append(out, Summary{
			ID:          r.Key(),
			Title:       r.ListTitle(),
			CreatedAt:   r.CreatedAtDisplay(),
			Ingredients: r.IngredientPreview(),
			Selected:    i == s.selected,
		})
	}
	return out
}

// indexOf must be called with mu held. Unsaved entries never match.
func (s *Store) indexOf(id string) int {
	if id == "" {
		return noSelection
	}
	for i := range s.entries {
		if s.entries[i].Key() == id {
			return i
		}
	}
	return noSelection
}
