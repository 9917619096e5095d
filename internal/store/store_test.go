package store

import (
	"sync"
	"testing"

	"github.com/hpungsan/chefai/internal/errors"
	"github.com/hpungsan/chefai/internal/recipe"
)

func raws(t *testing.T, records ...string) []recipe.Raw {
	t.Helper()
	out := make([]recipe.Raw, 0, len(records))
	for _, s := range records {
		raw, err := recipe.ParseRaw([]byte(s))
		if err != nil {
			t.Fatalf("ParseRaw(%s) error = %v", s, err)
		}
		out = append(out, raw)
	}
	return out
}

func TestSetHistory_SelectsFirstEntry(t *testing.T) {
	s := New()
	s.SetHistory(raws(t, `{"id": 1, "title": "A"}`, `{"id": 2, "title": "B"}`))

	cur, ok := s.CurrentRecipe()
	if !ok {
		t.Fatal("CurrentRecipe() returned no selection")
	}
	if cur.Key() != "1" {
		t.Errorf("selected id = %q, want 1", cur.Key())
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestSetHistory_Empty(t *testing.T) {
	s := New()
	s.SetHistory(raws(t, `{"id": 1}`))
	s.SetHistory(nil)

	if _, ok := s.CurrentRecipe(); ok {
		t.Error("CurrentRecipe() should report no selection for empty history")
	}
	if s.SelectedID() != "" {
		t.Errorf("SelectedID() = %q, want empty", s.SelectedID())
	}
}

func TestSetHistory_KeepsSelectionWhenStillPresent(t *testing.T) {
	s := New()
	s.SetHistory(raws(t, `{"id": 1}`, `{"id": 2}`))
	if err := s.Select("2"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	s.SetHistory(raws(t, `{"id": 3}`, `{"id": "2"}`))
	if s.SelectedID() != "2" {
		t.Errorf("SelectedID() = %q, want 2", s.SelectedID())
	}

	s.SetHistory(raws(t, `{"id": 4}`, `{"id": 5}`))
	if s.SelectedID() != "4" {
		t.Errorf("SelectedID() = %q, want first entry 4", s.SelectedID())
	}
}

func TestSetHistory_NormalizesEntries(t *testing.T) {
	s := New()
	s.SetHistory(raws(t, `{"id": 1, "steps": "[\"Boil\"]", "nutrition": "not json"}`))

	cur, _ := s.CurrentRecipe()
	if len(cur.Steps) != 1 || cur.Steps[0] != "Boil" {
		t.Errorf("Steps = %v, want [Boil]", cur.Steps)
	}
	if cur.Nutrition != nil {
		t.Error("Nutrition should be absent")
	}
	if cur.MissingIngredients == nil || cur.Ingredients == nil {
		t.Error("sequence fields should never be nil")
	}
}

func TestSelect_NotFound(t *testing.T) {
	s := New()
	s.SetHistory(raws(t, `{"id": 1}`, `{"id": 2}`))

	err := s.Select("99")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("Select(99) error = %v, want NOT_FOUND", err)
	}
	if s.SelectedID() != "1" {
		t.Errorf("selection changed to %q after failed Select", s.SelectedID())
	}

	if err := s.Select(""); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Select(\"\") error = %v, want NOT_FOUND", err)
	}
}

func TestSelect_MatchesNumericAndStringIDs(t *testing.T) {
	s := New()
	s.SetHistory(raws(t, `{"id": 1}`, `{"id": "abc"}`))

	for _, id := range []string{"abc", "1"} {
		if err := s.Select(id); err != nil {
			t.Errorf("Select(%q) error = %v", id, err)
		}
		if s.SelectedID() != id {
			t.Errorf("SelectedID() = %q, want %q", s.SelectedID(), id)
		}
	}
}

func TestUpdateNutrition_SelectedEntry(t *testing.T) {
	s := New()
	s.SetHistory(raws(t, `{"id": 1, "title": "A", "nutrition": null}`, `{"id": 2, "title": "B"}`))

	n := &recipe.Nutrition{Calories: recipe.NumberScalar(410)}
	if err := s.UpdateNutrition("1", n); err != nil {
		t.Fatalf("UpdateNutrition() error = %v", err)
	}

	cur, _ := s.CurrentRecipe()
	if cur.Nutrition == nil || cur.Nutrition.Calories.String() != "410" {
		t.Errorf("CurrentRecipe().Nutrition = %+v, want calories 410", cur.Nutrition)
	}

	// History list sees the same entry, in the same position
	sums := s.Summaries()
	if len(sums) != 2 || sums[0].ID != "1" || !sums[0].Selected {
		t.Errorf("Summaries() = %+v", sums)
	}

	// Caller-owned value is not aliased
	n.Calories = recipe.NumberScalar(1)
	cur, _ = s.CurrentRecipe()
	if cur.Nutrition.Calories.String() != "410" {
		t.Error("store aliases caller nutrition")
	}
}

func TestUpdateNutrition_OtherEntryKeepsSelection(t *testing.T) {
	s := New()
	s.SetHistory(raws(t, `{"id": 1}`, `{"id": 2}`))

	if err := s.UpdateNutrition("2", &recipe.Nutrition{Fat: recipe.StringScalar("9g")}); err != nil {
		t.Fatalf("UpdateNutrition() error = %v", err)
	}
	if s.SelectedID() != "1" {
		t.Errorf("SelectedID() = %q, want 1", s.SelectedID())
	}
	cur, _ := s.CurrentRecipe()
	if cur.Nutrition != nil {
		t.Error("selected entry should be untouched")
	}

	if err := s.UpdateNutrition("7", &recipe.Nutrition{}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("UpdateNutrition(7) error = %v, want NOT_FOUND", err)
	}
}

func TestCurrentRecipe_ReturnsCopy(t *testing.T) {
	s := New()
	s.SetHistory(raws(t, `{"id": 1, "ingredients": ["rice"]}`))

	cur, _ := s.CurrentRecipe()
	cur.Ingredients[0] = "mutated"

	again, _ := s.CurrentRecipe()
	if again.Ingredients[0] != "rice" {
		t.Error("CurrentRecipe() exposes store-owned slice")
	}
}

func TestRevision(t *testing.T) {
	s := New()
	r0 := s.Revision()
	s.SetHistory(raws(t, `{"id": 1}`, `{"id": 2}`))
	r1 := s.Revision()
	if r1 == r0 {
		t.Error("SetHistory should bump revision")
	}
	if err := s.Select("1"); err != nil {
		t.Fatal(err)
	}
	if s.Revision() != r1 {
		t.Error("re-selecting the same entry should not bump revision")
	}
	if err := s.Select("2"); err != nil {
		t.Fatal(err)
	}
	if s.Revision() == r1 {
		t.Error("Select of another entry should bump revision")
	}
}

func TestSummaries(t *testing.T) {
	s := New()
	s.SetHistory(raws(t, `{"id": 1, "ingredients": ["a","b","c","d"]}`))

	sums := s.Summaries()
	if len(sums) != 1 {
		t.Fatalf("Summaries() len = %d", len(sums))
	}
	if sums[0].Title != recipe.UntitledTitle {
		t.Errorf("Title = %q, want %q", sums[0].Title, recipe.UntitledTitle)
	}
	if sums[0].Ingredients != "a, b, c …" {
		t.Errorf("Ingredients = %q", sums[0].Ingredients)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	s.SetHistory(raws(t, `{"id": 1}`, `{"id": 2}`))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.UpdateNutrition("1", &recipe.Nutrition{Calories: recipe.NumberScalar(float64(i))})
		}(i)
		go func() {
			defer wg.Done()
			if cur, ok := s.CurrentRecipe(); ok {
				_ = cur.Nutrition.Value("calories")
			}
			_ = s.Summaries()
		}()
	}
	wg.Wait()

	cur, ok := s.CurrentRecipe()
	if !ok || cur.Nutrition == nil {
		t.Error("selected entry should carry nutrition after concurrent updates")
	}
}
