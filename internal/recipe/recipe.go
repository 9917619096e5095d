// Package recipe defines the canonical recipe value and the normalizer that
// turns loosely-typed service records into it.
package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire field names.
const (
	FieldID                 = "id"
	FieldTitle              = "title"
	FieldTime               = "time"
	FieldDifficulty         = "difficulty"
	FieldServings           = "servings"
	FieldIngredients        = "ingredients"
	FieldSteps              = "steps"
	FieldMissingIngredients = "missing_ingredients"
	FieldNutrition          = "nutrition"
	FieldCreatedAt          = "created_at"
)

// Raw is a recipe record as the service sent it, one wire value per field.
type Raw map[string]json.RawMessage

// ParseRaw decodes a single JSON object into a Raw record.
func ParseRaw(data []byte) (Raw, error) {
	t := bytes.TrimSpace(data)
	if len(t) == 0 || t[0] != '{' {
		return nil, fmt.Errorf("recipe record must be a JSON object")
	}
	var raw Raw
	if err := json.Unmarshal(t, &raw); err != nil {
		return nil, fmt.Errorf("decode recipe record: %w", err)
	}
	return raw, nil
}

// Recipe is the canonical in-memory recipe. Sequence fields are never nil
// once produced by Normalize.
type Recipe struct {
	// ID is absent for a freshly generated recipe the service has not saved.
	ID Scalar

	Title      Scalar
	Time       Scalar
	Difficulty Scalar
	Servings   Scalar

	Ingredients        []string
	Steps              []string
	MissingIngredients []string

	// Nutrition is nil when no usable estimate exists; nil means
	// recalculation is needed, not that the dish has zero calories.
	Nutrition *Nutrition

	CreatedAt Scalar

	// Extra holds fields this client does not interpret, passed through unchanged.
	Extra map[string]json.RawMessage
}

// Nutrition is a nutrition estimate. Each value is independently optional.
type Nutrition struct {
	Calories Scalar
	Protein  Scalar
	Fat      Scalar
	Carbs    Scalar

	Extra map[string]json.RawMessage
}

// Key returns the identifier used for history lookups, or "" when unsaved.
func (r Recipe) Key() string {
	return r.ID.String()
}

// Saved reports whether the service has assigned an identifier.
func (r Recipe) Saved() bool {
	return r.ID.Present()
}

// Clone returns a deep copy so callers cannot mutate store-owned slices.
func (r Recipe) Clone() Recipe {
	c := r
	c.Ingredients = append([]string{}, r.Ingredients...)
	c.Steps = append([]string{}, r.Steps...)
	c.MissingIngredients = append([]string{}, r.MissingIngredients...)
	c.Nutrition = r.Nutrition.Clone()
	c.Extra = cloneExtra(r.Extra)
	return c
}

// Clone returns a copy of n; nil stays nil.
func (n *Nutrition) Clone() *Nutrition {
	if n == nil {
		return nil
	}
	c := *n
	c.Extra = cloneExtra(n.Extra)
	return &c
}

// Raw converts the recipe back to a wire record. Normalize(r.Raw()) equals r.
func (r Recipe) Raw() Raw {
	raw := Raw{}
	for k, v := range r.Extra {
		raw[k] = v
	}
	putScalar(raw, FieldID, r.ID)
	putScalar(raw, FieldTitle, r.Title)
	putScalar(raw, FieldTime, r.Time)
	putScalar(raw, FieldDifficulty, r.Difficulty)
	putScalar(raw, FieldServings, r.Servings)
	putScalar(raw, FieldCreatedAt, r.CreatedAt)
	raw[FieldIngredients] = marshalNoEscape(nonNil(r.Ingredients))
	raw[FieldSteps] = marshalNoEscape(nonNil(r.Steps))
	raw[FieldMissingIngredients] = marshalNoEscape(nonNil(r.MissingIngredients))
	if r.Nutrition != nil {
		raw[FieldNutrition] = r.Nutrition.raw()
	}
	return raw
}

// MarshalJSON emits the canonical record. This is the body sent to the export endpoint.
func (r Recipe) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(map[string]json.RawMessage(r.Raw())), nil
}

// UnmarshalJSON accepts any record shape and normalizes it.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	raw, err := ParseRaw(data)
	if err != nil {
		return err
	}
	*r = Normalize(raw)
	return nil
}

// MarshalJSON emits the nutrition record with absent values omitted.
func (n Nutrition) MarshalJSON() ([]byte, error) {
	return n.raw(), nil
}

// UnmarshalJSON decodes a nutrition record.
func (n *Nutrition) UnmarshalJSON(data []byte) error {
	decoded := decodeNutrition(data)
	if decoded == nil {
		return fmt.Errorf("nutrition must be a JSON object")
	}
	*n = *decoded
	return nil
}

func (n *Nutrition) raw() json.RawMessage {
	m := map[string]json.RawMessage{}
	for k, v := range n.Extra {
		m[k] = v
	}
	putScalar(m, "calories", n.Calories)
	putScalar(m, "protein", n.Protein)
	putScalar(m, "fat", n.Fat)
	putScalar(m, "carbs", n.Carbs)
	return marshalNoEscape(m)
}

func putScalar(m map[string]json.RawMessage, key string, s Scalar) {
	if s.Present() {
		m[key] = json.RawMessage(s)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func cloneExtra(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	c := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
