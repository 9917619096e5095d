package recipe

import (
	"bytes"
	"encoding/json"
)

// Normalize converts a service record into a canonical Recipe. It never fails:
// a malformed field degrades to its empty value so one bad field cannot block
// display of the rest.
//
// Accepted shapes per field:
//   - steps, missing_ingredients: array, or a string holding a JSON array
//   - ingredients: array only
//   - nutrition: object, or a string holding a JSON object; anything else is absent
//   - every other field passes through as sent
func Normalize(raw Raw) Recipe {
	r := Recipe{
		ID:                 scalarField(raw, FieldID),
		Title:              scalarField(raw, FieldTitle),
		Time:               scalarField(raw, FieldTime),
		Difficulty:         scalarField(raw, FieldDifficulty),
		Servings:           scalarField(raw, FieldServings),
		CreatedAt:          scalarField(raw, FieldCreatedAt),
		Ingredients:        decodeSequence(raw[FieldIngredients], false),
		Steps:              decodeSequence(raw[FieldSteps], true),
		MissingIngredients: decodeSequence(raw[FieldMissingIngredients], true),
		Nutrition:          decodeNutrition(raw[FieldNutrition]),
	}

	for k, v := range raw {
		if knownField(k) {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]json.RawMessage)
		}
		r.Extra[k] = compact(v)
	}

	return r
}

// NormalizeAll normalizes a list of records, preserving order.
func NormalizeAll(raws []Raw) []Recipe {
	out := make([]Recipe, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw))
	}
	return out
}

// NormalizeNutrition applies the nutrition field rules to a standalone value,
// as returned by the recalculation endpoint. Returns nil when unusable.
func NormalizeNutrition(value json.RawMessage) *Nutrition {
	return decodeNutrition(value)
}

func knownField(k string) bool {
	switch k {
	case FieldID, FieldTitle, FieldTime, FieldDifficulty, FieldServings, FieldCreatedAt,
		FieldIngredients, FieldSteps, FieldMissingIngredients, FieldNutrition:
		return true
	}
	return false
}

func scalarField(raw Raw, key string) Scalar {
	s := Scalar(compact(raw[key]))
	if !s.Present() {
		return nil
	}
	return s
}

// decodeSequence returns the elements of a JSON array as strings. When
// allowEncoded is set, a JSON string whose content is itself an array is
// decoded one level. Every other shape yields an empty, non-nil slice.
func decodeSequence(value json.RawMessage, allowEncoded bool) []string {
	t := bytes.TrimSpace(value)
	if len(t) == 0 {
		return []string{}
	}

	switch t[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(t, &elems); err != nil {
			return []string{}
		}
		out := make([]string, 0, len(elems))
		for _, e := range elems {
			out = append(out, Scalar(compact(e)).String())
		}
		return out
	case '"':
		if !allowEncoded {
			return []string{}
		}
		var inner string
		if err := json.Unmarshal(t, &inner); err != nil {
			return []string{}
		}
		return decodeSequence(json.RawMessage(inner), false)
	}
	return []string{}
}

// decodeNutrition returns the record, or nil when the value is absent,
// malformed, or not an object.
func decodeNutrition(value json.RawMessage) *Nutrition {
	t := bytes.TrimSpace(value)
	if len(t) == 0 {
		return nil
	}

	if t[0] == '"' {
		var inner string
		if err := json.Unmarshal(t, &inner); err != nil {
			return nil
		}
		t = bytes.TrimSpace([]byte(inner))
		if len(t) == 0 {
			return nil
		}
	}
	if t[0] != '{' {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(t, &fields); err != nil {
		return nil
	}

	n := &Nutrition{
		Calories: scalarField(fields, "calories"),
		Protein:  scalarField(fields, "protein"),
		Fat:      scalarField(fields, "fat"),
		Carbs:    scalarField(fields, "carbs"),
	}
	for k, v := range fields {
		switch k {
		case "calories", "protein", "fat", "carbs":
			continue
		}
		if n.Extra == nil {
			n.Extra = make(map[string]json.RawMessage)
		}
		n.Extra[k] = compact(v)
	}
	return n
}
