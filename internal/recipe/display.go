package recipe

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Display placeholders.
const (
	Placeholder         = "—"
	DefaultTitle        = "Recipe"
	UntitledTitle       = "Untitled recipe"
	NothingMissing      = "Nothing — you have everything!"
	DefaultDocumentName = "recipe"
	SampleIngredients   = "chicken breast, broccoli, rice"
)

// Limits for a sanitized filename, leaving room for the extension and the
// temp suffix used while saving.
const (
	maxFilenameRunes = 100
	maxFilenameBytes = 200
)

// DisplayTitle returns the title for a detail view.
func (r Recipe) DisplayTitle() string {
	if t := strings.TrimSpace(r.Title.String()); t != "" {
		return t
	}
	return DefaultTitle
}

// ListTitle returns the title for a history list entry.
func (r Recipe) ListTitle() string {
	if t := strings.TrimSpace(r.Title.String()); t != "" {
		return t
	}
	return UntitledTitle
}

// Meta renders a metadata value or the placeholder.
func Meta(s Scalar) string {
	if v := strings.TrimSpace(s.String()); v != "" {
		return v
	}
	return Placeholder
}

// ServingsForRequest returns the servings count sent for nutrition
// recalculation: the numeric value when positive, otherwise 1.
func (r Recipe) ServingsForRequest() float64 {
	if f, ok := r.Servings.Float(); ok && f > 0 {
		return f
	}
	return 1
}

// MissingForDisplay returns the missing ingredients, or a single
// reassurance line when nothing is missing.
func (r Recipe) MissingForDisplay() []string {
	if len(r.MissingIngredients) == 0 {
		return []string{NothingMissing}
	}
	return r.MissingIngredients
}

// IngredientPreview returns the first three ingredients for list chips.
func (r Recipe) IngredientPreview() string {
	const n = 3
	if len(r.Ingredients) <= n {
		return strings.Join(r.Ingredients, ", ")
	}
	return strings.Join(r.Ingredients[:n], ", ") + " …"
}

// Value renders one nutrition value or the placeholder.
func (n *Nutrition) Value(field string) string {
	if n == nil {
		return Placeholder
	}
	switch field {
	case "calories":
		return Meta(n.Calories)
	case "protein":
		return Meta(n.Protein)
	case "fat":
		return Meta(n.Fat)
	case "carbs":
		return Meta(n.Carbs)
	}
	return Placeholder
}

// createdAtLayouts are the timestamp formats the service has been seen to emit.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// CreatedAtDisplay formats created_at for display, or "" when absent.
// Unparseable values are shown as sent.
func (r Recipe) CreatedAtDisplay() string {
	s := strings.TrimSpace(r.CreatedAt.String())
	if s == "" {
		return ""
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Local().Format("2006-01-02 15:04")
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).Local().Format("2006-01-02 15:04")
	}
	return s
}

// DocumentFilename returns the save-as name for an exported document.
func (r Recipe) DocumentFilename() string {
	name := strings.TrimSpace(r.Title.String())
	if name == "" {
		name = DefaultDocumentName
	}
	return SanitizeForFilename(name) + ".pdf"
}

// SanitizeForFilename makes s safe to use as a single path component.
func SanitizeForFilename(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, "..", "-")

	// Drop control characters
	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	s = truncateName(result.String())

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "- .")

	if s == "" {
		s = DefaultDocumentName
	}
	return s
}

// truncateName cuts s to the filename limits on a rune boundary.
func truncateName(s string) string {
	runes, size := 0, 0
	for i, r := range s {
		if runes == maxFilenameRunes || size+utf8.RuneLen(r) > maxFilenameBytes {
			return s[:i]
		}
		runes++
		size += utf8.RuneLen(r)
	}
	return s
}
