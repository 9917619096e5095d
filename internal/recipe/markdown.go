package recipe

import (
	"fmt"
	"strings"
)

// Markdown renders the recipe as a markdown document using display placeholders.
func (r Recipe) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(r.DisplayTitle()))
	if created := r.CreatedAtDisplay(); created != "" {
		fmt.Fprintf(&b, "_%s_\n\n", escapeMarkdown(created))
	}
	fmt.Fprintf(&b, "**Time:** %s · **Difficulty:** %s · **Servings:** %s\n\n",
		escapeMarkdown(Meta(r.Time)), escapeMarkdown(Meta(r.Difficulty)), escapeMarkdown(Meta(r.Servings)))

	b.WriteString("## Ingredients\n\n")
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&b, "- %s\n", escapeMarkdown(ing))
	}
	b.WriteString("\n")

	if len(r.Steps) > 0 {
		b.WriteString("## Steps\n\n")
		for i, step := range r.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, escapeMarkdown(step))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Missing Ingredients\n\n")
	for _, m := range r.MissingForDisplay() {
		fmt.Fprintf(&b, "- %s\n", escapeMarkdown(m))
	}
	b.WriteString("\n")

	if r.Nutrition != nil {
		b.WriteString("## Nutrition\n\n")
		fmt.Fprintf(&b, "- Calories: %s\n", escapeMarkdown(r.Nutrition.Value("calories")))
		fmt.Fprintf(&b, "- Protein: %s\n", escapeMarkdown(r.Nutrition.Value("protein")))
		fmt.Fprintf(&b, "- Fat: %s\n", escapeMarkdown(r.Nutrition.Value("fat")))
		fmt.Fprintf(&b, "- Carbs: %s\n", escapeMarkdown(r.Nutrition.Value("carbs")))
	}

	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", "&lt;", ">", "&gt;", "#", `\#`,
)

// escapeMarkdown keeps service text from being interpreted as markup or raw HTML.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
