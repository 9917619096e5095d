package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/errors"
	"github.com/hpungsan/chefai/internal/ops"
	"github.com/hpungsan/chefai/internal/recipe"
	"github.com/hpungsan/chefai/internal/store"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title    string
	Version  string
	Nav      string // active nav item: "main", "history"
	Username string
	Error    string
}

// AuthPageData is the template data for the sign-in and sign-up pages.
type AuthPageData struct {
	PageData
	FormUsername string
	FormEmail    string
}

// RecipeView is a recipe prepared for display.
type RecipeView struct {
	Recipe       recipe.Recipe
	Source       ops.Source
	From         string // page recipe actions return to: "main" or "history"
	RenderedHTML template.HTML
	Calculating  bool
	Exporting    bool
}

// MainPageData is the template data for the main page.
type MainPageData struct {
	PageData
	Ingredients string
	Sample      string
	Generating  bool
	Current     *RecipeView
}

// HistoryPageData is the template data for the history page.
type HistoryPageData struct {
	PageData
	Items    []store.Summary
	Selected *RecipeView
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	log       *zap.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	funcMap := template.FuncMap{
		"meta":     recipe.Meta,
		"nutrient": nutrient,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html", "recipe.html"))

	pages := map[string]string{
		"welcome": "welcome.html",
		"sign_in": "sign_in.html",
		"sign_up": "sign_up.html",
		"main":    "main.html",
		"history": "history.html",
		"error":   "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		log:       log,
	}
}

// page fills the common page fields.
func (r *Renderer) page(title, nav, username string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav, Username: username}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.log.Error("template not found", zap.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.log.Error("template execution failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var cErr *errors.ChefError
	if !stderrors.As(err, &cErr) {
		cErr = errors.NewInternal(err)
	}
	if cErr.Code == errors.ErrInternal {
		r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
	}

	status := cErr.Status
	message := cErr.Message

	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(cErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", status), "", ""),
		StatusCode: status,
		Message:    message,
	})
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is not passed through.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// newRecipeView prepares r for display.
func newRecipeView(r recipe.Recipe, source ops.Source) *RecipeView {
	from := "main"
	if source == ops.SourceHistory {
		from = "history"
	}
	return &RecipeView{
		Recipe:       r,
		Source:       source,
		From:         from,
		RenderedHTML: renderMarkdown(r.Markdown()),
	}
}

// nutrient renders one nutrition value, tolerating a missing estimate.
func nutrient(n *recipe.Nutrition, field string) string {
	return n.Value(field)
}
