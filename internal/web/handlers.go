package web

import (
	stderrors "errors"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/errors"
	"github.com/hpungsan/chefai/internal/ops"
	"github.com/hpungsan/chefai/internal/recipe"
	"github.com/hpungsan/chefai/internal/session"
)

const (
	pathWelcome = "/welcome"
	pathMain    = "/main_page"
	pathHistory = "/history_page"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	o        *ops.Orchestrator
	renderer *Renderer
	log      *zap.Logger
}

// HandleWelcome handles GET /welcome. A live session skips straight to the main page.
func (h *Handlers) HandleWelcome(w http.ResponseWriter, r *http.Request) {
	if ops.EntryDecision(r.Context(), h.o) == session.RedirectToMain {
		http.Redirect(w, r, pathMain, http.StatusFound)
		return
	}
	h.renderer.renderPage(w, "welcome", h.renderer.page("Welcome", "", ""))
}

// HandleSignInPage handles GET /sign_in.
func (h *Handlers) HandleSignInPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "sign_in", AuthPageData{PageData: h.renderer.page("Sign in", "", "")})
}

// HandleSignIn handles POST /sign_in.
func (h *Handlers) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("invalid form data"))
		return
	}

	username := r.PostFormValue("username")
	_, err := ops.SignIn(r.Context(), h.o, ops.SignInInput{
		Username: username,
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		data := AuthPageData{PageData: h.renderer.page("Sign in", "", ""), FormUsername: username}
		data.Error = errors.Message(err)
		h.renderer.renderPageStatus(w, statusOf(err), "sign_in", data)
		return
	}
	http.Redirect(w, r, pathMain, http.StatusSeeOther)
}

// HandleSignUpPage handles GET /sign_up.
func (h *Handlers) HandleSignUpPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "sign_up", AuthPageData{PageData: h.renderer.page("Sign up", "", "")})
}

// HandleSignUp handles POST /sign_up.
func (h *Handlers) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("invalid form data"))
		return
	}

	username := r.PostFormValue("username")
	email := r.PostFormValue("email")
	_, err := ops.SignUp(r.Context(), h.o, ops.SignUpInput{
		Username: username,
		Email:    email,
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		data := AuthPageData{
			PageData:     h.renderer.page("Sign up", "", ""),
			FormUsername: username,
			FormEmail:    email,
		}
		data.Error = errors.Message(err)
		h.renderer.renderPageStatus(w, statusOf(err), "sign_up", data)
		return
	}
	http.Redirect(w, r, pathMain, http.StatusSeeOther)
}

// HandleLogout handles POST /logout.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if _, err := ops.Logout(h.o); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, pathWelcome, http.StatusSeeOther)
}

// HandleMain handles GET /main_page: the generate form and the generated recipe.
func (h *Handlers) HandleMain(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	h.renderMain(w, http.StatusOK, "", "")
}

// HandleGenerate handles POST /main_page/generate.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("invalid form data"))
		return
	}

	ingredients := r.PostFormValue("ingredients")
	if _, err := ops.Generate(r.Context(), h.o, ops.GenerateInput{Ingredients: ingredients}); err != nil {
		if h.redirectOnAuth(w, r, err) {
			return
		}
		h.renderMain(w, statusOf(err), ingredients, errors.Message(err))
		return
	}
	http.Redirect(w, r, pathMain, http.StatusSeeOther)
}

// HandleHistory handles GET /history_page. The history is fetched on entry;
// ?id= selects an entry from the cached list.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}

	id := r.URL.Query().Get("id")

	var (
		out *ops.HistoryOutput
		err error
	)
	if id == "" || h.o.Store().Len() == 0 {
		out, err = ops.EnterHistory(r.Context(), h.o)
	}
	if err == nil && id != "" {
		out, err = ops.SelectHistory(h.o, id)
	}
	if err != nil {
		if h.redirectOnAuth(w, r, err) {
			return
		}
		if wantsJSON(r) || errors.Is(err, errors.ErrNotFound) {
			h.renderer.renderError(w, r, err)
			return
		}
		h.renderHistory(w, statusOf(err), ops.History(h.o), errors.Message(err))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	h.renderHistory(w, http.StatusOK, out, "")
}

// HandleRecalculate handles POST /recipe/nutrition for the displayed recipe.
func (h *Handlers) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}

	out, err := ops.RecalculateNutrition(r.Context(), h.o, ops.RecalculateInput{Target: targetOf(r)})
	if err != nil {
		if h.redirectOnAuth(w, r, err) {
			return
		}
		h.renderFromPage(w, r, statusOf(err), errors.Message(err))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	http.Redirect(w, r, returnPath(r), http.StatusSeeOther)
}

// HandleExport handles POST /recipe/export. The document is sent as a download.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}

	out, err := ops.ExportDocument(r.Context(), h.o, ops.ExportInput{Target: targetOf(r)})
	if err != nil {
		if h.redirectOnAuth(w, r, err) {
			return
		}
		h.renderFromPage(w, r, statusOf(err), errors.Message(err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Document)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Document)
}

// requireSession redirects to the entry page when no credential is stored.
func (h *Handlers) requireSession(w http.ResponseWriter, r *http.Request) bool {
	if h.o.Guard().RequireSession() == session.RedirectToEntry {
		h.toEntry(w, r)
		return false
	}
	return true
}

// redirectOnAuth sends the user to the entry page after an auth failure.
// The session has already been cleared by the operation.
func (h *Handlers) redirectOnAuth(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.IsAuth(err) {
		return false
	}
	h.log.Info("session ended by service", zap.String("path", r.URL.Path))
	h.toEntry(w, r)
	return true
}

func (h *Handlers) toEntry(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		h.renderer.renderError(w, r, errors.NewUnauthorized(""))
		return
	}
	http.Redirect(w, r, pathWelcome, http.StatusSeeOther)
}

func (h *Handlers) username() string {
	return ops.Status(h.o).Username
}

func (h *Handlers) renderMain(w http.ResponseWriter, status int, ingredients, message string) {
	data := MainPageData{
		PageData:    h.renderer.page("Recipe generator", "main", h.username()),
		Ingredients: ingredients,
		Sample:      recipe.SampleIngredients,
		Generating:  h.o.InFlight(ops.KindGenerate),
	}
	data.Error = message
	if view, ok := h.o.Active(); ok && view.Source == ops.SourceGenerated {
		data.Current = h.recipeView(view.Recipe, view.Source)
	}
	h.renderer.renderPageStatus(w, status, "main", data)
}

func (h *Handlers) renderHistory(w http.ResponseWriter, status int, out *ops.HistoryOutput, message string) {
	data := HistoryPageData{
		PageData: h.renderer.page("History", "history", h.username()),
		Items:    out.Items,
	}
	data.Error = message
	if out.Selected != nil {
		data.Selected = h.recipeView(*out.Selected, ops.SourceHistory)
	}
	h.renderer.renderPageStatus(w, status, "history", data)
}

// renderFromPage re-renders the page a recipe action was posted from.
func (h *Handlers) renderFromPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	if wantsJSON(r) {
		renderJSON(w, status, map[string]any{"error": map[string]any{"message": message, "status": status}})
		return
	}
	if r.FormValue("from") == "history" {
		h.renderHistory(w, status, ops.History(h.o), message)
		return
	}
	h.renderMain(w, status, "", message)
}

func (h *Handlers) recipeView(r recipe.Recipe, source ops.Source) *RecipeView {
	v := newRecipeView(r, source)
	v.Calculating = h.o.InFlight(ops.KindRecalculate)
	v.Exporting = h.o.InFlight(ops.KindExport)
	return v
}

// targetOf returns the recipe a posted action was rendered for. Requests
// without a page act on the displayed recipe.
func targetOf(r *http.Request) *ops.Target {
	var source ops.Source
	switch r.FormValue("from") {
	case "main":
		source = ops.SourceGenerated
	case "history":
		source = ops.SourceHistory
	default:
		return nil
	}
	return &ops.Target{Source: source, ID: r.FormValue("id")}
}

// returnPath picks where a recipe action returns to. Only known pages are accepted.
func returnPath(r *http.Request) string {
	if r.FormValue("from") == "history" {
		if id := r.FormValue("id"); id != "" {
			return pathHistory + "?" + url.Values{"id": {id}}.Encode()
		}
		return pathHistory
	}
	return pathMain
}

// statusOf returns the HTTP status for err.
func statusOf(err error) int {
	var cErr *errors.ChefError
	if stderrors.As(err, &cErr) {
		return cErr.Status
	}
	return http.StatusInternalServerError
}
