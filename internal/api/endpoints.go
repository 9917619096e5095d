package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/errors"
	"github.com/hpungsan/chefai/internal/recipe"
	"github.com/hpungsan/chefai/internal/session"
)

// User-facing failure messages, used when the service sends none.
const (
	MsgLoginFailed        = "Login failed"
	MsgSignupFailed       = "Registration failed"
	MsgHistoryFailed      = "Failed to load history"
	MsgGenerateFailed     = "Failed to generate recipe"
	MsgNutritionFailed    = "Failed to recalculate nutrition"
	MsgExportFailed       = "Failed to export PDF"
	MsgCheckSessionFailed = "Failed to check session"
)

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupRequest is the registration payload.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authData struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, req LoginRequest) (session.Session, error) {
	return c.authenticate(ctx, "/api/login", req, MsgLoginFailed)
}

// Signup registers a user and returns the session the service opens for it.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (session.Session, error) {
	return c.authenticate(ctx, "/api/signup", req, MsgSignupFailed)
}

func (c *Client) authenticate(ctx context.Context, path string, body any, failMsg string) (session.Session, error) {
	data, err := c.call(ctx, http.MethodPost, path, body, failMsg)
	if err != nil {
		// Wrong credentials on the auth endpoints are not a session expiry
		if errors.IsAuth(err) {
			return session.Session{}, errors.NewRequestFailed(firstNonEmpty(errors.Message(err), failMsg), err)
		}
		return session.Session{}, err
	}

	var out authData
	if err := json.Unmarshal(data, &out); err != nil {
		return session.Session{}, errors.NewRequestFailed(failMsg, fmt.Errorf("decode auth data: %w", err))
	}
	if strings.TrimSpace(out.Token) == "" {
		return session.Session{}, errors.NewRequestFailed(failMsg, fmt.Errorf("service returned no token"))
	}
	return session.Session{Credential: out.Token, User: out.User}, nil
}

// FetchHistory returns the user's persisted recipes in service order.
// Entries that are not JSON objects are skipped.
func (c *Client) FetchHistory(ctx context.Context) ([]recipe.Raw, error) {
	data, err := c.call(ctx, http.MethodGet, "/api/history", nil, MsgHistoryFailed)
	if err != nil {
		return nil, err
	}

	t := bytes.TrimSpace(data)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return []recipe.Raw{}, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(t, &elems); err != nil {
		return nil, errors.NewRequestFailed(MsgHistoryFailed, fmt.Errorf("history is not a list: %w", err))
	}

	out := make([]recipe.Raw, 0, len(elems))
	for i, e := range elems {
		raw, err := recipe.ParseRaw(e)
		if err != nil {
			c.logger.Warn("skipping history entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

type generateRequest struct {
	Ingredients string `json:"ingredients"`
}

// GenerateRecipe asks the service for a recipe from free-text ingredients.
func (c *Client) GenerateRecipe(ctx context.Context, ingredients string) (recipe.Raw, error) {
	data, err := c.call(ctx, http.MethodPost, "/api/generate_recipe", generateRequest{Ingredients: ingredients}, MsgGenerateFailed)
	if err != nil {
		return nil, err
	}
	raw, err := recipe.ParseRaw(data)
	if err != nil {
		return nil, errors.NewRequestFailed(MsgGenerateFailed, err)
	}
	return raw, nil
}

type nutritionRequest struct {
	Ingredients []string `json:"ingredients"`
	Servings    float64  `json:"servings"`
}

type nutritionData struct {
	Nutrition json.RawMessage `json:"nutrition"`
}

// CalculateNutrition returns a fresh nutrition estimate for the ingredients.
func (c *Client) CalculateNutrition(ctx context.Context, ingredients []string, servings float64) (*recipe.Nutrition, error) {
	if ingredients == nil {
		ingredients = []string{}
	}
	data, err := c.call(ctx, http.MethodPost, "/api/calculate_nutrition",
		nutritionRequest{Ingredients: ingredients, Servings: servings}, MsgNutritionFailed)
	if err != nil {
		return nil, err
	}

	var out nutritionData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.NewRequestFailed(MsgNutritionFailed, fmt.Errorf("decode nutrition data: %w", err))
	}
	n := recipe.NormalizeNutrition(out.Nutrition)
	if n == nil {
		return nil, errors.NewRequestFailed(MsgNutritionFailed, fmt.Errorf("service returned no usable nutrition"))
	}
	return n, nil
}

// ExportRecipe posts the normalized recipe and returns the rendered document.
func (c *Client) ExportRecipe(ctx context.Context, r recipe.Recipe) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/export_pdf", r)
	if err != nil {
		return nil, errors.NewRequestFailed(MsgExportFailed, err)
	}
	req.Header.Set("Accept", "application/pdf")

	status, contentType, body, err := c.do(req, MsgExportFailed)
	if err != nil {
		return nil, err
	}

	// Errors come back as the JSON envelope instead of a document
	var env envelope
	isJSON := strings.HasPrefix(contentType, "application/json")
	if isJSON || status >= 400 {
		_ = json.Unmarshal(body, &env)
	}
	if err := c.statusError(status, env.Message, body, MsgExportFailed); err != nil {
		return nil, err
	}
	if isJSON && !env.Success {
		return nil, errors.NewRequestFailed(firstNonEmpty(env.Message, MsgExportFailed), nil)
	}
	if len(body) == 0 {
		return nil, errors.NewRequestFailed(MsgExportFailed, fmt.Errorf("empty document"))
	}
	return body, nil
}

type checkSessionData struct {
	LoggedIn *bool `json:"logged_in"`
}

// CheckSession asks the service whether the stored credential is still valid.
func (c *Client) CheckSession(ctx context.Context) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/check_session", nil)
	if err != nil {
		return false, errors.NewRequestFailed(MsgCheckSessionFailed, err)
	}
	status, _, body, err := c.do(req, MsgCheckSessionFailed)
	if err != nil {
		return false, err
	}

	var env struct {
		envelope
		checkSessionData
	}
	decodeErr := json.Unmarshal(body, &env)
	if err := c.statusError(status, env.Message, body, MsgCheckSessionFailed); err != nil {
		return false, err
	}
	if decodeErr != nil {
		return false, errors.NewRequestFailed(MsgCheckSessionFailed, decodeErr)
	}

	// logged_in may be top-level or inside data
	if env.LoggedIn != nil {
		return *env.LoggedIn, nil
	}
	var data checkSessionData
	if err := json.Unmarshal(env.Data, &data); err == nil && data.LoggedIn != nil {
		return *data.LoggedIn, nil
	}
	return false, errors.NewRequestFailed(MsgCheckSessionFailed, fmt.Errorf("response has no logged_in"))
}
