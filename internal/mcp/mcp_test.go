package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/chefai/internal/api"
	"github.com/hpungsan/chefai/internal/config"
	"github.com/hpungsan/chefai/internal/errors"
	"github.com/hpungsan/chefai/internal/ops"
	"github.com/hpungsan/chefai/internal/recipe"
	"github.com/hpungsan/chefai/internal/session"
	"github.com/hpungsan/chefai/internal/store"
)

// stubService answers every call from canned data.
type stubService struct {
	history     []recipe.Raw
	generateErr error
}

func (s *stubService) Login(ctx context.Context, req api.LoginRequest) (session.Session, error) {
	if req.Password != "pw" {
		return session.Session{}, errors.NewRequestFailed(api.MsgLoginFailed, nil)
	}
	return session.Session{Credential: "tok", User: session.User{Username: req.Username}}, nil
}

func (s *stubService) Signup(ctx context.Context, req api.SignupRequest) (session.Session, error) {
	return session.Session{Credential: "tok", User: session.User{Username: req.Username}}, nil
}

func (s *stubService) FetchHistory(ctx context.Context) ([]recipe.Raw, error) {
	return s.history, nil
}

func (s *stubService) GenerateRecipe(ctx context.Context, ingredients string) (recipe.Raw, error) {
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	return recipe.ParseRaw([]byte(`{"id": 9, "title": "Omelette", "ingredients": ["egg"], "steps": ["Whisk", "Fry"]}`))
}

func (s *stubService) CalculateNutrition(ctx context.Context, ingredients []string, servings float64) (*recipe.Nutrition, error) {
	return &recipe.Nutrition{Calories: recipe.NumberScalar(180)}, nil
}

func (s *stubService) ExportRecipe(ctx context.Context, r recipe.Recipe) ([]byte, error) {
	return []byte("%PDF-1.4"), nil
}

func (s *stubService) CheckSession(ctx context.Context) (bool, error) {
	return true, nil
}

// testSetup creates an orchestrator over a stub service and an exports temp dir.
func testSetup(t *testing.T) (*ops.Orchestrator, *stubService, *config.Config) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.ExportsDir = t.TempDir()

	svc := &stubService{}
	guard := session.NewGuard(session.NewMemoryStorage(), nil)
	return ops.New(svc, guard, store.New(), cfg, nil), svc, cfg
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func signIn(t *testing.T, h *Handlers) {
	t.Helper()
	result, err := h.HandleSignIn(context.Background(), makeRequest(map[string]any{"username": "ana", "password": "pw"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	parseOutput(t, result)
}

// TestHandleSignIn tests the sign-in handler.
func TestHandleSignIn(t *testing.T) {
	o, _, _ := testSetup(t)
	h := NewHandlers(o)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name:      "missing password",
			args:      map[string]any{"username": "ana"},
			wantError: true,
			errorCode: "VALIDATION",
		},
		{
			name:      "unknown argument",
			args:      map[string]any{"username": "ana", "password": "pw", "remember": true},
			wantError: true,
			errorCode: "VALIDATION",
		},
		{
			name:      "wrong type",
			args:      map[string]any{"username": 42, "password": "pw"},
			wantError: true,
			errorCode: "VALIDATION",
		},
		{
			name:      "rejected by service",
			args:      map[string]any{"username": "ana", "password": "nope"},
			wantError: true,
			errorCode: "REQUEST_FAILED",
		},
		{
			name:      "valid credentials",
			args:      map[string]any{"username": "ana", "password": "pw"},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleSignIn(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
			} else if result.IsError {
				t.Errorf("expected success, got error: %v", extractErrorMessage(result))
			}
		})
	}

	if !o.Guard().IsAuthenticated() {
		t.Error("session not stored after successful sign-in")
	}
}

func TestHandleSignUp_InvalidEmail(t *testing.T) {
	o, _, _ := testSetup(t)
	h := NewHandlers(o)

	result, err := h.HandleSignUp(context.Background(), makeRequest(map[string]any{
		"username": "ana",
		"email":    "not-an-email",
		"password": "pw",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "VALIDATION")
	if o.Guard().IsAuthenticated() {
		t.Error("sign-up with invalid input must not start a session")
	}
}

func TestHandleStatusAndLogout(t *testing.T) {
	o, _, _ := testSetup(t)
	h := NewHandlers(o)
	ctx := context.Background()

	result, _ := h.HandleStatus(ctx, makeRequest(nil))
	if out := parseOutput(t, result); out["authenticated"] != false {
		t.Errorf("status before sign-in = %v", out)
	}

	signIn(t, h)
	result, _ = h.HandleStatus(ctx, makeRequest(nil))
	out := parseOutput(t, result)
	if out["authenticated"] != true || out["username"] != "ana" {
		t.Errorf("status after sign-in = %v", out)
	}

	result, _ = h.HandleLogout(ctx, makeRequest(nil))
	parseOutput(t, result)
	if o.Guard().IsAuthenticated() {
		t.Error("logout left the session in place")
	}
}

// TestRecipeTools_RequireSession checks that protected tools report
// UNAUTHORIZED before sign-in.
func TestRecipeTools_RequireSession(t *testing.T) {
	o, _, _ := testSetup(t)
	h := NewHandlers(o)
	ctx := context.Background()

	calls := map[string]func() (*mcp.CallToolResult, error){
		"recipe_generate": func() (*mcp.CallToolResult, error) {
			return h.HandleGenerate(ctx, makeRequest(map[string]any{"ingredients": "egg"}))
		},
		"recipe_recalculate_nutrition": func() (*mcp.CallToolResult, error) {
			return h.HandleRecalculate(ctx, makeRequest(nil))
		},
		"recipe_export": func() (*mcp.CallToolResult, error) {
			return h.HandleExport(ctx, makeRequest(nil))
		},
		"history_fetch": func() (*mcp.CallToolResult, error) {
			return h.HandleHistoryFetch(ctx, makeRequest(nil))
		},
		"history_select": func() (*mcp.CallToolResult, error) {
			return h.HandleHistorySelect(ctx, makeRequest(map[string]any{"id": "1"}))
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			result, err := call()
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			assertErrorCode(t, result, "UNAUTHORIZED")

			var payload map[string]any
			if err := json.Unmarshal([]byte(extractErrorMessage(result)), &payload); err != nil {
				t.Fatalf("failed to unmarshal error payload: %v", err)
			}
			errObj := payload["error"].(map[string]any)
			if errObj["action"] != "call session_sign_in" {
				t.Errorf("action = %v", errObj["action"])
			}
		})
	}
}

func TestRecipeTools_GenerateRecalculateExport(t *testing.T) {
	o, _, cfg := testSetup(t)
	h := NewHandlers(o)
	ctx := context.Background()
	signIn(t, h)

	// Nothing to show yet
	result, _ := h.HandleCurrent(ctx, makeRequest(nil))
	assertErrorCode(t, result, "NO_ACTIVE_RECIPE")

	result, _ = h.HandleGenerate(ctx, makeRequest(map[string]any{"ingredients": "   "}))
	assertErrorCode(t, result, "VALIDATION")

	result, _ = h.HandleGenerate(ctx, makeRequest(map[string]any{"ingredients": "egg, butter"}))
	gen := parseOutput(t, result)
	if gen["saved"] != true {
		t.Errorf("generate output = %v", gen)
	}

	result, _ = h.HandleCurrent(ctx, makeRequest(nil))
	cur := parseOutput(t, result)
	if cur["source"] != "generated" {
		t.Errorf("source = %v", cur["source"])
	}
	md, _ := cur["markdown"].(string)
	if md == "" || md[:2] != "# " {
		t.Errorf("markdown = %q", md)
	}

	result, _ = h.HandleRecalculate(ctx, makeRequest(nil))
	recalc := parseOutput(t, result)
	if recalc["applied"] != true {
		t.Errorf("recalculate output = %v", recalc)
	}

	result, _ = h.HandleExport(ctx, makeRequest(nil))
	exp := parseOutput(t, result)
	if exp["filename"] != "Omelette.pdf" {
		t.Errorf("filename = %v", exp["filename"])
	}
	if _, ok := exp["document"]; ok {
		t.Error("document bytes should not be returned")
	}
	path, _ := exp["path"].(string)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("exported file: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Errorf("exported content = %q", data)
	}
	if dir := cfg.ExportsDir; len(path) <= len(dir) || path[:len(dir)] != dir {
		t.Errorf("path %q not under %q", path, dir)
	}
}

func TestHistoryTools(t *testing.T) {
	o, svc, _ := testSetup(t)
	h := NewHandlers(o)
	ctx := context.Background()
	signIn(t, h)

	for _, s := range []string{`{"id": 1, "title": "A"}`, `{"id": 2, "title": "B"}`} {
		raw, err := recipe.ParseRaw([]byte(s))
		if err != nil {
			t.Fatal(err)
		}
		svc.history = append(svc.history, raw)
	}

	result, _ := h.HandleHistoryFetch(ctx, makeRequest(nil))
	out := parseOutput(t, result)
	items := out["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	selected := out["selected"].(map[string]any)
	if selected["title"] != "A" {
		t.Errorf("selected = %v, want first entry", selected["title"])
	}

	result, _ = h.HandleHistorySelect(ctx, makeRequest(map[string]any{"id": "2"}))
	out = parseOutput(t, result)
	if out["selected"].(map[string]any)["title"] != "B" {
		t.Errorf("selected after select = %v", out["selected"])
	}

	result, _ = h.HandleHistorySelect(ctx, makeRequest(map[string]any{"id": "99"}))
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestServerRegistration(t *testing.T) {
	o, _, cfg := testSetup(t)

	s := NewServer(o, cfg, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"session_sign_in",
		"session_sign_up",
		"session_logout",
		"session_status",
		"recipe_generate",
		"recipe_current",
		"recipe_recalculate_nutrition",
		"recipe_export",
		"history_fetch",
		"history_select",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	o, _, cfg := testSetup(t)

	cfg.DisabledTools = []string{"recipe_export", "session_sign_up"}
	s := NewServer(o, cfg, "test")
	tools := s.ListTools()

	if len(tools) != 8 {
		t.Errorf("registered tool count = %d, want 8", len(tools))
	}
	for _, name := range cfg.DisabledTools {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	if _, ok := tools["recipe_generate"]; !ok {
		t.Error("recipe_generate should be registered")
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	o, _, cfg := testSetup(t)

	cfg.DisabledTools = AllToolNames()
	s := NewServer(o, cfg, "test")

	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"recipe_export", "history_fetch"}, 0},
		{"one unknown", []string{"recipe_export", "fake_tool"}, 1},
		{"all unknown", []string{"foo", "bar", "baz"}, 3},
		{"empty list", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Errorf("AllToolNames() returned %d names, want %d", len(names), len(toolRegistry))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("AllToolNames() not sorted: %v", names)
			break
		}
	}
	for name, entry := range toolRegistry {
		if entry.def.Name != name {
			t.Errorf("registry key %q has definition named %q", name, entry.def.Name)
		}
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedError(t *testing.T) {
	r := errorResult(fmt.Errorf("select: %w", errors.NewNotFound("7")))

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Error("expected non-INTERNAL errors to include details when present")
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	r := errorResult(fmt.Errorf("boom"))
	assertErrorCode(t, r, string(errors.ErrInternal))
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error result, got success")
		return
	}
	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}

	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}

	code, ok := errorObj["code"].(string)
	if !ok {
		t.Errorf("no code in error object")
		return
	}

	if code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
