package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/chefai/internal/errors"
	"github.com/hpungsan/chefai/internal/ops"
	"github.com/hpungsan/chefai/internal/recipe"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	o *ops.Orchestrator
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(o *ops.Orchestrator) *Handlers {
	return &Handlers{o: o}
}

// SignInRequest represents the arguments for session_sign_in.
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignUpRequest represents the arguments for session_sign_up.
type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GenerateRequest represents the arguments for recipe_generate.
type GenerateRequest struct {
	Ingredients string `json:"ingredients"`
}

// SelectRequest represents the arguments for history_select.
type SelectRequest struct {
	ID string `json:"id"`
}

type empty struct{}

// CurrentResponse is the recipe_current result.
type CurrentResponse struct {
	Source   ops.Source    `json:"source"`
	Recipe   recipe.Recipe `json:"recipe"`
	Markdown string        `json:"markdown"`
}

// HandleSignIn handles the session_sign_in tool call.
func (h *Handlers) HandleSignIn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SignInRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	result, err := ops.SignIn(ctx, h.o, ops.SignInInput{Username: input.Username, Password: input.Password})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSignUp handles the session_sign_up tool call.
func (h *Handlers) HandleSignUp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SignUpRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	result, err := ops.SignUp(ctx, h.o, ops.SignUpInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleLogout handles the session_logout tool call.
func (h *Handlers) HandleLogout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := decode[empty](req); err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	result, err := ops.Logout(h.o)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStatus handles the session_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := decode[empty](req); err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	return successResult(ops.Status(h.o))
}

// HandleGenerate handles the recipe_generate tool call.
func (h *Handlers) HandleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GenerateRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	result, err := ops.Generate(ctx, h.o, ops.GenerateInput{Ingredients: input.Ingredients})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCurrent handles the recipe_current tool call.
func (h *Handlers) HandleCurrent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := decode[empty](req); err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	view, ok := h.o.Active()
	if !ok {
		return errorResult(errors.NewNoActiveRecipe()), nil
	}
	return successResult(CurrentResponse{
		Source:   view.Source,
		Recipe:   view.Recipe,
		Markdown: view.Recipe.Markdown(),
	})
}

// HandleRecalculate handles the recipe_recalculate_nutrition tool call.
func (h *Handlers) HandleRecalculate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := decode[empty](req); err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	result, err := ops.RecalculateNutrition(ctx, h.o, ops.RecalculateInput{})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the recipe_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := decode[empty](req); err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	result, err := ops.ExportDocument(ctx, h.o, ops.ExportInput{Save: true})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistoryFetch handles the history_fetch tool call.
func (h *Handlers) HandleHistoryFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := decode[empty](req); err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	result, err := ops.EnterHistory(ctx, h.o)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistorySelect handles the history_select tool call.
func (h *Handlers) HandleHistorySelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SelectRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	result, err := ops.SelectHistory(h.o, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult creates an MCP error result from any error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var chefErr *errors.ChefError
	if stderrors.As(err, &chefErr) {
		errorObj := map[string]any{
			"code":    chefErr.Code,
			"message": chefErr.Message,
			"status":  chefErr.Status,
		}
		// Internal details can carry file paths or driver errors
		if chefErr.Code != errors.ErrInternal && len(chefErr.Details) > 0 {
			errorObj["details"] = chefErr.Details
		}
		if chefErr.Code == errors.ErrUnauthorized {
			errorObj["action"] = "call session_sign_in"
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
