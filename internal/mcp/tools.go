package mcp

import "github.com/mark3labs/mcp-go/mcp"

var signInToolDef = mcp.NewTool("session_sign_in",
	mcp.WithDescription("Sign in to the recipe service. Stores the session for later calls."),
	mcp.WithString("username", mcp.Required(), mcp.Description("Account username")),
	mcp.WithString("password", mcp.Required(), mcp.Description("Account password")),
)

var signUpToolDef = mcp.NewTool("session_sign_up",
	mcp.WithDescription("Register a new account and sign in with it."),
	mcp.WithString("username", mcp.Required(), mcp.Description("Desired username")),
	mcp.WithString("email", mcp.Required(), mcp.Description("Email address")),
	mcp.WithString("password", mcp.Required(), mcp.Description("Password")),
)

var logoutToolDef = mcp.NewTool("session_logout",
	mcp.WithDescription("Sign out and forget the stored session."),
)

var statusToolDef = mcp.NewTool("session_status",
	mcp.WithDescription("Report whether a session is stored and for which user. Does not contact the service."),
)

var generateToolDef = mcp.NewTool("recipe_generate",
	mcp.WithDescription("Generate a recipe from the ingredients on hand. The result becomes the current recipe."),
	mcp.WithString("ingredients", mcp.Required(),
		mcp.Description("Comma-separated ingredients, e.g. \"chicken breast, broccoli, rice\"")),
)

var currentToolDef = mcp.NewTool("recipe_current",
	mcp.WithDescription("Return the current recipe (last generated, or selected from history) with a markdown rendering."),
)

var recalculateToolDef = mcp.NewTool("recipe_recalculate_nutrition",
	mcp.WithDescription("Ask the service for a fresh nutrition estimate for the current recipe and update it in place."),
)

var exportToolDef = mcp.NewTool("recipe_export",
	mcp.WithDescription("Export the current recipe as a PDF document saved in the exports directory."),
)

var historyFetchToolDef = mcp.NewTool("history_fetch",
	mcp.WithDescription("Load previously generated recipes. The first one becomes the current recipe."),
)

var historySelectToolDef = mcp.NewTool("history_select",
	mcp.WithDescription("Make a history entry the current recipe. Call history_fetch first."),
	mcp.WithString("id", mcp.Required(), mcp.Description("History entry id")),
)
