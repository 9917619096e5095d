package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/chefai/internal/config"
	"github.com/hpungsan/chefai/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"session_sign_in": {
		def:     signInToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSignIn },
	},
	"session_sign_up": {
		def:     signUpToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSignUp },
	},
	"session_logout": {
		def:     logoutToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogout },
	},
	"session_status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"recipe_generate": {
		def:     generateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGenerate },
	},
	"recipe_current": {
		def:     currentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCurrent },
	},
	"recipe_recalculate_nutrition": {
		def:     recalculateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecalculate },
	},
	"recipe_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"history_fetch": {
		def:     historyFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistoryFetch },
	},
	"history_select": {
		def:     historySelectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistorySelect },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the recipe tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(o *ops.Orchestrator, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"chefai",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(o)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(o *ops.Orchestrator, cfg *config.Config, version string) error {
	s := NewServer(o, cfg, version)
	return server.ServeStdio(s)
}
