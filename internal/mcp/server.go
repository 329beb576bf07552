package mcp

import (
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"vocab", "flashcard"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"vocab_process": {
		def:     processToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProcess },
	},
	"vocab_confirm": {
		def:     confirmToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConfirm },
	},
	"vocab_detect": {
		def:     detectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDetect },
	},
	"flashcard_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"flashcard_count": {
		def:     countToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCount },
	},
	"flashcard_clear": {
		def:     clearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClear },
	},
	"flashcard_audit": {
		def:     auditToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAudit },
	},
	"flashcard_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"flashcard_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"flashcard_upload": {
		def:     uploadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpload },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
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

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "flashcard_list" → "flashcard").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with Tango tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(pipeline *ops.Pipeline, cfg *config.Config, log *slog.Logger, version string) *server.MCPServer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}

	s := server.NewMCPServer(
		"tango",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	h := NewHandlers(pipeline, cfg)

	for _, name := range ValidateDisabledTools(cfg.DisabledTools) {
		log.Warn("mcp.disabled_tools.unknown", "tool", name)
	}
	for _, name := range ValidateDisabledTypes(cfg.DisabledTypes) {
		log.Warn("mcp.disabled_types.unknown", "type", name)
	}

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
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
func Run(pipeline *ops.Pipeline, cfg *config.Config, log *slog.Logger, version string) error {
	s := NewServer(pipeline, cfg, log, version)
	return server.ServeStdio(s)
}
