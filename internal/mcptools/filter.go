package mcptools

import "strings"

// ToolFilter decides which tools the MCP server exposes. It is built from
// the DREAMTEAM_ENABLED_TOOLS environment variable: a comma-separated
// allowlist of tool names, where an empty value enables everything.
type ToolFilter struct {
	allowed map[string]bool
}

// NewToolFilter parses a comma-separated allowlist. Whitespace around names
// is ignored; an empty or all-whitespace spec allows every tool.
func NewToolFilter(spec string) *ToolFilter {
	f := &ToolFilter{}
	for _, name := range strings.Split(spec, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if f.allowed == nil {
			f.allowed = make(map[string]bool)
		}
		f.allowed[name] = true
	}
	return f
}

// Enabled reports whether the named tool should be registered
func (f *ToolFilter) Enabled(name string) bool {
	if f.allowed == nil {
		return true
	}
	return f.allowed[name]
}
