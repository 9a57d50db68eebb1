// internal/mcp/tools.go
package mcp

import (
	"context"
	"fmt"

	"github.com/taskhub/taskhub/internal/coordinator"
)

// ToolHandler processes a tool call and returns its result
type ToolHandler func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error)

// ToolRegistry manages available agent tools
type ToolRegistry struct {
	tools map[string]ToolDefinition
	order []string
}

// ToolDefinition describes one agent tool
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]ParameterDef
	Handler     ToolHandler
}

// ParameterDef describes a tool parameter
type ParameterDef struct {
	Type        string
	Description string
	Required    bool
}

// NewToolRegistry creates an empty registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]ToolDefinition),
	}
}

// Register adds a tool to the registry
func (r *ToolRegistry) Register(tool ToolDefinition) {
	if _, ok := r.tools[tool.Name]; !ok {
		r.order = append(r.order, tool.Name)
	}
	r.tools[tool.Name] = tool
}

// Get returns a tool by name
func (r *ToolRegistry) Get(name string) (ToolDefinition, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns tool schemas in registration order (for tools/list)
func (r *ToolRegistry) List() []map[string]interface{} {
	var tools []map[string]interface{}
	for _, name := range r.order {
		tool := r.tools[name]
		params := make(map[string]interface{})
		required := []string{}

		for pname, def := range tool.Parameters {
			params[pname] = map[string]interface{}{
				"type":        def.Type,
				"description": def.Description,
			}
			if def.Required {
				required = append(required, pname)
			}
		}

		tools = append(tools, map[string]interface{}{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": map[string]interface{}{
				"type":       "object",
				"properties": params,
				"required":   required,
			},
		})
	}
	return tools
}

// Execute runs a tool by name
func (r *ToolRegistry) Execute(ctx context.Context, name string, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return tool.Handler(ctx, id, args)
}

// argument helpers; JSON numbers arrive as float64

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func boolArg(args map[string]interface{}, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intMapArg(args map[string]interface{}, key string) map[string]int {
	raw, ok := args[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]int, len(raw))
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			out[k] = int(f)
		}
	}
	return out
}
