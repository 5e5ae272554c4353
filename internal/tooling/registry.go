package tooling

import (
	"context"
	"encoding/json"
)

// Tool is one entry in the closed tool set: datasource, schema, file,
// context, analysis and excel-export tools all implement this.
type Tool interface {
	Name() string
	Description() string
	// ParametersSchema is a JSON Schema object describing Execute's input.
	ParametersSchema() json.RawMessage
	Execute(ctx context.Context, input json.RawMessage) *Result
}

// Registry is the closed, typed tool set TRD dispatches against.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// ToolDefinition is what gets sent to the LLM child process describing
// an available tool.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

func (r *Registry) Definitions() []ToolDefinition {
	tools := r.List()
	defs := make([]ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.ParametersSchema(),
		})
	}
	return defs
}
