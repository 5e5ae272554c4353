package tooling

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rizrmd/claystudio/internal/contextdoc"
	"github.com/rizrmd/claystudio/internal/store"
)

// --- context_read ---

type contextReadTool struct {
	stores   *store.Stores
	compiler *contextdoc.Compiler
}

func (t *contextReadTool) Name() string        { return "context_read" }
func (t *contextReadTool) Description() string { return "Return the project's compiled context, recompiling if stale." }
func (t *contextReadTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}
func (t *contextReadTool) Execute(ctx context.Context, _ json.RawMessage) *Result {
	scope := ScopeFromCtx(ctx)
	proj, err := t.stores.Projects.Get(ctx, scope.ProjectID)
	if err != nil {
		return errResultFrom(err)
	}

	stale := proj.ContextCompiledAt == nil || t.compiler.IsStale(*proj.ContextCompiledAt)
	if !stale {
		return UserResult(proj.ContextCompiled)
	}

	compiled, err := t.compiler.Compile(ctx, proj.ID, proj.Context)
	if err != nil {
		return errResultFrom(err)
	}
	now := time.Now().UTC()
	if err := t.stores.Projects.UpdateCompiledContext(ctx, proj.ID, compiled, now); err != nil {
		return errResultFrom(err)
	}
	return UserResult(compiled)
}

// --- context_update ---

type contextUpdateTool struct{ stores *store.Stores }

func (t *contextUpdateTool) Name() string { return "context_update" }
func (t *contextUpdateTool) Description() string {
	return "Replace the project's raw markdown context, invalidating the compiled cache."
}
func (t *contextUpdateTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["context"],"properties":{"context":{"type":"string"}}}`)
}
func (t *contextUpdateTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		Context string `json:"context"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	scope := ScopeFromCtx(ctx)
	if err := t.stores.Projects.UpdateContext(ctx, scope.ProjectID, params.Context); err != nil {
		return errResultFrom(err)
	}
	return SilentResult("context updated")
}

// --- context_compile ---

type contextCompileTool struct {
	stores   *store.Stores
	compiler *contextdoc.Compiler
}

func (t *contextCompileTool) Name() string { return "context_compile" }
func (t *contextCompileTool) Description() string {
	return "Force-recompile the project's context now, regardless of the TTL cache."
}
func (t *contextCompileTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}
func (t *contextCompileTool) Execute(ctx context.Context, _ json.RawMessage) *Result {
	scope := ScopeFromCtx(ctx)
	proj, err := t.stores.Projects.Get(ctx, scope.ProjectID)
	if err != nil {
		return errResultFrom(err)
	}
	compiled, err := t.compiler.Compile(ctx, proj.ID, proj.Context)
	if err != nil {
		return errResultFrom(err)
	}
	now := time.Now().UTC()
	if err := t.stores.Projects.UpdateCompiledContext(ctx, proj.ID, compiled, now); err != nil {
		return errResultFrom(err)
	}
	return UserResult(compiled)
}
