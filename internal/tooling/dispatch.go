package tooling

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rizrmd/claystudio/internal/store"
)

// ToolUse is what the LLM child emits for one tool invocation: the
// stable, LLM-provided id is the join key between the streaming
// ToolUse/ToolComplete event pair and the persisted tool_usage row.
type ToolUse struct {
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
	ID    string          `json:"id"`
}

// ToolComplete is the outcome TRD hands back to the Agent Streaming
// Engine after running a tool, for it to both feed into the LLM's
// context and emit as a ToolComplete event.
type ToolComplete struct {
	ToolName        string `json:"tool"`
	ToolUseID       string `json:"tool_use_id"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	Output          string `json:"output"`
	IsError         bool   `json:"is_error"`
}

// Dispatcher runs the 4-step contract: write parameters, run the
// handler, fill output, return the result for replay.
type Dispatcher struct {
	registry   *Registry
	toolUsages store.ToolUsageStore
	log        *slog.Logger
}

func NewDispatcher(registry *Registry, toolUsages store.ToolUsageStore, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{registry: registry, toolUsages: toolUsages, log: log}
}

// Dispatch refuses to run any tool for which Scope.ClientID or
// Scope.ProjectID is empty — every invocation executes under the
// (client_id, project_id) pair the turn was spawned with.
func (d *Dispatcher) Dispatch(ctx context.Context, messageID string, use ToolUse) ToolComplete {
	scope := ScopeFromCtx(ctx)
	if scope.ClientID == "" || scope.ProjectID == "" {
		return d.errComplete(use, "tool dispatched without an authorization scope")
	}

	if err := d.toolUsages.WriteParameters(ctx, messageID, use.ID, use.Name, use.Input); err != nil {
		d.log.Error("tooling: write tool_usage parameters failed", "tool_use_id", use.ID, "error", err)
	}

	tool, ok := d.registry.Get(use.Name)
	if !ok {
		return d.finish(ctx, use, &Result{ForLLM: "unknown tool: " + use.Name, IsError: true}, 0)
	}

	start := time.Now()
	result := tool.Execute(ctx, use.Input)
	elapsed := time.Since(start).Milliseconds()

	return d.finish(ctx, use, result, elapsed)
}

func (d *Dispatcher) finish(ctx context.Context, use ToolUse, result *Result, elapsedMs int64) ToolComplete {
	if result == nil {
		result = ErrorResult("tool returned no result")
	}
	output, _ := json.Marshal(result)
	if err := d.toolUsages.FillOutput(ctx, use.ID, output, elapsedMs); err != nil {
		d.log.Error("tooling: fill tool_usage output failed", "tool_use_id", use.ID, "error", err)
	}
	return ToolComplete{
		ToolName:        use.Name,
		ToolUseID:       use.ID,
		ExecutionTimeMs: elapsedMs,
		Output:          result.ForLLM,
		IsError:         result.IsError,
	}
}

func (d *Dispatcher) errComplete(use ToolUse, msg string) ToolComplete {
	return ToolComplete{ToolName: use.Name, ToolUseID: use.ID, Output: msg, IsError: true}
}
