// Package tooling is the Tool Registry & Dispatcher (TRD): a closed set
// of named tools with JSON-schema parameters, invoked by the Agent
// Streaming Engine on behalf of a running turn, persisted via a
// write-then-fill discipline keyed by the LLM-provided tool_use_id.
package tooling

import "encoding/json"

// Result is the unified return type from a tool handler.
type Result struct {
	ForLLM  string          `json:"for_llm"`
	ForUser string          `json:"for_user,omitempty"`
	Silent  bool            `json:"silent"`
	IsError bool            `json:"is_error"`
	Data    json.RawMessage `json:"data,omitempty"`
	Err     error           `json:"-"`
}

func NewResult(forLLM string) *Result {
	return &Result{ForLLM: forLLM}
}

func SilentResult(forLLM string) *Result {
	return &Result{ForLLM: forLLM, Silent: true}
}

func ErrorResult(message string) *Result {
	return &Result{ForLLM: message, IsError: true}
}

func UserResult(content string) *Result {
	return &Result{ForLLM: content, ForUser: content}
}

func (r *Result) WithError(err error) *Result {
	r.Err = err
	r.IsError = true
	if r.ForLLM == "" {
		r.ForLLM = err.Error()
	}
	return r
}

func (r *Result) WithData(v any) *Result {
	b, err := json.Marshal(v)
	if err != nil {
		return r.WithError(err)
	}
	r.Data = b
	return r
}
