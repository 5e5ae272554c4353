package tooling

import (
	"context"
	"encoding/json"

	"github.com/rizrmd/claystudio/internal/model"
	"github.com/rizrmd/claystudio/internal/store"
)

// --- analysis_run ---

type analysisRunTool struct{ stores *store.Stores }

func (t *analysisRunTool) Name() string { return "analysis_run" }
func (t *analysisRunTool) Description() string {
	return "Enqueue a pending run of an Analysis script; AJS picks it up on its next poll."
}
func (t *analysisRunTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["analysis_id"],"properties":{"analysis_id":{"type":"string"},"parameters":{"type":"object"}}}`)
}
func (t *analysisRunTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		AnalysisID string          `json:"analysis_id"`
		Parameters json.RawMessage `json:"parameters"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	analysis, err := t.stores.Analyses.Get(ctx, params.AnalysisID)
	if err != nil {
		return errResultFrom(err)
	}
	scope := ScopeFromCtx(ctx)
	if analysis.ProjectID != scope.ProjectID {
		return errResultFrom(model.NewError(model.ErrForbidden, "analysis does not belong to this project"))
	}
	job := &model.AnalysisJob{
		AnalysisID:  analysis.ID,
		Parameters:  params.Parameters,
		TriggeredBy: model.TriggeredManual,
	}
	if err := t.stores.AnalysisJobs.Create(ctx, job); err != nil {
		return errResultFrom(err)
	}
	return NewResult("analysis job queued").WithData(map[string]any{"job_id": job.ID, "status": job.Status})
}

// --- analysis_status ---

type analysisStatusTool struct{ stores *store.Stores }

func (t *analysisStatusTool) Name() string        { return "analysis_status" }
func (t *analysisStatusTool) Description() string { return "Return an AnalysisJob's status, and its result or error if finished." }
func (t *analysisStatusTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["job_id"],"properties":{"job_id":{"type":"string"}}}`)
}
func (t *analysisStatusTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	job, err := t.stores.AnalysisJobs.Get(ctx, params.JobID)
	if err != nil {
		return errResultFrom(err)
	}
	scope := ScopeFromCtx(ctx)
	analysis, err := t.stores.Analyses.Get(ctx, job.AnalysisID)
	if err != nil {
		return errResultFrom(err)
	}
	if analysis.ProjectID != scope.ProjectID {
		return errResultFrom(model.NewError(model.ErrForbidden, "analysis job does not belong to this project"))
	}
	return NewResult(string(job.Status)).WithData(job)
}
