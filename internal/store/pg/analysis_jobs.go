package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/rizrmd/claystudio/internal/model"
)

type AnalysisJobStore struct{ db *sql.DB }

func NewAnalysisJobStore(db *sql.DB) *AnalysisJobStore { return &AnalysisJobStore{db: db} }

const jobCols = `id, analysis_id, status, parameters, result, error_message, started_at, completed_at, execution_time_ms, triggered_by, created_at`

func scanJob(row interface{ Scan(...any) error }) (*model.AnalysisJob, error) {
	var j model.AnalysisJob
	err := row.Scan(&j.ID, &j.AnalysisID, &j.Status, &j.Parameters, &j.Result, &j.ErrorMessage,
		&j.StartedAt, &j.CompletedAt, &j.ExecutionTimeMs, &j.TriggeredBy, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *AnalysisJobStore) Create(ctx context.Context, job *model.AnalysisJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = model.JobPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_jobs (id, analysis_id, status, parameters, triggered_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		job.ID, job.AnalysisID, job.Status, job.Parameters, job.TriggeredBy)
	if err != nil {
		return model.Wrap(model.ErrInternal, "create analysis job", err)
	}
	return nil
}

func (s *AnalysisJobStore) Get(ctx context.Context, id string) (*model.AnalysisJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobCols+` FROM analysis_jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "analysis job not found")
	}
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "get analysis job", err)
	}
	return j, nil
}

// ClaimPending transitions up to limit pending jobs to running with a
// single UPDATE ... RETURNING — no separate select-then-update race
// window for concurrent workers.
func (s *AnalysisJobStore) ClaimPending(ctx context.Context, limit int) ([]*model.AnalysisJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`UPDATE analysis_jobs SET status = 'running', started_at = NOW()
		 WHERE id IN (
		   SELECT id FROM analysis_jobs WHERE status = 'pending'
		   ORDER BY created_at LIMIT $1 FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+jobCols, limit)
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "claim pending jobs", err)
	}
	defer rows.Close()

	var out []*model.AnalysisJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, model.Wrap(model.ErrInternal, "scan claimed job", err)
		}
		out = append(out, j)
	}
	return out, nil
}

// Complete sets result xor error_message — callers must never call both
// Complete and Fail for the same job.
func (s *AnalysisJobStore) Complete(ctx context.Context, id string, result []byte, executionTimeMs int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE analysis_jobs SET status = 'completed', result = $1, execution_time_ms = $2, completed_at = NOW()
		 WHERE id = $3`, result, executionTimeMs, id)
	if err != nil {
		return model.Wrap(model.ErrInternal, "complete analysis job", err)
	}
	return nil
}

func (s *AnalysisJobStore) Fail(ctx context.Context, id string, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE analysis_jobs SET status = 'failed', error_message = $1, completed_at = NOW() WHERE id = $2`,
		errMsg, id)
	if err != nil {
		return model.Wrap(model.ErrInternal, "fail analysis job", err)
	}
	return nil
}

func (s *AnalysisJobStore) Cancel(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE analysis_jobs SET status = 'cancelled', completed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return model.Wrap(model.ErrInternal, "cancel analysis job", err)
	}
	return nil
}
