package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rizrmd/claystudio/internal/model"
)

type AnalysisResultStore struct{ db *sql.DB }

func NewAnalysisResultStore(db *sql.DB) *AnalysisResultStore { return &AnalysisResultStore{db: db} }

func (s *AnalysisResultStore) Save(ctx context.Context, r *model.AnalysisResultStorage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_result_storage (job_id, storage_path, size_bytes, checksum)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (job_id) DO UPDATE SET storage_path = EXCLUDED.storage_path, size_bytes = EXCLUDED.size_bytes, checksum = EXCLUDED.checksum`,
		r.JobID, r.StoragePath, r.SizeBytes, r.Checksum)
	if err != nil {
		return model.Wrap(model.ErrInternal, "save analysis result storage", err)
	}
	return nil
}

func (s *AnalysisResultStore) Get(ctx context.Context, jobID string) (*model.AnalysisResultStorage, error) {
	var r model.AnalysisResultStorage
	err := s.db.QueryRowContext(ctx,
		`SELECT job_id, storage_path, size_bytes, checksum FROM analysis_result_storage WHERE job_id = $1`, jobID,
	).Scan(&r.JobID, &r.StoragePath, &r.SizeBytes, &r.Checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "analysis result not found")
	}
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "get analysis result storage", err)
	}
	return &r, nil
}

// DeleteOlderThan joins analysis_jobs to find results whose job completed
// before cutoff, deletes the rows, and returns them so the caller can
// remove the backing files from disk.
func (s *AnalysisResultStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]*model.AnalysisResultStorage, error) {
	rows, err := s.db.QueryContext(ctx,
		`DELETE FROM analysis_result_storage
		 WHERE job_id IN (
		   SELECT j.id FROM analysis_jobs j
		   WHERE j.completed_at IS NOT NULL AND j.completed_at < $1
		 )
		 RETURNING job_id, storage_path, size_bytes, checksum`, cutoff)
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "delete old analysis results", err)
	}
	defer rows.Close()

	var out []*model.AnalysisResultStorage
	for rows.Next() {
		var r model.AnalysisResultStorage
		if err := rows.Scan(&r.JobID, &r.StoragePath, &r.SizeBytes, &r.Checksum); err != nil {
			return nil, model.Wrap(model.ErrInternal, "scan deleted analysis result", err)
		}
		out = append(out, &r)
	}
	return out, nil
}
