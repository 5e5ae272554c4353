package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/rizrmd/claystudio/internal/model"
)

type AnalysisStore struct{ db *sql.DB }

func NewAnalysisStore(db *sql.DB) *AnalysisStore { return &AnalysisStore{db: db} }

func (s *AnalysisStore) Get(ctx context.Context, id string) (*model.Analysis, error) {
	var a model.Analysis
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, script_content, version, is_active, metadata, created_at, updated_at
		 FROM analyses WHERE id = $1`, id,
	).Scan(&a.ID, &a.ProjectID, &a.Name, &a.ScriptContent, &a.Version, &a.IsActive, &a.Metadata, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "analysis not found")
	}
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "get analysis", err)
	}
	return &a, nil
}

func (s *AnalysisStore) ListByProject(ctx context.Context, projectID string) ([]*model.Analysis, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, name, script_content, version, is_active, metadata, created_at, updated_at
		 FROM analyses WHERE project_id = $1 ORDER BY created_at`, projectID)
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "list analyses", err)
	}
	defer rows.Close()

	var out []*model.Analysis
	for rows.Next() {
		var a model.Analysis
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Name, &a.ScriptContent, &a.Version, &a.IsActive, &a.Metadata, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, model.Wrap(model.ErrInternal, "scan analysis", err)
		}
		out = append(out, &a)
	}
	return out, nil
}

// CreateVersion appends an AnalysisVersion and bumps the parent
// Analysis's current version + script_content in the same transaction,
// so every historical script revision is retained on every edit.
func (s *AnalysisStore) CreateVersion(ctx context.Context, analysisID, scriptContent string) (*model.AnalysisVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "begin tx", err)
	}
	defer tx.Rollback()

	var nextVersion int
	if err := tx.QueryRowContext(ctx,
		`UPDATE analyses SET version = version + 1, script_content = $1, updated_at = NOW()
		 WHERE id = $2 RETURNING version`, scriptContent, analysisID,
	).Scan(&nextVersion); err != nil {
		return nil, model.Wrap(model.ErrInternal, "bump analysis version", err)
	}

	v := &model.AnalysisVersion{
		ID:            uuid.NewString(),
		AnalysisID:    analysisID,
		Version:       nextVersion,
		ScriptContent: scriptContent,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO analysis_versions (id, analysis_id, version, script_content, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`, v.ID, v.AnalysisID, v.Version, v.ScriptContent); err != nil {
		return nil, model.Wrap(model.ErrInternal, "insert analysis version", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, model.Wrap(model.ErrInternal, "commit analysis version", err)
	}
	return v, nil
}

func (s *AnalysisStore) ListVersions(ctx context.Context, analysisID string) ([]*model.AnalysisVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, analysis_id, version, script_content, created_at
		 FROM analysis_versions WHERE analysis_id = $1 ORDER BY version DESC`, analysisID)
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "list analysis versions", err)
	}
	defer rows.Close()

	var out []*model.AnalysisVersion
	for rows.Next() {
		var v model.AnalysisVersion
		if err := rows.Scan(&v.ID, &v.AnalysisID, &v.Version, &v.ScriptContent, &v.CreatedAt); err != nil {
			return nil, model.Wrap(model.ErrInternal, "scan analysis version", err)
		}
		out = append(out, &v)
	}
	return out, nil
}
