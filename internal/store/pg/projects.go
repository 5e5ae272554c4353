package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rizrmd/claystudio/internal/model"
)

type ProjectStore struct{ db *sql.DB }

func NewProjectStore(db *sql.DB) *ProjectStore { return &ProjectStore{db: db} }

func (s *ProjectStore) Get(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, client_id, name, context, context_compiled, context_compiled_at, created_at, updated_at
		 FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.ClientID, &p.Name, &p.Context, &p.ContextCompiled, &p.ContextCompiledAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "project not found")
	}
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "get project", err)
	}
	return &p, nil
}

// UpdateContext writes a new source context and invalidates the compiled
// cache in the same statement, so a stale compiled context is never read.
func (s *ProjectStore) UpdateContext(ctx context.Context, id, context string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE projects SET context = $1, context_compiled = '', context_compiled_at = NULL, updated_at = NOW()
		 WHERE id = $2`, context, id)
	if err != nil {
		return model.Wrap(model.ErrInternal, "update project context", err)
	}
	return nil
}

func (s *ProjectStore) UpdateCompiledContext(ctx context.Context, id, compiled string, compiledAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE projects SET context_compiled = $1, context_compiled_at = $2 WHERE id = $3`,
		compiled, compiledAt, id)
	if err != nil {
		return model.Wrap(model.ErrInternal, "update compiled context", err)
	}
	return nil
}
