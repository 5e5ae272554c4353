package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rizrmd/claystudio/internal/model"
)

type DatasourceStore struct{ db *sql.DB }

func NewDatasourceStore(db *sql.DB) *DatasourceStore { return &DatasourceStore{db: db} }

const datasourceCols = `id, project_id, name, type, connection_config, schema_info, last_tested_at, deleted_at, created_at, updated_at`

func scanDatasource(row interface{ Scan(...any) error }) (*model.Datasource, error) {
	var d model.Datasource
	err := row.Scan(&d.ID, &d.ProjectID, &d.Name, &d.Type, &d.ConnectionConfig, &d.SchemaInfo,
		&d.LastTestedAt, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Get returns a non-deleted datasource; a soft-deleted row is treated as
// NotFound.
func (s *DatasourceStore) Get(ctx context.Context, id string) (*model.Datasource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+datasourceCols+` FROM datasources WHERE id = $1 AND deleted_at IS NULL`, id)
	d, err := scanDatasource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "datasource not found")
	}
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "get datasource", err)
	}
	return d, nil
}

func (s *DatasourceStore) ListByProject(ctx context.Context, projectID string) ([]*model.Datasource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+datasourceCols+` FROM datasources WHERE project_id = $1 AND deleted_at IS NULL ORDER BY created_at`, projectID)
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "list datasources", err)
	}
	defer rows.Close()

	var out []*model.Datasource
	for rows.Next() {
		d, err := scanDatasource(rows)
		if err != nil {
			return nil, model.Wrap(model.ErrInternal, "scan datasource", err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *DatasourceStore) Create(ctx context.Context, d *model.Datasource) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO datasources (id, project_id, name, type, connection_config, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`,
		d.ID, d.ProjectID, d.Name, d.Type, d.ConnectionConfig)
	if err != nil {
		return model.Wrap(model.ErrInternal, "create datasource", err)
	}
	return nil
}

// UpdateConfig changes connection_config, which changes the pool
// fingerprint — callers must invalidate DMC/DPM entries for id
// (see internal/dmcache, internal/dspool) before this returns.
func (s *DatasourceStore) UpdateConfig(ctx context.Context, id string, config []byte) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE datasources SET connection_config = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`,
		config, id)
	if err != nil {
		return model.Wrap(model.ErrInternal, "update datasource config", err)
	}
	return nil
}

func (s *DatasourceStore) UpdateSchemaInfo(ctx context.Context, id string, schemaInfo []byte, testedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE datasources SET schema_info = $1, last_tested_at = $2, updated_at = NOW() WHERE id = $3`,
		schemaInfo, testedAt, id)
	if err != nil {
		return model.Wrap(model.ErrInternal, "update datasource schema", err)
	}
	return nil
}

func (s *DatasourceStore) SoftDelete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE datasources SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return model.Wrap(model.ErrInternal, "soft delete datasource", err)
	}
	return nil
}
