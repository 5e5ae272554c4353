package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rizrmd/claystudio/internal/model"
)

type ClientStore struct{ db *sql.DB }

func NewClientStore(db *sql.DB) *ClientStore { return &ClientStore{db: db} }

func (s *ClientStore) Get(ctx context.Context, id string) (*model.Client, error) {
	var c model.Client
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, llm_token, created_at, updated_at FROM clients WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.LLMToken, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "client not found")
	}
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "get client", err)
	}
	return &c, nil
}
