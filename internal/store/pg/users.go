package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rizrmd/claystudio/internal/model"
)

type UserStore struct{ db *sql.DB }

func NewUserStore(db *sql.DB) *UserStore { return &UserStore{db: db} }

func (s *UserStore) Get(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, client_id, email, role, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.ClientID, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "user not found")
	}
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "get user", err)
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, clientID, email string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, client_id, email, role, created_at, updated_at
		 FROM users WHERE client_id = $1 AND email = $2`, clientID, email,
	).Scan(&u.ID, &u.ClientID, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "user not found")
	}
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "get user by email", err)
	}
	return &u, nil
}
