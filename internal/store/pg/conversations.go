package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rizrmd/claystudio/internal/model"
)

type ConversationStore struct{ db *sql.DB }

func NewConversationStore(db *sql.DB) *ConversationStore { return &ConversationStore{db: db} }

func (s *ConversationStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	var c model.Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, title, is_title_manually_set, message_count, created_at, updated_at
		 FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, &c.ProjectID, &c.Title, &c.IsTitleManuallySet, &c.MessageCount, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "conversation not found")
	}
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "get conversation", err)
	}
	return &c, nil
}

func (s *ConversationStore) Create(ctx context.Context, c *model.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, project_id, title, is_title_manually_set, message_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 0, NOW(), NOW())`,
		c.ID, c.ProjectID, c.Title, c.IsTitleManuallySet)
	if err != nil {
		return model.Wrap(model.ErrInternal, "create conversation", err)
	}
	return nil
}

func (s *ConversationStore) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE conversations SET updated_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return model.Wrap(model.ErrInternal, "touch conversation", err)
	}
	return nil
}

// CountVisibleMessages is the authoritative display count — the stored
// message_count column is a display hint only, never trusted.
func (s *ConversationStore) CountVisibleMessages(ctx context.Context, id string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1 AND is_forgotten = false`, id,
	).Scan(&n)
	if err != nil {
		return 0, model.Wrap(model.ErrInternal, "count visible messages", err)
	}
	return n, nil
}

// Delete is idempotent: deleting an already-deleted id still returns nil;
// callers distinguish "already gone" via a prior Get returning NotFound.
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return model.Wrap(model.ErrInternal, "delete conversation", err)
	}
	return nil
}
