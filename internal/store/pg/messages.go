package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/rizrmd/claystudio/internal/model"
)

type MessageStore struct{ db *sql.DB }

func NewMessageStore(db *sql.DB) *MessageStore { return &MessageStore{db: db} }

func scanMessage(row interface{ Scan(...any) error }) (*model.Message, error) {
	var m model.Message
	var attachmentsJSON []byte
	err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.ProcessingTimeMs,
		&m.IsForgotten, &attachmentsJSON, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(attachmentsJSON) > 0 {
		json.Unmarshal(attachmentsJSON, &m.FileAttachments)
	}
	return &m, nil
}

func (s *MessageStore) Get(ctx context.Context, id string) (*model.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, role, content, processing_time_ms, is_forgotten, file_attachments, created_at
		 FROM messages WHERE id = $1`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "message not found")
	}
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "get message", err)
	}
	return m, nil
}

func (s *MessageStore) Create(ctx context.Context, m *model.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	attachmentsJSON, _ := json.Marshal(m.FileAttachments)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, processing_time_ms, is_forgotten, file_attachments, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		m.ID, m.ConversationID, m.Role, m.Content, m.ProcessingTimeMs, m.IsForgotten, attachmentsJSON)
	if err != nil {
		return model.Wrap(model.ErrInternal, "create message", err)
	}
	return nil
}

// UpdateContent fills in an assistant message row created up front (empty
// content) at turn start, once the turn has finished streaming. Keeping the
// row present for the whole turn is what lets tool_usages.message_id
// reference it mid-turn without ever pointing at a row that doesn't exist yet.
func (s *MessageStore) UpdateContent(ctx context.Context, id, content string, processingTimeMs int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE messages SET content = $1, processing_time_ms = $2 WHERE id = $3`,
		content, processingTimeMs, id)
	if err != nil {
		return model.Wrap(model.ErrInternal, "update message content", err)
	}
	return nil
}

// ListVisible excludes forgotten messages — they stay in storage but are
// dropped from context assembly.
func (s *MessageStore) ListVisible(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, processing_time_ms, is_forgotten, file_attachments, created_at
		 FROM messages WHERE conversation_id = $1 AND is_forgotten = false
		 ORDER BY created_at DESC LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "list messages", err)
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, model.Wrap(model.ErrInternal, "scan message", err)
		}
		out = append(out, m)
	}
	// reverse to chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *MessageStore) MarkForgotten(ctx context.Context, id string, forgotten bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE messages SET is_forgotten = $1 WHERE id = $2`, forgotten, id)
	if err != nil {
		return model.Wrap(model.ErrInternal, "mark forgotten", err)
	}
	return nil
}
