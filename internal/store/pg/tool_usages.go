package pg

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/rizrmd/claystudio/internal/model"
)

type ToolUsageStore struct{ db *sql.DB }

func NewToolUsageStore(db *sql.DB) *ToolUsageStore { return &ToolUsageStore{db: db} }

// WriteParameters writes the row immediately with parameters set and no
// output, before the tool handler runs. ON CONFLICT on tool_use_id makes
// a re-invocation of the same id update in place rather than duplicate.
func (s *ToolUsageStore) WriteParameters(ctx context.Context, messageID, toolUseID, toolName string, parameters []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_usages (id, message_id, tool_use_id, tool_name, parameters, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (tool_use_id) DO UPDATE SET parameters = EXCLUDED.parameters, output = NULL, execution_time_ms = NULL`,
		uuid.NewString(), messageID, toolUseID, toolName, parameters)
	if err != nil {
		return model.Wrap(model.ErrInternal, "write tool usage parameters", err)
	}
	return nil
}

// FillOutput is step 3: output and execution_time_ms are written
// atomically by tool_use_id — never one without the other.
func (s *ToolUsageStore) FillOutput(ctx context.Context, toolUseID string, output []byte, executionTimeMs int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tool_usages SET output = $1, execution_time_ms = $2 WHERE tool_use_id = $3`,
		output, executionTimeMs, toolUseID)
	if err != nil {
		return model.Wrap(model.ErrInternal, "fill tool usage output", err)
	}
	return nil
}

func (s *ToolUsageStore) ListByMessage(ctx context.Context, messageID string) ([]*model.ToolUsage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message_id, tool_use_id, tool_name, parameters, output, execution_time_ms, created_at
		 FROM tool_usages WHERE message_id = $1 ORDER BY created_at`, messageID)
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "list tool usages", err)
	}
	defer rows.Close()

	var out []*model.ToolUsage
	for rows.Next() {
		var t model.ToolUsage
		if err := rows.Scan(&t.ID, &t.MessageID, &t.ToolUseID, &t.ToolName, &t.Parameters,
			&t.Output, &t.ExecutionTimeMs, &t.CreatedAt); err != nil {
			return nil, model.Wrap(model.ErrInternal, "scan tool usage", err)
		}
		out = append(out, &t)
	}
	return out, nil
}
