package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/rizrmd/claystudio/internal/model"
)

type FileStore struct{ db *sql.DB }

func NewFileStore(db *sql.DB) *FileStore { return &FileStore{db: db} }

const fileCols = `id, client_id, project_id, conversation_id, file_path, file_size, mime_type, file_content, auto_description, metadata, created_at, updated_at`

func scanFile(row interface{ Scan(...any) error }) (*model.FileUpload, error) {
	var f model.FileUpload
	var conversationID sql.NullString
	err := row.Scan(&f.ID, &f.ClientID, &f.ProjectID, &conversationID, &f.FilePath, &f.FileSize,
		&f.MimeType, &f.Content, &f.AutoDescription, &f.Metadata, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.ConversationID = conversationID.String
	return &f, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*model.FileUpload, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileCols+` FROM file_uploads WHERE id = $1`, id)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "file not found")
	}
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "get file", err)
	}
	return f, nil
}

// Create persists FileUpload.Content as given and applies no size cap;
// callers (using filesafe.ShouldInline) clear Content before calling
// Create when FileSize exceeds the limit.
func (s *FileStore) Create(ctx context.Context, f *model.FileUpload) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO file_uploads (id, client_id, project_id, conversation_id, file_path, file_size, mime_type, file_content, auto_description, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`,
		f.ID, f.ClientID, f.ProjectID, nilStr(f.ConversationID), f.FilePath, f.FileSize, f.MimeType, f.Content, f.AutoDescription, f.Metadata)
	if err != nil {
		return model.Wrap(model.ErrInternal, "create file", err)
	}
	return nil
}

func (s *FileStore) ListByProject(ctx context.Context, projectID string) ([]*model.FileUpload, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+fileCols+` FROM file_uploads WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "list files", err)
	}
	defer rows.Close()

	var out []*model.FileUpload
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, model.Wrap(model.ErrInternal, "scan file", err)
		}
		out = append(out, f)
	}
	return out, nil
}
