package tooling

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rizrmd/claystudio/internal/filesafe"
	"github.com/rizrmd/claystudio/internal/model"
	"github.com/rizrmd/claystudio/internal/store"
)

// fileResolver scopes every file tool to one project's upload directory
// and enforces the inline-content size cap on anything it loads.
type fileResolver struct {
	stores                *store.Stores
	uploadRoot            string
	maxInlineContentBytes int64
	downloadMaxBytes      int64
	downloadWallTimeout   time.Duration
	downloadRequestTO     time.Duration
}

func (r *fileResolver) projectRoot(projectID string) string {
	return filepath.Join(r.uploadRoot, projectID)
}

// get loads a FileUpload row, checking it belongs to the scope's project,
// and resolves its on-disk path under the project's root.
func (r *fileResolver) get(ctx context.Context, fileID string) (*model.FileUpload, string, error) {
	f, err := r.stores.Files.Get(ctx, fileID)
	if err != nil {
		return nil, "", err
	}
	scope := ScopeFromCtx(ctx)
	if f.ProjectID != scope.ProjectID {
		return nil, "", model.NewError(model.ErrForbidden, "file does not belong to this project")
	}
	abs, err := filesafe.ResolvePath(f.FilePath, r.projectRoot(f.ProjectID))
	if err != nil {
		return nil, "", model.Wrap(model.ErrForbidden, "resolve file path", err)
	}
	return f, abs, nil
}

// --- files_list ---

type filesListTool struct{ stores *store.Stores }

func (t *filesListTool) Name() string        { return "files_list" }
func (t *filesListTool) Description() string { return "List every file uploaded to the current project." }
func (t *filesListTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}
func (t *filesListTool) Execute(ctx context.Context, _ json.RawMessage) *Result {
	scope := ScopeFromCtx(ctx)
	files, err := t.stores.Files.ListByProject(ctx, scope.ProjectID)
	if err != nil {
		return errResultFrom(err)
	}
	type item struct {
		ID       string `json:"id"`
		Path     string `json:"file_path"`
		Size     int64  `json:"file_size"`
		MimeType string `json:"mime_type,omitempty"`
	}
	out := make([]item, 0, len(files))
	for _, f := range files {
		out = append(out, item{ID: f.ID, Path: f.FilePath, Size: f.FileSize, MimeType: f.MimeType})
	}
	return NewResult(summarizeCount(len(out), "file")).WithData(out)
}

// --- files_metadata ---

type filesMetadataTool struct{ resolver *fileResolver }

func (t *filesMetadataTool) Name() string { return "files_metadata" }
func (t *filesMetadataTool) Description() string {
	return "Return a file's size, mime type, and extracted metadata without its content."
}
func (t *filesMetadataTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["file_id"],"properties":{"file_id":{"type":"string"}}}`)
}
func (t *filesMetadataTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		FileID string `json:"file_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	f, _, err := t.resolver.get(ctx, params.FileID)
	if err != nil {
		return errResultFrom(err)
	}
	f.Content = nil
	return NewResult("file metadata").WithData(f)
}

// --- files_read ---

type filesReadTool struct{ resolver *fileResolver }

func (t *filesReadTool) Name() string { return "files_read" }
func (t *filesReadTool) Description() string {
	return "Read a file's full content. Refuses files over the inline cap — use files_peek/files_range instead."
}
func (t *filesReadTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["file_id"],"properties":{"file_id":{"type":"string"}}}`)
}
func (t *filesReadTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		FileID string `json:"file_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	f, abs, err := t.resolver.get(ctx, params.FileID)
	if err != nil {
		return errResultFrom(err)
	}
	if !filesafe.ShouldInline(f.FileSize, t.resolver.maxInlineContentBytes) {
		return errResultFrom(model.NewError(model.ErrResultTooLarge, "file too large for files_read; use files_peek or files_range"))
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return errResultFrom(model.Wrap(model.ErrInternal, "read file", err))
	}
	return UserResult(string(content))
}

// --- files_peek ---

type filesPeekTool struct{ resolver *fileResolver }

func (t *filesPeekTool) Name() string        { return "files_peek" }
func (t *filesPeekTool) Description() string { return "Read the first N lines of a file without loading it all." }
func (t *filesPeekTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["file_id"],"properties":{"file_id":{"type":"string"},"lines":{"type":"integer"}}}`)
}
func (t *filesPeekTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		FileID string `json:"file_id"`
		Lines  int    `json:"lines"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	if params.Lines <= 0 {
		params.Lines = 50
	}
	_, abs, err := t.resolver.get(ctx, params.FileID)
	if err != nil {
		return errResultFrom(err)
	}
	fh, err := os.Open(abs)
	if err != nil {
		return errResultFrom(model.Wrap(model.ErrInternal, "open file", err))
	}
	defer fh.Close()

	var out strings.Builder
	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 0; n < params.Lines && scanner.Scan(); n++ {
		out.WriteString(scanner.Text())
		out.WriteByte('\n')
	}
	return UserResult(out.String())
}

// --- files_range ---

type filesRangeTool struct{ resolver *fileResolver }

func (t *filesRangeTool) Name() string        { return "files_range" }
func (t *filesRangeTool) Description() string { return "Read a byte range [offset, offset+length) of a file." }
func (t *filesRangeTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["file_id","offset","length"],"properties":{"file_id":{"type":"string"},"offset":{"type":"integer"},"length":{"type":"integer"}}}`)
}
func (t *filesRangeTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		FileID string `json:"file_id"`
		Offset int64  `json:"offset"`
		Length int64  `json:"length"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	f, abs, err := t.resolver.get(ctx, params.FileID)
	if err != nil {
		return errResultFrom(err)
	}
	start, end := filesafe.Range(params.Offset, params.Length, f.FileSize)
	fh, err := os.Open(abs)
	if err != nil {
		return errResultFrom(model.Wrap(model.ErrInternal, "open file", err))
	}
	defer fh.Close()
	if _, err := fh.Seek(start, io.SeekStart); err != nil {
		return errResultFrom(model.Wrap(model.ErrInternal, "seek file", err))
	}
	buf := make([]byte, end-start)
	n, err := io.ReadFull(fh, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return errResultFrom(model.Wrap(model.ErrInternal, "read file range", err))
	}
	return UserResult(string(buf[:n]))
}

// --- files_search ---

type filesSearchTool struct{ stores *store.Stores }

func (t *filesSearchTool) Name() string        { return "files_search" }
func (t *filesSearchTool) Description() string { return "Search uploaded files by filename substring." }
func (t *filesSearchTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["query"],"properties":{"query":{"type":"string"}}}`)
}
func (t *filesSearchTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	scope := ScopeFromCtx(ctx)
	files, err := t.stores.Files.ListByProject(ctx, scope.ProjectID)
	if err != nil {
		return errResultFrom(err)
	}
	needle := strings.ToLower(params.Query)
	var matches []*model.FileUpload
	for _, f := range files {
		if strings.Contains(strings.ToLower(f.FilePath), needle) {
			matches = append(matches, f)
		}
	}
	return NewResult(summarizeCount(len(matches), "match")).WithData(matches)
}

// --- files_searchContent ---

type filesSearchContentTool struct{ resolver *fileResolver }

func (t *filesSearchContentTool) Name() string { return "files_searchContent" }
func (t *filesSearchContentTool) Description() string {
	return "Search a file's content line-by-line for a substring, returning matching lines with their line numbers."
}
func (t *filesSearchContentTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["file_id","query"],"properties":{"file_id":{"type":"string"},"query":{"type":"string"},"max_matches":{"type":"integer"}}}`)
}
func (t *filesSearchContentTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		FileID     string `json:"file_id"`
		Query      string `json:"query"`
		MaxMatches int    `json:"max_matches"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	if params.MaxMatches <= 0 {
		params.MaxMatches = 100
	}
	_, abs, err := t.resolver.get(ctx, params.FileID)
	if err != nil {
		return errResultFrom(err)
	}
	fh, err := os.Open(abs)
	if err != nil {
		return errResultFrom(model.Wrap(model.ErrInternal, "open file", err))
	}
	defer fh.Close()

	type match struct {
		Line int    `json:"line"`
		Text string `json:"text"`
	}
	var matches []match
	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineNo := 1; scanner.Scan() && len(matches) < params.MaxMatches; lineNo++ {
		text := scanner.Text()
		if strings.Contains(text, params.Query) {
			matches = append(matches, match{Line: lineNo, Text: text})
		}
	}
	return NewResult(summarizeCount(len(matches), "match")).WithData(matches)
}

// --- file_download_url ---

type fileDownloadURLTool struct {
	resolver *fileResolver
	stores   *store.Stores
}

func (t *fileDownloadURLTool) Name() string { return "file_download_url" }
func (t *fileDownloadURLTool) Description() string {
	return "Download a file from a public HTTP(S) URL into the project's uploads, subject to an allow-list and size/time caps."
}
func (t *fileDownloadURLTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["url"],"properties":{"url":{"type":"string"}}}`)
}
func (t *fileDownloadURLTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	u, err := filesafe.CheckDownloadURL(params.URL)
	if err != nil {
		return errResultFrom(model.Wrap(model.ErrForbidden, "download url rejected", err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.resolver.downloadWallTimeout)
	defer cancel()

	client := &http.Client{Timeout: t.resolver.downloadRequestTO}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errResultFrom(model.Wrap(model.ErrInternal, "build download request", err))
	}
	resp, err := client.Do(req)
	if err != nil {
		return errResultFrom(model.Wrap(model.ErrConnectionFail, "download request failed", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errResultFrom(model.NewError(model.ErrConnectionFail, "download returned status "+strconv.Itoa(resp.StatusCode)))
	}

	limited := io.LimitReader(resp.Body, t.resolver.downloadMaxBytes+1)
	content, err := io.ReadAll(limited)
	if err != nil {
		return errResultFrom(model.Wrap(model.ErrInternal, "read download body", err))
	}
	if int64(len(content)) > t.resolver.downloadMaxBytes {
		return errResultFrom(model.NewError(model.ErrResultTooLarge, "downloaded file exceeds the size cap"))
	}

	scope := ScopeFromCtx(ctx)
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(content)
	}
	fileID := uuid.NewString()
	relPath := fileID + filepath.Ext(u.Path)
	root := t.resolver.projectRoot(scope.ProjectID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return errResultFrom(model.Wrap(model.ErrInternal, "create project upload dir", err))
	}
	abs, err := filesafe.ResolvePath(relPath, root)
	if err != nil {
		return errResultFrom(model.Wrap(model.ErrInternal, "resolve download path", err))
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return errResultFrom(model.Wrap(model.ErrInternal, "write downloaded file", err))
	}

	f := &model.FileUpload{
		ID:        fileID,
		ClientID:  scope.ClientID,
		ProjectID: scope.ProjectID,
		FilePath:  relPath,
		FileSize:  int64(len(content)),
		MimeType:  mime,
	}
	if filesafe.ShouldInline(f.FileSize, t.resolver.maxInlineContentBytes) {
		f.Content = content
	}
	if err := t.stores.Files.Create(ctx, f); err != nil {
		return errResultFrom(err)
	}
	return NewResult("downloaded " + strconv.Itoa(len(content)) + " bytes").WithData(map[string]any{"file_id": fileID, "file_size": f.FileSize, "mime_type": mime})
}
