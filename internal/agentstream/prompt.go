package agentstream

import (
	"context"
	"fmt"
	"strings"

	"github.com/rizrmd/claystudio/internal/store"
	"github.com/rizrmd/claystudio/internal/tooling"
)

// maxHistoryChars bounds how much prior conversation text is folded into
// the prompt; oldest messages are dropped first once the budget is spent.
const maxHistoryChars = 24_000

// turnRequest is the first line written to the child's stdin: the full
// prompt assembly the child needs to begin a turn, plus the tool
// definitions it should advertise back to the model.
type turnRequest struct {
	Type             string                   `json:"type"`
	ProjectContext   string                   `json:"project_context,omitempty"`
	History          []historyMessage         `json:"history"`
	UserMessage      string                   `json:"user_message"`
	Attachments      []attachmentDescriptor   `json:"attachments,omitempty"`
	Tools            []tooling.ToolDefinition `json:"tools"`
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type attachmentDescriptor struct {
	FileID  string `json:"file_id"`
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Mime    string `json:"mime,omitempty"`
	Content string `json:"content,omitempty"`
	Note    string `json:"note,omitempty"`
}

// composePrompt builds the turnRequest: compiled project context, recent
// non-forgotten history up to a character budget, attached files
// formatted inline or by reference, and the tool catalog the registry
// exposes.
func composePrompt(
	ctx context.Context,
	stores *store.Stores,
	registry *tooling.Registry,
	projectID, conversationID, userContent string,
	fileIDs []string,
) (*turnRequest, error) {
	proj, err := stores.Projects.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("agentstream: load project: %w", err)
	}

	msgs, err := stores.Messages.ListVisible(ctx, conversationID, 200)
	if err != nil {
		return nil, fmt.Errorf("agentstream: load history: %w", err)
	}
	history := make([]historyMessage, 0, len(msgs))
	budget := maxHistoryChars
	for i := len(msgs) - 1; i >= 0 && budget > 0; i-- {
		m := msgs[i]
		history = append([]historyMessage{{Role: string(m.Role), Content: m.Content}}, history...)
		budget -= len(m.Content)
	}

	attachments := make([]attachmentDescriptor, 0, len(fileIDs))
	for _, id := range fileIDs {
		f, err := stores.Files.Get(ctx, id)
		if err != nil {
			continue
		}
		desc := attachmentDescriptor{FileID: f.ID, Name: f.FilePath, Size: f.FileSize, Mime: f.MimeType}
		if len(f.Content) > 0 {
			desc.Content = string(f.Content)
		} else {
			desc.Note = "content not inlined; use files_peek/files_range/files_searchContent"
		}
		attachments = append(attachments, desc)
	}

	return &turnRequest{
		Type:           "turn_request",
		ProjectContext: strings.TrimSpace(proj.ContextCompiled),
		History:        history,
		UserMessage:    userContent,
		Attachments:    attachments,
		Tools:          registry.Definitions(),
	}, nil
}
