package tooling

import "context"

// toolContextKey namespaces values the registry injects before a handler
// runs, read back by handlers during Execute — this replaces mutable
// setter fields on tool instances, so tools stay safe for concurrent
// dispatch across turns.
type toolContextKey string

const (
	ctxClientID       toolContextKey = "tool_client_id"
	ctxProjectID      toolContextKey = "tool_project_id"
	ctxConversationID toolContextKey = "tool_conversation_id"
	ctxRequesterID    toolContextKey = "tool_requester_id"
	ctxIsRoot         toolContextKey = "tool_is_root"
)

// Scope is the (client, project, conversation, requester) boundary every
// tool call executes under. TRD refuses to let a handler touch a
// datasource or file outside this scope.
type Scope struct {
	ClientID       string
	ProjectID      string
	ConversationID string
	RequesterID    string
	IsRoot         bool
}

func WithScope(ctx context.Context, s Scope) context.Context {
	ctx = context.WithValue(ctx, ctxClientID, s.ClientID)
	ctx = context.WithValue(ctx, ctxProjectID, s.ProjectID)
	ctx = context.WithValue(ctx, ctxConversationID, s.ConversationID)
	ctx = context.WithValue(ctx, ctxRequesterID, s.RequesterID)
	ctx = context.WithValue(ctx, ctxIsRoot, s.IsRoot)
	return ctx
}

func ScopeFromCtx(ctx context.Context) Scope {
	clientID, _ := ctx.Value(ctxClientID).(string)
	projectID, _ := ctx.Value(ctxProjectID).(string)
	conversationID, _ := ctx.Value(ctxConversationID).(string)
	requesterID, _ := ctx.Value(ctxRequesterID).(string)
	isRoot, _ := ctx.Value(ctxIsRoot).(bool)
	return Scope{
		ClientID:       clientID,
		ProjectID:      projectID,
		ConversationID: conversationID,
		RequesterID:    requesterID,
		IsRoot:         isRoot,
	}
}
