// Package protocol defines the wire vocabulary of the WebSocket protocol
// between Clay Studio clients and the WebSocket Fan-Out subsystem: JSON
// frames tagged by a "type" field.
package protocol

// Client → server frame types.
const (
	TypeSubscribe       = "subscribe"
	TypeUnsubscribe     = "unsubscribe"
	TypeSendMessage     = "send_message"
	TypeCancel          = "cancel"
	TypeAskUserResponse = "ask_user_response"
)

// Server → client frame types.
const (
	TypeSubscribed             = "Subscribed"
	TypeConversationRedirect   = "ConversationRedirect"
	TypeConversationMessages   = "ConversationMessages"
	TypeStart                  = "Start"
	TypeProgress                = "Progress"
	TypeToolUse                  = "ToolUse"
	TypeToolComplete               = "ToolComplete"
	TypeContent                     = "Content"
	TypeComplete                      = "Complete"
	TypeError                          = "Error"
	TypeAuthenticationRequired           = "AuthenticationRequired"
)

// Frame is the outer envelope every WS message carries.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// --- client → server payloads ---

type SubscribePayload struct {
	ProjectID      string `json:"project_id"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type SendMessagePayload struct {
	ProjectID      string   `json:"project_id"`
	ConversationID string   `json:"conversation_id"`
	Content        string   `json:"content"`
	FileIDs        []string `json:"file_ids,omitempty"`
}

type CancelPayload struct {
	ConversationID string `json:"conversation_id"`
}

type AskUserResponsePayload struct {
	InteractionID string `json:"interaction_id"`
	Response      string `json:"response"`
}

// --- server → client payloads ---

type SubscribedPayload struct {
	ProjectID      string `json:"project_id"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ConversationRedirectPayload struct {
	OldConversationID string `json:"old_conversation_id"`
	NewConversationID string `json:"new_conversation_id"`
}

type ConversationMessagesPayload struct {
	ConversationID string `json:"conversation_id"`
	Messages       []any  `json:"messages"`
}

type StartPayload struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
}

type ProgressPayload struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

type ToolUsePayload struct {
	ConversationID string `json:"conversation_id"`
	Tool           string `json:"tool"`
	ToolUsageID    string `json:"tool_usage_id"`
}

type ToolCompletePayload struct {
	ConversationID  string `json:"conversation_id"`
	Tool            string `json:"tool"`
	ToolUsageID     string `json:"tool_usage_id"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	Output          string `json:"output,omitempty"`
}

type ContentPayload struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

type CompletePayload struct {
	ID               string   `json:"id"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	ToolsUsed        []string `json:"tools_used"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type AuthenticationRequiredPayload struct{}
