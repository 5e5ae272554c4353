// Package model defines Clay Studio's core data types. These are plain
// structs with json/db tags, hand-mapped to and from database/sql rows in
// internal/store/pg — no ORM, matching the teacher's store.SessionData
// convention.
package model

import "time"

// Role enumerates who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// UserRole enumerates the access level of a User within its Client.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
	UserRoleRoot  UserRole = "root"
)

// DatasourceType is the closed, normalized set of supported dialects.
type DatasourceType string

const (
	DatasourcePostgreSQL DatasourceType = "postgresql"
	DatasourceMySQL      DatasourceType = "mysql"
	DatasourceSQLite     DatasourceType = "sqlite"
	DatasourceClickHouse DatasourceType = "clickhouse"
	DatasourceSQLServer  DatasourceType = "sqlserver"
	DatasourceOracle     DatasourceType = "oracle"
	DatasourceCSV        DatasourceType = "csv"
	DatasourceExcel      DatasourceType = "excel"
	DatasourceJSON       DatasourceType = "json"
)

// JobStatus enumerates the lifecycle of an AnalysisJob.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// TriggeredBy records what caused an AnalysisJob to be enqueued.
type TriggeredBy string

const (
	TriggeredManual   TriggeredBy = "manual"
	TriggeredSchedule TriggeredBy = "schedule"
	TriggeredAPI      TriggeredBy = "api"
)

// Client is the tenant root. Its llm_token authenticates the spawned
// agent child process — never logged, never returned over the wire.
type Client struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	LLMToken  string    `json:"-" db:"llm_token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// User belongs to a Client.
type User struct {
	ID        string    `json:"id" db:"id"`
	ClientID  string    `json:"client_id" db:"client_id"`
	Email     string    `json:"email" db:"email"`
	Role      UserRole  `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Project belongs to a Client and carries the markdown context compiled
// for LLM prompt assembly. ContextCompiled/ContextCompiledAt form a
// ≤5-minute TTL cache invalidated whenever Context is written — see
// internal/contextdoc.
type Project struct {
	ID                string     `json:"id" db:"id"`
	ClientID          string     `json:"client_id" db:"client_id"`
	Name              string     `json:"name" db:"name"`
	Context           string     `json:"context" db:"context"`
	ContextCompiled   string     `json:"context_compiled,omitempty" db:"context_compiled"`
	ContextCompiledAt *time.Time `json:"context_compiled_at,omitempty" db:"context_compiled_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// Datasource belongs to a Project. Type is always from the closed
// normalized set (see Normalize); ConnectionConfig is opaque JSON whose
// shape is dialect-specific.
type Datasource struct {
	ID                string          `json:"id" db:"id"`
	ProjectID         string          `json:"project_id" db:"project_id"`
	Name              string          `json:"name" db:"name"`
	Type              DatasourceType  `json:"type" db:"type"`
	ConnectionConfig  []byte          `json:"connection_config" db:"connection_config"`
	SchemaInfo        []byte          `json:"schema_info,omitempty" db:"schema_info"`
	LastTestedAt      *time.Time      `json:"last_tested_at,omitempty" db:"last_tested_at"`
	DeletedAt         *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Conversation belongs to a Project. MessageCount is a denormalized
// display hint only; authoritative display must COUNT non-forgotten
// messages (see store's CountVisibleMessages).
type Conversation struct {
	ID                 string    `json:"id" db:"id"`
	ProjectID          string    `json:"project_id" db:"project_id"`
	Title              string    `json:"title,omitempty" db:"title"`
	IsTitleManuallySet bool      `json:"is_title_manually_set" db:"is_title_manually_set"`
	MessageCount       int       `json:"message_count" db:"message_count"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// FileAttachment references a FileUpload consumed by a Message.
type FileAttachment struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
}

// Message belongs to a Conversation. Forgotten messages are excluded
// from context assembly but retained for audit/history.
type Message struct {
	ID                string           `json:"id" db:"id"`
	ConversationID    string           `json:"conversation_id" db:"conversation_id"`
	Role              Role             `json:"role" db:"role"`
	Content           string           `json:"content" db:"content"`
	ProcessingTimeMs  *int64           `json:"processing_time_ms,omitempty" db:"processing_time_ms"`
	IsForgotten       bool             `json:"is_forgotten" db:"is_forgotten"`
	FileAttachments   []FileAttachment `json:"file_attachments,omitempty" db:"file_attachments"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
}

// ToolUsage belongs to a Message. ToolUseID is the LLM-provided stable
// identifier used as the join key between streaming events and the
// persisted row — see internal/tooling's write-then-fill dispatch.
type ToolUsage struct {
	ID               string     `json:"id" db:"id"`
	MessageID        string     `json:"message_id" db:"message_id"`
	ToolUseID        string     `json:"tool_use_id" db:"tool_use_id"`
	ToolName         string     `json:"tool_name" db:"tool_name"`
	Parameters       []byte     `json:"parameters" db:"parameters"`
	Output           []byte     `json:"output,omitempty" db:"output"`
	ExecutionTimeMs  *int64     `json:"execution_time_ms,omitempty" db:"execution_time_ms"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// FileUpload belongs to a Client+Project, optionally a Conversation.
// Files over filesafe.MaxInlineContentBytes never populate Content;
// callers must use the peek/range/search tools instead.
type FileUpload struct {
	ID               string    `json:"id" db:"id"`
	ClientID         string    `json:"client_id" db:"client_id"`
	ProjectID        string    `json:"project_id" db:"project_id"`
	ConversationID   string    `json:"conversation_id,omitempty" db:"conversation_id"`
	FilePath         string    `json:"file_path" db:"file_path"`
	FileSize         int64     `json:"file_size" db:"file_size"`
	MimeType         string    `json:"mime_type,omitempty" db:"mime_type"`
	Content          []byte    `json:"file_content,omitempty" db:"file_content"`
	AutoDescription  string    `json:"auto_description,omitempty" db:"auto_description"`
	Metadata         []byte    `json:"metadata,omitempty" db:"metadata"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Analysis is a versioned script. AnalysisVersion retains every
// historical ScriptContent for audit/rollback.
type Analysis struct {
	ID             string    `json:"id" db:"id"`
	ProjectID      string    `json:"project_id" db:"project_id"`
	Name           string    `json:"name" db:"name"`
	ScriptContent  string    `json:"script_content" db:"script_content"`
	Version        int       `json:"version" db:"version"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	Metadata       []byte    `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// AnalysisVersion is a historical snapshot of an Analysis's script.
type AnalysisVersion struct {
	ID             string    `json:"id" db:"id"`
	AnalysisID     string    `json:"analysis_id" db:"analysis_id"`
	Version        int       `json:"version" db:"version"`
	ScriptContent  string    `json:"script_content" db:"script_content"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// AnalysisJob is one execution attempt of an Analysis. A completed job
// has Result xor ErrorMessage set, never both, never neither.
type AnalysisJob struct {
	ID               string      `json:"id" db:"id"`
	AnalysisID       string      `json:"analysis_id" db:"analysis_id"`
	Status           JobStatus   `json:"status" db:"status"`
	Parameters       []byte      `json:"parameters,omitempty" db:"parameters"`
	Result           []byte      `json:"result,omitempty" db:"result"`
	ErrorMessage     string      `json:"error_message,omitempty" db:"error_message"`
	StartedAt        *time.Time  `json:"started_at,omitempty" db:"started_at"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	ExecutionTimeMs  *int64      `json:"execution_time_ms,omitempty" db:"execution_time_ms"`
	TriggeredBy      TriggeredBy `json:"triggered_by" db:"triggered_by"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
}

// AnalysisSchedule drives AJS's cron evaluation loop for one Analysis.
type AnalysisSchedule struct {
	AnalysisID string     `json:"analysis_id" db:"analysis_id"`
	Cron       string     `json:"cron" db:"cron"`
	Timezone   string     `json:"timezone" db:"timezone"`
	Enabled    bool       `json:"enabled" db:"enabled"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty" db:"last_run_at"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty" db:"next_run_at"`
}

// AnalysisResultStorage locates the gzip-compressed JSON result file for
// a completed AnalysisJob. Checksum is SHA-256 hex over the compressed
// bytes (see internal/sandboxjs).
type AnalysisResultStorage struct {
	JobID       string `json:"job_id" db:"job_id"`
	StoragePath string `json:"storage_path" db:"storage_path"`
	SizeBytes   int64  `json:"size_bytes" db:"size_bytes"`
	Checksum    string `json:"checksum" db:"checksum"`
}
