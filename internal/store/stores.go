// Package store defines the persistence interfaces Clay Studio's
// components depend on. internal/store/pg provides the Postgres
// implementation; components are written against these interfaces so
// tests can substitute fakes, matching the teacher's store.SessionStore
// discipline.
package store

import (
	"context"
	"time"

	"github.com/rizrmd/claystudio/internal/model"
)

// Stores is the top-level container for all storage backends, handed to
// every component at startup (built in internal/cliwire/app.go via
// pg.NewPGStores).
type Stores struct {
	Clients       ClientStore
	Users         UserStore
	Projects      ProjectStore
	Datasources   DatasourceStore
	Conversations ConversationStore
	Messages      MessageStore
	ToolUsages    ToolUsageStore
	Files         FileStore
	Analyses      AnalysisStore
	AnalysisJobs  AnalysisJobStore
	Schedules     AnalysisScheduleStore
	Results       AnalysisResultStore
}

// StoreConfig carries the DSN and pool tuning used to construct Stores.
type StoreConfig struct {
	PostgresDSN  string
	MaxOpenConns int
	MaxIdleConns int
}

type ClientStore interface {
	Get(ctx context.Context, id string) (*model.Client, error)
}

type UserStore interface {
	Get(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, clientID, email string) (*model.User, error)
}

type ProjectStore interface {
	Get(ctx context.Context, id string) (*model.Project, error)
	UpdateContext(ctx context.Context, id, context string) error
	UpdateCompiledContext(ctx context.Context, id, compiled string, compiledAt time.Time) error
}

type DatasourceStore interface {
	Get(ctx context.Context, id string) (*model.Datasource, error)
	ListByProject(ctx context.Context, projectID string) ([]*model.Datasource, error)
	Create(ctx context.Context, ds *model.Datasource) error
	UpdateConfig(ctx context.Context, id string, config []byte) error
	UpdateSchemaInfo(ctx context.Context, id string, schemaInfo []byte, testedAt time.Time) error
	SoftDelete(ctx context.Context, id string) error
}

type ConversationStore interface {
	Get(ctx context.Context, id string) (*model.Conversation, error)
	Create(ctx context.Context, c *model.Conversation) error
	Touch(ctx context.Context, id string, at time.Time) error
	CountVisibleMessages(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

type MessageStore interface {
	Get(ctx context.Context, id string) (*model.Message, error)
	Create(ctx context.Context, m *model.Message) error
	UpdateContent(ctx context.Context, id, content string, processingTimeMs int64) error
	ListVisible(ctx context.Context, conversationID string, limit int) ([]*model.Message, error)
	MarkForgotten(ctx context.Context, id string, forgotten bool) error
}

// ToolUsageStore implements a write-then-fill discipline: WriteParameters
// happens before the handler runs, FillOutput happens after, both keyed
// by the LLM-provided ToolUseID so a retried tool_use_id updates in place
// rather than duplicating a row.
type ToolUsageStore interface {
	WriteParameters(ctx context.Context, messageID, toolUseID, toolName string, parameters []byte) error
	FillOutput(ctx context.Context, toolUseID string, output []byte, executionTimeMs int64) error
	ListByMessage(ctx context.Context, messageID string) ([]*model.ToolUsage, error)
}

type FileStore interface {
	Get(ctx context.Context, id string) (*model.FileUpload, error)
	Create(ctx context.Context, f *model.FileUpload) error
	ListByProject(ctx context.Context, projectID string) ([]*model.FileUpload, error)
}

type AnalysisStore interface {
	Get(ctx context.Context, id string) (*model.Analysis, error)
	ListByProject(ctx context.Context, projectID string) ([]*model.Analysis, error)
	CreateVersion(ctx context.Context, analysisID, scriptContent string) (*model.AnalysisVersion, error)
	ListVersions(ctx context.Context, analysisID string) ([]*model.AnalysisVersion, error)
}

type AnalysisJobStore interface {
	Create(ctx context.Context, job *model.AnalysisJob) error
	Get(ctx context.Context, id string) (*model.AnalysisJob, error)
	// ClaimPending atomically transitions up to limit pending jobs to
	// running via UPDATE ... RETURNING, for a worker poll loop.
	ClaimPending(ctx context.Context, limit int) ([]*model.AnalysisJob, error)
	Complete(ctx context.Context, id string, result []byte, executionTimeMs int64) error
	Fail(ctx context.Context, id string, errMsg string) error
	Cancel(ctx context.Context, id string) error
}

type AnalysisScheduleStore interface {
	ListEnabled(ctx context.Context) ([]*model.AnalysisSchedule, error)
	MarkFired(ctx context.Context, analysisID string, firedAt time.Time) error
}

type AnalysisResultStore interface {
	Save(ctx context.Context, r *model.AnalysisResultStorage) error
	Get(ctx context.Context, jobID string) (*model.AnalysisResultStorage, error)
	// DeleteOlderThan removes result rows (and callers are responsible
	// for the on-disk file) older than cutoff — internal/analysisjob's
	// retention sweep.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]*model.AnalysisResultStorage, error)
}
