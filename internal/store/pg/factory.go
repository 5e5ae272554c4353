package pg

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rizrmd/claystudio/internal/store"
)

// NewPGStores creates all stores backed by Postgres. The returned *sql.DB
// is exposed so callers (e.g. AJS's poll loop) can run ad hoc queries and
// so main() can Close it on shutdown.
func NewPGStores(cfg store.StoreConfig) (*store.Stores, *sql.DB, error) {
	db, err := OpenDB(cfg.PostgresDSN, cfg.MaxOpenConns, cfg.MaxIdleConns, 5*time.Minute)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}

	return &store.Stores{
		Clients:       NewClientStore(db),
		Users:         NewUserStore(db),
		Projects:      NewProjectStore(db),
		Datasources:   NewDatasourceStore(db),
		Conversations: NewConversationStore(db),
		Messages:      NewMessageStore(db),
		ToolUsages:    NewToolUsageStore(db),
		Files:         NewFileStore(db),
		Analyses:      NewAnalysisStore(db),
		AnalysisJobs:  NewAnalysisJobStore(db),
		Schedules:     NewAnalysisScheduleStore(db),
		Results:       NewAnalysisResultStore(db),
	}, db, nil
}
