// Package dspool owns long-lived connection pools/clients keyed by a
// fingerprint of (datasource_id, connection_config), one per dialect
// strategy, and exposes a uniform Connector capability set regardless
// of whether the dialect is genuinely pooled, HTTP-client-cached,
// fresh-session-per-call, or blocking-driver-offloaded.
package dspool

import (
	"context"

	"github.com/rizrmd/claystudio/internal/model"
)

// Column describes one result column.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult is the uniform shape every dialect's ExecuteQuery returns.
// Scalars are already JSON-typed: strings unchanged, integers as numbers
// when they fit int64 else as strings, floats as numbers, booleans as
// booleans, temporal/decimal as strings, binary as a string when it is
// valid UTF-8, else "[BLOB]".
type QueryResult struct {
	Columns         []string `json:"columns"`
	Rows            [][]any  `json:"rows"`
	RowCount        int      `json:"row_count"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
}

// TableColumn describes one column in a fetched schema.
type TableColumn struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// Schema maps fully-qualified table name to its columns.
type Schema struct {
	Tables map[string][]TableColumn `json:"tables"`
}

// RelatedTable is a foreign-key (or, for ClickHouse, heuristic)
// neighbor of a table.
type RelatedTable struct {
	Table      string `json:"table"`
	ViaColumn  string `json:"via_column,omitempty"`
	Heuristic  bool   `json:"heuristic"`
	Confidence string `json:"confidence,omitempty"`
}

// DatabaseStats is a best-effort, dialect-specific summary.
type DatabaseStats struct {
	TableCount int            `json:"table_count"`
	TotalBytes int64          `json:"total_bytes,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Connector is the capability set every dialect strategy implements.
// DPM hands out a Connector bound to one fingerprint; callers never see
// the underlying pool/client/session shape.
type Connector interface {
	ExecuteQuery(ctx context.Context, query string, limit int) (*QueryResult, error)
	FetchSchema(ctx context.Context) (*Schema, error)
	ListTables(ctx context.Context) ([]string, error)
	SearchTables(ctx context.Context, pattern string) ([]string, error)
	GetRelatedTables(ctx context.Context, table string) ([]RelatedTable, error)
	GetDatabaseStats(ctx context.Context) (*DatabaseStats, error)
	// TestConnection is a cheap reachability probe with its own timeout,
	// separate from query execution.
	TestConnection(ctx context.Context) error
	// Close releases dialect-owned resources when the manager evicts
	// this connector's entry.
	Close() error
}

// Config carries the connection details a connector needs, decoded from
// Datasource.ConnectionConfig. Dialects read only the fields they need.
type Config struct {
	DSN      string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Extra    map[string]any
}

func unsupported(dialect model.DatasourceType, op string) error {
	return model.Unsupported(string(dialect), op)
}
