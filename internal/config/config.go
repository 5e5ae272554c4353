// Package config defines Clay Studio's configuration tree and the
// file+env loading discipline the teacher repo uses: a JSON5 file read
// once at startup, then overlaid with environment variables for
// anything secret (DSNs, tokens) so they never round-trip through a
// config.json on disk.
package config

import "sync"

// Config is the root configuration for the Clay Studio gateway process.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Database  DatabaseConfig  `json:"database"`
	Dspool    DspoolConfig    `json:"dspool"`
	Dmcache   DmcacheConfig   `json:"dmcache"`
	Agent     AgentConfig     `json:"agent"`
	Analysis  AnalysisConfig  `json:"analysis"`
	Files     FilesConfig     `json:"files"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`

	mu sync.RWMutex
}

// GatewayConfig configures the WS/HTTP surface (internal/httpapi).
type GatewayConfig struct {
	Host             string   `json:"host"`
	Port             int      `json:"port"`
	MaxMessageChars  int      `json:"max_message_chars"`
	SessionRetries   int      `json:"session_retries"`    // retries for the session-store lookup on each WebSocket upgrade, default 3
	SessionBackoffMs int      `json:"session_backoff_ms"` // backoff between session-store retries, default 100ms
	AllowedOrigins   []string `json:"allowed_origins"`    // empty = allow all (dev mode); "*" also allows all
}

// DatabaseConfig configures Postgres. DSN is NEVER read from the config
// file — only from env CLAYSTUDIO_POSTGRES_DSN, the teacher's pattern
// for keeping secrets out of persisted config.
type DatabaseConfig struct {
	DSN             string `json:"-"`
	MaxOpenConns    int    `json:"max_open_conns"`
	MaxIdleConns    int    `json:"max_idle_conns"`
	ConnMaxIdleTime string `json:"conn_max_idle_time"` // Go duration string
}

// DspoolConfig tunes the Datasource Pool Manager (internal/dspool).
type DspoolConfig struct {
	MaxOpenConnsPerPool int    `json:"max_open_conns_per_pool"`
	MaxIdleConnsPerPool int    `json:"max_idle_conns_per_pool"`
	IdleTimeout         string `json:"idle_timeout"`          // Go duration string, default "10m"
	SweepInterval       string `json:"sweep_interval"`        // Go duration string, default "1m"
	ValidationTimeout   string `json:"validation_timeout"`    // per-connection validation probe timeout, default "3s"
	DefaultRowLimit     int    `json:"default_row_limit"`     // row cap applied when a query has no explicit limit, default 1_000_000
}

// DmcacheConfig tunes the Datasource Metadata Cache (internal/dmcache).
type DmcacheConfig struct {
	TTL string `json:"ttl"` // Go duration string, default "60s"
}

// AgentConfig configures the Agent Streaming Engine (internal/agentstream).
type AgentConfig struct {
	CLIPath         string `json:"cli_path"`          // path to the external LLM CLI binary
	TurnTimeout     string `json:"turn_timeout"`      // Go duration string, default "5m"
	CancelGraceTime string `json:"cancel_grace_time"` // SIGTERM→SIGKILL escalation window, default "5s"
	ReplayGrace     string `json:"replay_grace"`      // how long a StreamState survives after Complete, default "30s"
}

// AnalysisConfig configures AJS + ASX (internal/analysisjob, internal/sandboxjs).
type AnalysisConfig struct {
	NodePath          string `json:"node_path"`           // path to the sandboxed JS runtime binary
	PollInterval      string `json:"poll_interval"`       // pending-job poll cadence, default "1s"
	CronInterval      string `json:"cron_interval"`       // schedule-check cadence, default "60s"
	MaxConcurrent     int    `json:"max_concurrent"`      // concurrency cap
	JobWallTimeout    string `json:"job_wall_timeout"`    // default "5m"
	MaxResultBytes    int64  `json:"max_result_bytes"`    // default 10 MiB
	MemoryLimitMB     int    `json:"memory_limit_mb"`     // child rlimit
	RetentionDays     int    `json:"retention_days"`      // result sweep window
	RetentionInterval string `json:"retention_interval"`  // sweep cadence, default "1h"
	StorageRoot       string `json:"storage_root"`        // base dir for <storage_root>/results/...
}

// FilesConfig configures file-safety policy (internal/filesafe).
type FilesConfig struct {
	UploadRoot            string `json:"upload_root"`              // base dir; each project's uploads live under <upload_root>/<project_id>/
	MaxInlineContentBytes int64  `json:"max_inline_content_bytes"` // above this size, file content is stored on disk, not inline; default 10 MiB
	DownloadMaxBytes      int64  `json:"download_max_bytes"`       // default 100 MiB
	DownloadWallTimeout   string `json:"download_wall_timeout"`    // default "60s"
	DownloadRequestTimeout string `json:"download_request_timeout"` // default "30s"
}

// TelemetryConfig configures OpenTelemetry export for traces, kept in
// the teacher's shape (internal/telemetry wraps otlptrace exporters).
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	Protocol    string            `json:"protocol,omitempty"` // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`
	ServiceName string            `json:"service_name,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gateway = src.Gateway
	c.Database = src.Database
	c.Dspool = src.Dspool
	c.Dmcache = src.Dmcache
	c.Agent = src.Agent
	c.Analysis = src.Analysis
	c.Files = src.Files
	c.Telemetry = src.Telemetry
}

// Snapshot returns a copy of the config safe to read without holding c's lock.
func (c *Config) Snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := *c
	cp.mu = sync.RWMutex{}
	return cp
}
