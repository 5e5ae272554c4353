package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults, mirroring the
// teacher's Default() shape in config_load.go.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			MaxMessageChars:  32000,
			SessionRetries:   3,
			SessionBackoffMs: 100,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxIdleTime: "5m",
		},
		Dspool: DspoolConfig{
			MaxOpenConnsPerPool: 10,
			MaxIdleConnsPerPool: 2,
			IdleTimeout:         "10m",
			SweepInterval:       "1m",
			ValidationTimeout:   "3s",
			DefaultRowLimit:     1_000_000,
		},
		Dmcache: DmcacheConfig{
			TTL: "60s",
		},
		Agent: AgentConfig{
			CLIPath:         "claude",
			TurnTimeout:     "5m",
			CancelGraceTime: "5s",
			ReplayGrace:     "30s",
		},
		Analysis: AnalysisConfig{
			NodePath:          "node",
			PollInterval:      "1s",
			CronInterval:      "60s",
			MaxConcurrent:     4,
			JobWallTimeout:    "5m",
			MaxResultBytes:    10 * 1024 * 1024,
			MemoryLimitMB:     512,
			RetentionDays:     30,
			RetentionInterval: "1h",
			StorageRoot:       "./data",
		},
		Files: FilesConfig{
			MaxInlineContentBytes:  10 * 1024 * 1024,
			DownloadMaxBytes:       100 * 1024 * 1024,
			DownloadWallTimeout:    "60s",
			DownloadRequestTimeout: "30s",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars. A
// missing file is not an error — it just means all-defaults-plus-env,
// matching the teacher's Load() tolerance for a fresh install.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config. Env vars take
// precedence over file values; secrets live only here, never in the
// marshaled file.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	envStr("CLAYSTUDIO_POSTGRES_DSN", &c.Database.DSN)

	envStr("CLAYSTUDIO_HOST", &c.Gateway.Host)
	envInt("CLAYSTUDIO_PORT", &c.Gateway.Port)

	envStr("CLAYSTUDIO_AGENT_CLI_PATH", &c.Agent.CLIPath)
	envStr("CLAYSTUDIO_ANALYSIS_NODE_PATH", &c.Analysis.NodePath)
	envStr("CLAYSTUDIO_ANALYSIS_STORAGE_ROOT", &c.Analysis.StorageRoot)

	envStr("CLAYSTUDIO_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("CLAYSTUDIO_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("CLAYSTUDIO_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("CLAYSTUDIO_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("CLAYSTUDIO_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}
}

// ApplyEnvOverrides re-applies environment variable overrides onto the
// config. Call after reloading/patching config to restore runtime
// secrets that never live in the persisted file.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyEnvOverrides()
}

// Save writes the non-secret portion of the config to a JSON file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
