package dspool

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rizrmd/claystudio/internal/model"
)

// Options tunes pool sizing and sweep cadence, sourced from
// config.DspoolConfig.
type Options struct {
	MaxOpenConnsPerPool int
	MaxIdleConnsPerPool int
	IdleTimeout         time.Duration
	SweepInterval       time.Duration
	ValidationTimeout   time.Duration
	DefaultRowLimit     int
}

type entry struct {
	connector  Connector
	lastUsedAt time.Time
}

// Manager is the Datasource Pool Manager: one shared process-wide
// instance owning every dialect's connector, keyed by fingerprint.
type Manager struct {
	opts Options
	log  *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	// byDatasource indexes fingerprints by datasource id so Invalidate
	// can evict every entry for an edited/deleted datasource without a
	// full scan.
	byDatasource map[string]map[string]struct{}
}

func New(opts Options, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		opts:         opts,
		log:          log,
		entries:      make(map[string]*entry),
		byDatasource: make(map[string]map[string]struct{}),
	}
}

// Get returns the Connector for (datasourceID, dsType, config), building
// it on first use or after the prior entry was invalidated. config is
// the raw connection_config JSON from the Datasource row.
func (m *Manager) Get(ctx context.Context, datasourceID string, dsType model.DatasourceType, config []byte) (Connector, error) {
	var cfgMap map[string]any
	if len(config) > 0 {
		if err := json.Unmarshal(config, &cfgMap); err != nil {
			return nil, model.Wrap(model.ErrBadRequest, "parse connection_config", err)
		}
	}
	fp := fingerprint(datasourceID, cfgMap)

	m.mu.RLock()
	e, ok := m.entries[fp]
	m.mu.RUnlock()
	if ok {
		if ch, isCH := e.connector.(*clickHouseConnector); isCH {
			if err := ch.TestConnection(ctx); err != nil {
				m.log.Warn("dspool: clickhouse validation failed, recreating", "datasource_id", datasourceID, "error", err)
				m.Invalidate(datasourceID)
				ok = false
			}
		}
	}
	if ok {
		m.touch(fp)
		return e.connector, nil
	}

	cfg := decodeConfig(cfgMap)
	conn, err := m.build(dsType, cfg)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.entries[fp] = &entry{connector: conn, lastUsedAt: time.Now()}
	if m.byDatasource[datasourceID] == nil {
		m.byDatasource[datasourceID] = make(map[string]struct{})
	}
	m.byDatasource[datasourceID][fp] = struct{}{}
	m.mu.Unlock()

	return conn, nil
}

func (m *Manager) touch(fp string) {
	m.mu.Lock()
	if e, ok := m.entries[fp]; ok {
		e.lastUsedAt = time.Now()
	}
	m.mu.Unlock()
}

func (m *Manager) build(dsType model.DatasourceType, cfg Config) (Connector, error) {
	switch dsType {
	case model.DatasourcePostgreSQL:
		return newSQLConnector("pgx", cfg, m.opts)
	case model.DatasourceMySQL:
		return newSQLConnector("mysql", cfg, m.opts)
	case model.DatasourceSQLite:
		return newSQLConnector("sqlite", cfg, m.opts)
	case model.DatasourceClickHouse:
		return newClickHouseConnector(cfg, m.opts)
	case model.DatasourceSQLServer:
		return newSQLServerConnector(cfg)
	case model.DatasourceOracle:
		return newOracleConnector(cfg)
	case model.DatasourceCSV, model.DatasourceExcel, model.DatasourceJSON:
		return newFileConnector(dsType, cfg)
	default:
		return nil, model.Unsupported(string(dsType), "open connector")
	}
}

// Invalidate closes and evicts every connector fingerprinted under
// datasourceID — called on connection_config edit and on soft-delete,
// before either write returns, so no stale handle survives the write.
func (m *Manager) Invalidate(datasourceID string) {
	m.mu.Lock()
	fps := m.byDatasource[datasourceID]
	delete(m.byDatasource, datasourceID)
	var toClose []Connector
	for fp := range fps {
		if e, ok := m.entries[fp]; ok {
			toClose = append(toClose, e.connector)
			delete(m.entries, fp)
		}
	}
	m.mu.Unlock()

	for _, c := range toClose {
		if err := c.Close(); err != nil {
			m.log.Warn("dspool: close evicted connector", "datasource_id", datasourceID, "error", err)
		}
	}
}

// RunSweep evicts connectors idle longer than m.opts.IdleTimeout on a
// fixed cadence, until ctx is cancelled.
func (m *Manager) RunSweep(ctx context.Context) {
	interval := m.opts.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepOnce()
		}
	}
}

func (m *Manager) sweepOnce() {
	cutoff := time.Now().Add(-m.opts.IdleTimeout)
	m.mu.Lock()
	var stale []string
	for fp, e := range m.entries {
		if m.opts.IdleTimeout > 0 && e.lastUsedAt.Before(cutoff) {
			stale = append(stale, fp)
		}
	}
	var toClose []Connector
	for _, fp := range stale {
		toClose = append(toClose, m.entries[fp].connector)
		delete(m.entries, fp)
	}
	for dsID, fps := range m.byDatasource {
		for _, fp := range stale {
			delete(fps, fp)
		}
		if len(fps) == 0 {
			delete(m.byDatasource, dsID)
		}
	}
	m.mu.Unlock()

	for _, c := range toClose {
		if err := c.Close(); err != nil {
			m.log.Warn("dspool: close idle connector", "error", err)
		}
	}
}

func decodeConfig(m map[string]any) Config {
	cfg := Config{Extra: m}
	if v, ok := m["dsn"].(string); ok {
		cfg.DSN = v
	}
	if v, ok := m["host"].(string); ok {
		cfg.Host = v
	}
	if v, ok := m["port"].(float64); ok {
		cfg.Port = int(v)
	}
	if v, ok := m["database"].(string); ok {
		cfg.Database = v
	}
	if v, ok := m["user"].(string); ok {
		cfg.User = v
	}
	if v, ok := m["password"].(string); ok {
		cfg.Password = v
	}
	return cfg
}
