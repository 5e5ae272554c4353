package dspool

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rizrmd/claystudio/internal/model"
)

// oracleConnector is a documented stub. No Oracle Go driver is wired in
// (godror needs cgo and was never pulled into this build); only
// TestConnection is implemented, as a bare TCP dial to host:port. Every
// other method fails fast with ErrUnsupported so callers get a clear
// signal instead of a silently wrong result.
type oracleConnector struct {
	addr string
}

func newOracleConnector(cfg Config) (*oracleConnector, error) {
	return &oracleConnector{addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)}, nil
}

func (c *oracleConnector) TestConnection(ctx context.Context) error {
	d := net.Dialer{Timeout: 3 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return model.Wrap(model.ErrConnectionFail, "dial oracle listener", err)
	}
	return conn.Close()
}

func (c *oracleConnector) Close() error { return nil }

func (c *oracleConnector) ExecuteQuery(ctx context.Context, query string, limit int) (*QueryResult, error) {
	return nil, unsupported(model.DatasourceOracle, "execute_query")
}

func (c *oracleConnector) FetchSchema(ctx context.Context) (*Schema, error) {
	return nil, unsupported(model.DatasourceOracle, "fetch_schema")
}

func (c *oracleConnector) ListTables(ctx context.Context) ([]string, error) {
	return nil, unsupported(model.DatasourceOracle, "list_tables")
}

func (c *oracleConnector) SearchTables(ctx context.Context, pattern string) ([]string, error) {
	return nil, unsupported(model.DatasourceOracle, "search_tables")
}

func (c *oracleConnector) GetRelatedTables(ctx context.Context, table string) ([]RelatedTable, error) {
	return nil, unsupported(model.DatasourceOracle, "get_related_tables")
}

func (c *oracleConnector) GetDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	return nil, unsupported(model.DatasourceOracle, "get_database_stats")
}
