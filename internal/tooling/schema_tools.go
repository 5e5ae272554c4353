package tooling

import (
	"context"
	"encoding/json"
)

// --- schema_get ---

type schemaGetTool struct{ resolver *datasourceResolver }

func (t *schemaGetTool) Name() string        { return "schema_get" }
func (t *schemaGetTool) Description() string { return "List every table name in a datasource." }
func (t *schemaGetTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["datasource_id"],"properties":{"datasource_id":{"type":"string"}}}`)
}
func (t *schemaGetTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		DatasourceID string `json:"datasource_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	_, conn, err := t.resolver.connector(ctx, params.DatasourceID)
	if err != nil {
		return errResultFrom(err)
	}
	tables, err := conn.ListTables(ctx)
	if err != nil {
		return errResultFrom(err)
	}
	return NewResult(summarizeCount(len(tables), "table")).WithData(tables)
}

// --- schema_search ---

type schemaSearchTool struct{ resolver *datasourceResolver }

func (t *schemaSearchTool) Name() string { return "schema_search" }
func (t *schemaSearchTool) Description() string {
	return "Search table names in a datasource by a glob pattern (single * wildcard)."
}
func (t *schemaSearchTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["datasource_id","pattern"],"properties":{"datasource_id":{"type":"string"},"pattern":{"type":"string"}}}`)
}
func (t *schemaSearchTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		DatasourceID string `json:"datasource_id"`
		Pattern      string `json:"pattern"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	_, conn, err := t.resolver.connector(ctx, params.DatasourceID)
	if err != nil {
		return errResultFrom(err)
	}
	tables, err := conn.SearchTables(ctx, params.Pattern)
	if err != nil {
		return errResultFrom(err)
	}
	return NewResult(summarizeCount(len(tables), "match")).WithData(tables)
}

// --- schema_related ---

type schemaRelatedTool struct{ resolver *datasourceResolver }

func (t *schemaRelatedTool) Name() string { return "schema_related" }
func (t *schemaRelatedTool) Description() string {
	return "Find tables related to a given table via foreign keys (or, for ClickHouse, name-pattern heuristics)."
}
func (t *schemaRelatedTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["datasource_id","table"],"properties":{"datasource_id":{"type":"string"},"table":{"type":"string"}}}`)
}
func (t *schemaRelatedTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		DatasourceID string `json:"datasource_id"`
		Table        string `json:"table"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	_, conn, err := t.resolver.connector(ctx, params.DatasourceID)
	if err != nil {
		return errResultFrom(err)
	}
	related, err := conn.GetRelatedTables(ctx, params.Table)
	if err != nil {
		return errResultFrom(err)
	}
	return NewResult(summarizeCount(len(related), "related table")).WithData(related)
}

// --- schema_stats ---

type schemaStatsTool struct{ resolver *datasourceResolver }

func (t *schemaStatsTool) Name() string        { return "schema_stats" }
func (t *schemaStatsTool) Description() string { return "Return a best-effort size/table-count summary of a datasource." }
func (t *schemaStatsTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["datasource_id"],"properties":{"datasource_id":{"type":"string"}}}`)
}
func (t *schemaStatsTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		DatasourceID string `json:"datasource_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	_, conn, err := t.resolver.connector(ctx, params.DatasourceID)
	if err != nil {
		return errResultFrom(err)
	}
	stats, err := conn.GetDatabaseStats(ctx)
	if err != nil {
		return errResultFrom(err)
	}
	return NewResult("database stats").WithData(stats)
}
