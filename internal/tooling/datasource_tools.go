package tooling

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rizrmd/claystudio/internal/dmcache"
	"github.com/rizrmd/claystudio/internal/dspool"
	"github.com/rizrmd/claystudio/internal/model"
	"github.com/rizrmd/claystudio/internal/store"
)

// datasourceResolver is the shared authorization+lookup path every
// datasource/schema tool goes through: DMC answers "does this
// requester/project own this datasource", DPM hands back the live
// Connector. Both are process-wide singletons injected at factory time.
type datasourceResolver struct {
	stores *store.Stores
	cache  *dmcache.Cache
	pool   *dspool.Manager
}

func newDatasourceResolver(stores *store.Stores, cache *dmcache.Cache, pool *dspool.Manager) *datasourceResolver {
	return &datasourceResolver{stores: stores, cache: cache, pool: pool}
}

// loader is the dmcache.Loader backing this resolver's cache, installed
// once at factory construction time.
func (r *datasourceResolver) loader(ctx context.Context, datasourceID, requesterID string, isRoot bool) (*dmcache.Entry, error) {
	ds, err := r.stores.Datasources.Get(ctx, datasourceID)
	if err != nil {
		return nil, err
	}
	proj, err := r.stores.Projects.Get(ctx, ds.ProjectID)
	if err != nil {
		return nil, err
	}
	return &dmcache.Entry{
		DatasourceID:     ds.ID,
		ProjectID:        ds.ProjectID,
		ClientID:         proj.ClientID,
		Type:             ds.Type,
		ConnectionConfig: ds.ConnectionConfig,
	}, nil
}

// resolve returns the cached Entry for datasourceID, refusing it unless
// it belongs to the scope's project.
func (r *datasourceResolver) resolve(ctx context.Context, datasourceID string) (*dmcache.Entry, error) {
	scope := ScopeFromCtx(ctx)
	entry, err := r.cache.Get(ctx, datasourceID, scope.RequesterID, scope.IsRoot)
	if err != nil {
		return nil, err
	}
	if entry.ProjectID != scope.ProjectID {
		return nil, model.NewError(model.ErrForbidden, "datasource does not belong to this project")
	}
	return entry, nil
}

func (r *datasourceResolver) connector(ctx context.Context, datasourceID string) (*dmcache.Entry, dspool.Connector, error) {
	entry, err := r.resolve(ctx, datasourceID)
	if err != nil {
		return nil, nil, err
	}
	conn, err := r.pool.Get(ctx, entry.DatasourceID, entry.Type, entry.ConnectionConfig)
	if err != nil {
		return nil, nil, err
	}
	return entry, conn, nil
}

func errResultFrom(err error) *Result {
	return ErrorResult(err.Error())
}

// --- datasource_list ---

type datasourceListTool struct{ stores *store.Stores }

func (t *datasourceListTool) Name() string        { return "datasource_list" }
func (t *datasourceListTool) Description() string { return "List every datasource configured for the current project." }
func (t *datasourceListTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}
func (t *datasourceListTool) Execute(ctx context.Context, _ json.RawMessage) *Result {
	scope := ScopeFromCtx(ctx)
	list, err := t.stores.Datasources.ListByProject(ctx, scope.ProjectID)
	if err != nil {
		return errResultFrom(err)
	}
	type item struct {
		ID   string               `json:"id"`
		Name string               `json:"name"`
		Type model.DatasourceType `json:"type"`
	}
	out := make([]item, 0, len(list))
	for _, d := range list {
		out = append(out, item{ID: d.ID, Name: d.Name, Type: d.Type})
	}
	return NewResult(summarizeCount(len(out), "datasource")).WithData(out)
}

func summarizeCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

// --- datasource_detail ---

type datasourceDetailTool struct{ stores *store.Stores }

func (t *datasourceDetailTool) Name() string { return "datasource_detail" }
func (t *datasourceDetailTool) Description() string {
	return "Return a datasource's name, type, and last-tested timestamp (never the raw connection config)."
}
func (t *datasourceDetailTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["datasource_id"],"properties":{"datasource_id":{"type":"string"}}}`)
}
func (t *datasourceDetailTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		DatasourceID string `json:"datasource_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	ds, err := t.stores.Datasources.Get(ctx, params.DatasourceID)
	if err != nil {
		return errResultFrom(err)
	}
	scope := ScopeFromCtx(ctx)
	if ds.ProjectID != scope.ProjectID {
		return errResultFrom(model.NewError(model.ErrForbidden, "datasource does not belong to this project"))
	}
	return NewResult("datasource detail").WithData(map[string]any{
		"id": ds.ID, "name": ds.Name, "type": ds.Type, "last_tested_at": ds.LastTestedAt,
	})
}

// --- datasource_query ---

type datasourceQueryTool struct {
	resolver *datasourceResolver
	rowLimit int
}

func (t *datasourceQueryTool) Name() string { return "datasource_query" }
func (t *datasourceQueryTool) Description() string {
	return "Run a read query against a datasource and return its rows as JSON-typed scalars."
}
func (t *datasourceQueryTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["datasource_id","query"],"properties":{"datasource_id":{"type":"string"},"query":{"type":"string"},"limit":{"type":"integer"}}}`)
}
func (t *datasourceQueryTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		DatasourceID string `json:"datasource_id"`
		Query        string `json:"query"`
		Limit        int    `json:"limit"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	_, conn, err := t.resolver.connector(ctx, params.DatasourceID)
	if err != nil {
		return errResultFrom(err)
	}
	limit := params.Limit
	if limit <= 0 {
		limit = t.rowLimit
	}
	res, err := conn.ExecuteQuery(ctx, params.Query, limit)
	if err != nil {
		return errResultFrom(err)
	}
	return NewResult(summarizeCount(res.RowCount, "row")).WithData(res)
}

// --- datasource_inspect ---

type datasourceInspectTool struct{ resolver *datasourceResolver }

func (t *datasourceInspectTool) Name() string { return "datasource_inspect" }
func (t *datasourceInspectTool) Description() string {
	return "Fetch the full table/column schema of a datasource."
}
func (t *datasourceInspectTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["datasource_id"],"properties":{"datasource_id":{"type":"string"}}}`)
}
func (t *datasourceInspectTool) Execute(ctx context.Context, input json.RawMessage) *Result {
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
	schema, err := conn.FetchSchema(ctx)
	if err != nil {
		return errResultFrom(err)
	}
	return NewResult(summarizeCount(len(schema.Tables), "table")).WithData(schema)
}

// --- connection_test ---

type connectionTestTool struct {
	resolver *datasourceResolver
	stores   *store.Stores
}

func (t *connectionTestTool) Name() string        { return "connection_test" }
func (t *connectionTestTool) Description() string { return "Probe a datasource's reachability and record the result." }
func (t *connectionTestTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["datasource_id"],"properties":{"datasource_id":{"type":"string"}}}`)
}
func (t *connectionTestTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		DatasourceID string `json:"datasource_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}
	entry, conn, err := t.resolver.connector(ctx, params.DatasourceID)
	if err != nil {
		return errResultFrom(err)
	}
	testErr := conn.TestConnection(ctx)
	ok := testErr == nil
	now := time.Now().UTC()
	if err := t.stores.Datasources.UpdateSchemaInfo(ctx, entry.DatasourceID, nil, now); err != nil {
		// Surfaced to the LLM via Data, not swallowed, but doesn't block
		// the reachability verdict the caller actually asked for.
		return NewResult(connectionVerdict(ok)).WithData(map[string]any{"ok": ok, "tested_at": now, "record_error": err.Error()})
	}
	data := map[string]any{"ok": ok, "tested_at": now}
	if testErr != nil {
		data["error"] = testErr.Error()
	}
	return NewResult(connectionVerdict(ok)).WithData(data)
}

func connectionVerdict(ok bool) string {
	if ok {
		return "connection succeeded"
	}
	return "connection failed"
}
