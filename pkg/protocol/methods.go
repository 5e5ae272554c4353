package protocol

// RPC method names the sandbox bridge (internal/sandboxjs) accepts on a
// script's stdout `RPC:{"id":...,"method":...,"params":...}` line. These
// mirror the file and datasource tool subset exposed to the TRD
// dispatcher — every value here must equal a registered tool name.
const (
	RPCDatasourceList     = "datasource_list"
	RPCDatasourceDetail   = "datasource_detail"
	RPCDatasourceQuery    = "datasource_query"
	RPCDatasourceInspect  = "datasource_inspect"
	RPCConnectionTest     = "connection_test"

	RPCSchemaGet     = "schema_get"
	RPCSchemaSearch  = "schema_search"
	RPCSchemaRelated = "schema_related"
	RPCSchemaStats   = "schema_stats"

	RPCFilesList          = "files_list"
	RPCFilesRead          = "files_read"
	RPCFilesSearch        = "files_search"
	RPCFilesMetadata      = "files_metadata"
	RPCFilesPeek          = "files_peek"
	RPCFilesRange         = "files_range"
	RPCFilesSearchContent = "files_searchContent"
)

// sandboxRPCMethods is the closed set ASX will dispatch; anything else on
// an RPC: line is rejected with an RPC error frame rather than silently
// forwarded. Values are the registered tool names.
var sandboxRPCMethods = map[string]bool{
	RPCDatasourceList:     true,
	RPCDatasourceDetail:   true,
	RPCDatasourceQuery:    true,
	RPCDatasourceInspect:  true,
	RPCConnectionTest:     true,
	RPCSchemaGet:          true,
	RPCSchemaSearch:       true,
	RPCSchemaRelated:      true,
	RPCSchemaStats:        true,
	RPCFilesList:          true,
	RPCFilesRead:          true,
	RPCFilesSearch:        true,
	RPCFilesMetadata:      true,
	RPCFilesPeek:          true,
	RPCFilesRange:         true,
	RPCFilesSearchContent: true,
}

// sandboxRPCWireAliases maps the dotted wire names a sandboxed script's
// ctx (ctx.datasource.query, ctx.files.read, ...) actually emits on its
// RPC: line to the underscore-joined tool name the registry holds them
// under, so a script following the documented "<dotted.name>" method
// format dispatches to the same tool a bare tool name would.
var sandboxRPCWireAliases = map[string]string{
	"datasource.list":          RPCDatasourceList,
	"datasource.detail":        RPCDatasourceDetail,
	"datasource.query":         RPCDatasourceQuery,
	"datasource.inspect":       RPCDatasourceInspect,
	"connection.test":          RPCConnectionTest,
	"schema.get":               RPCSchemaGet,
	"schema.search":            RPCSchemaSearch,
	"schema.related":           RPCSchemaRelated,
	"schema.stats":             RPCSchemaStats,
	"files.list":               RPCFilesList,
	"files.read":               RPCFilesRead,
	"files.search":             RPCFilesSearch,
	"files.metadata":           RPCFilesMetadata,
	"files.peek":               RPCFilesPeek,
	"files.range":              RPCFilesRange,
	"files.searchContent":      RPCFilesSearchContent,
}

// IsSandboxRPCMethod reports whether method is in the closed RPC subset
// the sandbox bridge will dispatch, accepting either the registered tool
// name or its dotted wire-name alias.
func IsSandboxRPCMethod(method string) bool {
	_, ok := CanonicalSandboxRPCMethod(method)
	return ok
}

// CanonicalSandboxRPCMethod resolves method — either a registered tool
// name or its dotted wire-name alias — to the registered tool name the
// registry holds it under. ok is false for anything outside the closed set.
func CanonicalSandboxRPCMethod(method string) (string, bool) {
	if sandboxRPCMethods[method] {
		return method, true
	}
	if canonical, ok := sandboxRPCWireAliases[method]; ok {
		return canonical, true
	}
	return "", false
}
