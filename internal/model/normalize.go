package model

import "strings"

// datasourceAliases collapses case/hyphen/underscore/space variants onto
// the closed DatasourceType set. Keys are pre-folded by
// foldAlias so lookups never branch on separator style.
var datasourceAliases = map[string]DatasourceType{
	"postgres":   DatasourcePostgreSQL,
	"postgresql": DatasourcePostgreSQL,

	"mariadb": DatasourceMySQL,
	"maria":   DatasourceMySQL,
	"my":      DatasourceMySQL,
	"mysql":   DatasourceMySQL,

	"sqlite":  DatasourceSQLite,
	"sqlite3": DatasourceSQLite,

	"ch":         DatasourceClickHouse,
	"yandex":     DatasourceClickHouse,
	"clickhouse": DatasourceClickHouse,

	"mssql":      DatasourceSQLServer,
	"tsql":       DatasourceSQLServer,
	"microsoft":  DatasourceSQLServer,
	"sqlserver":  DatasourceSQLServer,

	"ora":    DatasourceOracle,
	"orcl":   DatasourceOracle,
	"oracle": DatasourceOracle,

	"tsv":       DatasourceCSV,
	"txt":       DatasourceCSV,
	"delimited": DatasourceCSV,
	"csv":       DatasourceCSV,

	"xlsx":  DatasourceExcel,
	"xls":   DatasourceExcel,
	"xlsm":  DatasourceExcel,
	"excel": DatasourceExcel,

	"jsonl": DatasourceJSON,
	"ndjson": DatasourceJSON,
	"json":   DatasourceJSON,
}

// foldAlias lowercases and strips hyphens/underscores/spaces so that
// "SQL-Server", "sql_server", and "sql server" all resolve the same way.
func foldAlias(raw string) string {
	folded := strings.ToLower(strings.TrimSpace(raw))
	folded = strings.ReplaceAll(folded, "-", "")
	folded = strings.ReplaceAll(folded, "_", "")
	folded = strings.ReplaceAll(folded, " ", "")
	return folded
}

// NormalizeDatasourceType maps a raw type string to the closed set. The
// bool is false when the value has no known mapping; callers must reject
// the write in that case rather than store the raw value.
func NormalizeDatasourceType(raw string) (DatasourceType, bool) {
	t, ok := datasourceAliases[foldAlias(raw)]
	return t, ok
}
