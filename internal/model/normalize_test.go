package model

import "testing"

func TestNormalizeDatasourceType(t *testing.T) {
	tests := []struct {
		raw      string
		wantType DatasourceType
		wantOK   bool
	}{
		{"postgres", DatasourcePostgreSQL, true},
		{"PostgreSQL", DatasourcePostgreSQL, true},
		{"SQL-Server", DatasourceSQLServer, true},
		{"sql_server", DatasourceSQLServer, true},
		{"sql server", DatasourceSQLServer, true},
		{" MySQL ", DatasourceMySQL, true},
		{"clickhouse", DatasourceClickHouse, true},
		{"ndjson", DatasourceJSON, true},
		{"nonsense", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeDatasourceType(tt.raw)
		if got != tt.wantType || ok != tt.wantOK {
			t.Errorf("NormalizeDatasourceType(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.wantType, tt.wantOK)
		}
	}
}
