package cliwire

import (
	"strings"
	"testing"

	"github.com/rizrmd/claystudio/internal/model"
)

func TestSummarizeDatasource_NoSchema(t *testing.T) {
	ds := &model.Datasource{Type: model.DatasourcePostgreSQL, Name: "orders_db"}
	got := summarizeDatasource(ds)
	if !strings.Contains(got, "orders_db") || !strings.Contains(got, "not yet inspected") {
		t.Errorf("summarizeDatasource = %q, want mention of name + not yet inspected", got)
	}
}

func TestSummarizeDatasource_WithSchema(t *testing.T) {
	ds := &model.Datasource{
		Type:       model.DatasourcePostgreSQL,
		Name:       "orders_db",
		SchemaInfo: []byte(`{"tables":[{"name":"orders","columns":["id","total"]},{"name":"customers","columns":["id","email"]}]}`),
	}
	got := summarizeDatasource(ds)
	if !strings.Contains(got, "orders") || !strings.Contains(got, "customers") {
		t.Errorf("summarizeDatasource = %q, want both table names", got)
	}
}

func TestSummarizeDatasource_MalformedSchema(t *testing.T) {
	ds := &model.Datasource{Type: model.DatasourcePostgreSQL, Name: "orders_db", SchemaInfo: []byte(`not json`)}
	got := summarizeDatasource(ds)
	if !strings.Contains(got, "orders_db") {
		t.Errorf("summarizeDatasource = %q, want fallback mentioning name", got)
	}
}

func TestSummarizeDatasource_TruncatesLongTableList(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`{"tables":[`)
	for i := 0; i < 25; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"name":"t` + string(rune('a'+i)) + `","columns":["id"]}`)
	}
	sb.WriteString(`]}`)

	ds := &model.Datasource{Type: model.DatasourcePostgreSQL, Name: "wide_db", SchemaInfo: []byte(sb.String())}
	got := summarizeDatasource(ds)
	if !strings.Contains(got, "…") {
		t.Errorf("summarizeDatasource = %q, want truncation marker for >20 tables", got)
	}
}
