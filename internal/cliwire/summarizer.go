// Package cliwire assembles the shared collaborators (stores, pools,
// caches, registries, engines) that cmd's serve/worker entrypoints hand
// to internal/httpapi, internal/wsfanout, and internal/analysisjob —
// kept out of cmd/ so the wiring is unit-testable without cobra.
package cliwire

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rizrmd/claystudio/internal/model"
	"github.com/rizrmd/claystudio/internal/store"
)

// NewContextSummarizer builds the contextdoc.DatasourceSummarizer: given
// a project and the datasource name embedded in a {{datasource:name}}
// directive, it returns a short human-readable summary of that
// datasource's cached schema info.
func NewContextSummarizer(stores *store.Stores) func(ctx context.Context, projectID, datasourceName string) (string, error) {
	return func(ctx context.Context, projectID, datasourceName string) (string, error) {
		datasources, err := stores.Datasources.ListByProject(ctx, projectID)
		if err != nil {
			return "", fmt.Errorf("list datasources: %w", err)
		}
		for _, ds := range datasources {
			if ds.Name != datasourceName {
				continue
			}
			return summarizeDatasource(ds), nil
		}
		return "", fmt.Errorf("datasource %q not found in project", datasourceName)
	}
}

func summarizeDatasource(ds *model.Datasource) string {
	if len(ds.SchemaInfo) == 0 {
		return fmt.Sprintf("%s datasource %q (schema not yet inspected)", ds.Type, ds.Name)
	}
	var schema struct {
		Tables []struct {
			Name    string   `json:"name"`
			Columns []string `json:"columns"`
		} `json:"tables"`
	}
	if err := json.Unmarshal(ds.SchemaInfo, &schema); err != nil || len(schema.Tables) == 0 {
		return fmt.Sprintf("%s datasource %q", ds.Type, ds.Name)
	}
	names := make([]string, 0, len(schema.Tables))
	for _, t := range schema.Tables {
		if len(names) >= 20 {
			names = append(names, "…")
			break
		}
		names = append(names, t.Name)
	}
	return fmt.Sprintf("%s datasource %q with tables: %v", ds.Type, ds.Name, names)
}
