package tooling

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/rizrmd/claystudio/internal/filesafe"
	"github.com/rizrmd/claystudio/internal/model"
	"github.com/rizrmd/claystudio/internal/store"
	"github.com/rizrmd/claystudio/internal/xlsxexport"
)

// --- excel_export ---

type excelExportTool struct {
	stores   *store.Stores
	resolver *fileResolver
}

func (t *excelExportTool) Name() string { return "excel_export" }
func (t *excelExportTool) Description() string {
	return "Build a .xlsx workbook from one or more sheets of tabular data and save it as a project file."
}
func (t *excelExportTool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{
		"type":"object",
		"required":["sheets"],
		"properties":{
			"file_name":{"type":"string"},
			"sheets":{
				"type":"array",
				"items":{
					"type":"object",
					"required":["headers","rows"],
					"properties":{
						"name":{"type":"string"},
						"headers":{"type":"array","items":{"type":"string"}},
						"rows":{"type":"array","items":{"type":"array"}},
						"freeze_header":{"type":"boolean"},
						"auto_filter":{"type":"boolean"},
						"column_width":{"type":"number"}
					}
				}
			}
		}
	}`)
}

type excelExportSheetInput struct {
	Name         string   `json:"name"`
	Headers      []string `json:"headers"`
	Rows         [][]any  `json:"rows"`
	FreezeHeader bool     `json:"freeze_header"`
	AutoFilter   bool     `json:"auto_filter"`
	ColumnWidth  float64  `json:"column_width"`
}

func (t *excelExportTool) Execute(ctx context.Context, input json.RawMessage) *Result {
	var params struct {
		FileName string                  `json:"file_name"`
		Sheets   []excelExportSheetInput `json:"sheets"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResultFrom(err)
	}

	wb := xlsxexport.Workbook{Sheets: make([]xlsxexport.Sheet, 0, len(params.Sheets))}
	for _, s := range params.Sheets {
		wb.Sheets = append(wb.Sheets, xlsxexport.Sheet{
			Name:        s.Name,
			Headers:     s.Headers,
			Rows:        s.Rows,
			FreezeHead:  s.FreezeHeader,
			AutoFilter:  s.AutoFilter,
			ColumnWidth: s.ColumnWidth,
		})
	}
	data, err := xlsxexport.Build(wb)
	if err != nil {
		return errResultFrom(err)
	}

	scope := ScopeFromCtx(ctx)
	fileName := params.FileName
	if fileName == "" {
		fileName = "export.xlsx"
	}
	fileID := uuid.NewString()
	relPath := fileID + "-" + filepath.Base(fileName)
	root := t.resolver.projectRoot(scope.ProjectID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return errResultFrom(model.Wrap(model.ErrInternal, "create project upload dir", err))
	}
	abs, err := filesafe.ResolvePath(relPath, root)
	if err != nil {
		return errResultFrom(model.Wrap(model.ErrInternal, "resolve export path", err))
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return errResultFrom(model.Wrap(model.ErrInternal, "write workbook", err))
	}

	f := &model.FileUpload{
		ID:        fileID,
		ClientID:  scope.ClientID,
		ProjectID: scope.ProjectID,
		FilePath:  relPath,
		FileSize:  int64(len(data)),
		MimeType:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
	if filesafe.ShouldInline(f.FileSize, t.resolver.maxInlineContentBytes) {
		f.Content = data
	}
	if err := t.stores.Files.Create(ctx, f); err != nil {
		return errResultFrom(err)
	}
	return NewResult("workbook exported").WithData(map[string]any{"file_id": fileID, "file_size": f.FileSize})
}
