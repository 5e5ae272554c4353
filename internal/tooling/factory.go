package tooling

import (
	"time"

	"github.com/rizrmd/claystudio/internal/contextdoc"
	"github.com/rizrmd/claystudio/internal/dmcache"
	"github.com/rizrmd/claystudio/internal/dspool"
	"github.com/rizrmd/claystudio/internal/store"
)

// Deps carries everything the closed tool set needs at construction
// time. BuildRegistry wires every tool in spec order: datasource,
// schema, files, context, analysis, excel export.
type Deps struct {
	Stores   *store.Stores
	Pool     *dspool.Manager
	Cache    *dmcache.Cache
	Compiler *contextdoc.Compiler

	DefaultRowLimit        int
	UploadRoot             string
	MaxInlineContentBytes  int64
	DownloadMaxBytes       int64
	DownloadWallTimeout    time.Duration
	DownloadRequestTimeout time.Duration
}

// NewDatasourceLoader exposes the resolver's dmcache.Loader so callers
// construct the shared Cache themselves (dmcache.New needs the loader
// before Deps.Cache exists).
func NewDatasourceLoader(stores *store.Stores) dmcache.Loader {
	r := newDatasourceResolver(stores, nil, nil)
	return r.loader
}

// BuildRegistry constructs every tool and registers it.
func BuildRegistry(d Deps) *Registry {
	resolver := newDatasourceResolver(d.Stores, d.Cache, d.Pool)
	files := &fileResolver{
		stores:                d.Stores,
		uploadRoot:            d.UploadRoot,
		maxInlineContentBytes: d.MaxInlineContentBytes,
		downloadMaxBytes:      d.DownloadMaxBytes,
		downloadWallTimeout:   d.DownloadWallTimeout,
		downloadRequestTO:     d.DownloadRequestTimeout,
	}

	r := NewRegistry()

	r.Register(&datasourceListTool{stores: d.Stores})
	r.Register(&datasourceDetailTool{stores: d.Stores})
	r.Register(&datasourceQueryTool{resolver: resolver, rowLimit: d.DefaultRowLimit})
	r.Register(&datasourceInspectTool{resolver: resolver})
	r.Register(&connectionTestTool{resolver: resolver, stores: d.Stores})

	r.Register(&schemaGetTool{resolver: resolver})
	r.Register(&schemaSearchTool{resolver: resolver})
	r.Register(&schemaRelatedTool{resolver: resolver})
	r.Register(&schemaStatsTool{resolver: resolver})

	r.Register(&filesListTool{stores: d.Stores})
	r.Register(&filesReadTool{resolver: files})
	r.Register(&filesSearchTool{stores: d.Stores})
	r.Register(&filesMetadataTool{resolver: files})
	r.Register(&filesPeekTool{resolver: files})
	r.Register(&filesRangeTool{resolver: files})
	r.Register(&filesSearchContentTool{resolver: files})
	r.Register(&fileDownloadURLTool{resolver: files, stores: d.Stores})

	r.Register(&contextReadTool{stores: d.Stores, compiler: d.Compiler})
	r.Register(&contextUpdateTool{stores: d.Stores})
	r.Register(&contextCompileTool{stores: d.Stores, compiler: d.Compiler})

	r.Register(&analysisRunTool{stores: d.Stores})
	r.Register(&analysisStatusTool{stores: d.Stores})

	r.Register(&excelExportTool{stores: d.Stores, resolver: files})

	return r
}
