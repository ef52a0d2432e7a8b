package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bookpeer/internal/catalog"
	"github.com/listenupapp/bookpeer/internal/config"
	"github.com/listenupapp/bookpeer/internal/logger"
	"github.com/listenupapp/bookpeer/internal/scanner"
)

// ProgressFunc receives discovery progress. Provide one to observe rebuilds.
type ProgressFunc func(*scanner.Progress)

// CatalogServiceHandle wraps the catalog service with shutdown capability.
type CatalogServiceHandle struct {
	*catalog.Service
}

// Shutdown implements do.Shutdownable.
func (h *CatalogServiceHandle) Shutdown() error {
	return h.Service.Close()
}

// ProvideCatalogService provides the service holding the current catalog.
func ProvideCatalogService(i do.Injector) (*CatalogServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	finder := do.MustInvoke[*scanner.Finder](i)
	onProgress, _ := do.Invoke[ProgressFunc](i)

	svc := catalog.NewService(finder, log.Component("catalog"), catalog.Options{
		Root:      cfg.Library.Path,
		Extension: cfg.Library.Extension,
		Scan: scanner.Options{
			Workers:      cfg.Scan.Workers,
			MetadataOnly: cfg.Scan.MetadataOnly,
			OnProgress:   onProgress,
		},
		Debounce: cfg.Watch.Debounce,
	})

	return &CatalogServiceHandle{Service: svc}, nil
}
