// Package di provides dependency injection configuration for the bookpeer catalog.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bookpeer/internal/config"
	"github.com/listenupapp/bookpeer/internal/di/providers"
	"github.com/listenupapp/bookpeer/internal/logger"
	"github.com/listenupapp/bookpeer/internal/owner"
	"github.com/listenupapp/bookpeer/internal/scanner"
	"github.com/listenupapp/bookpeer/internal/scanner/audio"
)

// NewContainer creates and configures the DI container with all providers.
// Configuration is loaded from args, normally os.Args[1:].
func NewContainer(args []string) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, providers.Args(args))
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Discovery
	do.Provide(injector, providers.ProvideOwnerResolver)
	do.Provide(injector, providers.ProvideProber)
	do.Provide(injector, providers.ProvideFinder)

	// Catalog
	do.Provide(injector, providers.ProvideCatalogService)

	// Workers
	do.Provide(injector, providers.ProvideFileWatcher)

	return injector
}

// Bootstrap initializes all services so configuration and wiring errors
// surface before any work starts. The file watcher is not started here;
// invoke *providers.FileWatcherHandle once the first catalog is built.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	if _, err := do.Invoke[*owner.Resolver](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[audio.Prober](injector)
	_ = do.MustInvoke[*scanner.Finder](injector)
	_ = do.MustInvoke[*providers.CatalogServiceHandle](injector)

	return nil
}
