package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/listenupapp/bookpeer/internal/config"
	"github.com/listenupapp/bookpeer/internal/logger"
	"github.com/listenupapp/bookpeer/internal/watcher"
)

// FileWatcherHandle wraps the file watcher with shutdown capability.
// Watcher is nil when watching is disabled.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	err := h.Watcher.Stop()
	select {
	case <-h.done:
	case <-time.After(shutdownTimeout):
	}
	return err
}

// Enabled reports whether the library is being watched.
func (h *FileWatcherHandle) Enabled() bool {
	return h.Watcher != nil
}

// ProvideFileWatcher provides the library watcher and feeds its events to
// the catalog service.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	catalogHandle := do.MustInvoke[*CatalogServiceHandle](i)

	if !cfg.Watch.Enabled {
		log.Info("Library watching disabled by configuration")
		return &FileWatcherHandle{}, nil
	}

	w, err := watcher.New(log.Component("watcher"), watcher.Options{
		SettleDelay: cfg.Watch.SettleDelay,
	})
	if err != nil {
		return nil, err
	}

	if err := w.Watch(cfg.Library.Path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("File watcher error", "error", err)
		}
	}()

	go func() {
		for {
			select {
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				log.Warn("file watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		defer close(done)
		if err := catalogHandle.Run(ctx, w.Events()); err != nil {
			log.Error("Catalog rebuild loop stopped", "error", err)
		}
	}()

	log.Info("Watching library", "path", cfg.Library.Path, "debounce", cfg.Watch.Debounce)

	return &FileWatcherHandle{
		Watcher: w,
		cancel:  cancel,
		done:    done,
	}, nil
}
