// Package catalog keeps the local library's catalog current, rebuilding it
// when the library directory changes.
package catalog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/listenupapp/bookpeer/internal/domain"
	apperrors "github.com/listenupapp/bookpeer/internal/errors"
	"github.com/listenupapp/bookpeer/internal/scanner"
	"github.com/listenupapp/bookpeer/internal/watcher"
)

// DefaultDebounce is the quiet period after the last relevant change before a rebuild.
const DefaultDebounce = 2 * time.Second

var errClosed = apperrors.New("catalog service closed")

// Finder builds a catalog. *scanner.Finder satisfies it.
type Finder interface {
	Discover(ctx context.Context, root, ext string, opts scanner.Options) (*domain.Catalog, error)
}

// Options configures a Service.
type Options struct {
	Root      string
	Extension string
	Scan      scanner.Options
	Debounce  time.Duration
}

// Service owns the current catalog of one library.
type Service struct {
	finder  Finder
	logger  *slog.Logger
	current *domain.Catalog
	opts    Options

	mu        sync.RWMutex
	rebuildMu sync.Mutex
	closed    bool
}

// NewService creates a catalog service. No catalog exists until the first Rebuild.
func NewService(finder Finder, logger *slog.Logger, opts Options) *Service {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Service{
		finder: finder,
		logger: logger,
		opts:   opts,
	}
}

// Rebuild runs discovery and replaces the current catalog, closing the
// streams of the one it replaces. When discovery fails the current catalog
// is kept and the error returned.
func (s *Service) Rebuild(ctx context.Context) (*domain.Catalog, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	if s.isClosed() {
		return nil, apperrors.Wrap(errClosed, apperrors.CodeInternal, "rebuild")
	}

	next, err := s.finder.Discover(ctx, s.opts.Root, s.opts.Extension, s.opts.Scan)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = next.Close()
		return nil, apperrors.Wrap(errClosed, apperrors.CodeInternal, "rebuild")
	}
	prev := s.current
	s.current = next
	s.mu.Unlock()

	if err := prev.Close(); err != nil {
		s.logger.Warn("closing previous catalog", "error", err)
	}

	s.logger.Info("catalog rebuilt",
		"run_id", next.Report.RunID,
		"books", next.Len(),
		"failures", len(next.Report.Failures),
	)
	return next, nil
}

// Current returns the latest catalog, or nil before the first successful
// Rebuild. Its streams stay open until the next Rebuild or Close.
func (s *Service) Current() *domain.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Run rebuilds the catalog whenever relevant events stop arriving for the
// debounce window. It returns when ctx is canceled or events is closed.
func (s *Service) Run(ctx context.Context, events <-chan watcher.Event) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !s.relevant(event) {
				continue
			}
			s.logger.Debug("library changed", "type", event.Type, "path", event.Path)
			if timer == nil {
				timer = time.NewTimer(s.opts.Debounce)
			} else {
				timer.Reset(s.opts.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if _, err := s.Rebuild(ctx); err != nil {
				if apperrors.CodeOf(err) == apperrors.CodeCanceled {
					return nil
				}
				s.logger.Error("catalog rebuild failed", "code", apperrors.CodeOf(err), "error", err)
			}
		}
	}
}

// relevant reports whether an event may change the catalog. Removals always
// count because a removed directory may have held books.
func (s *Service) relevant(event watcher.Event) bool {
	return event.Type == watcher.EventRemoved || strings.HasSuffix(event.Path, s.opts.Extension)
}

// Close releases the current catalog. Later rebuilds fail.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	err := s.current.Close()
	s.current = nil
	return err
}

func (s *Service) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
