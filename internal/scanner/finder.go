// Package scanner builds audio-book catalogs from a library directory.
package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/listenupapp/bookpeer/internal/domain"
	apperrors "github.com/listenupapp/bookpeer/internal/errors"
	"github.com/listenupapp/bookpeer/internal/id"
	"github.com/listenupapp/bookpeer/internal/scanner/audio"
)

// Finder orchestrates discovery: walk, filter by extension, parse names,
// probe audio and stamp every entry with the local owner.
type Finder struct {
	logger *slog.Logger
	prober audio.Prober
	owners OwnerResolver
	walker *Walker
}

// NewFinder creates a new finder.
func NewFinder(logger *slog.Logger, prober audio.Prober, owners OwnerResolver) *Finder {
	return &Finder{
		logger: logger,
		prober: prober,
		owners: owners,
		walker: NewWalker(logger),
	}
}

type candidate struct {
	path  string
	index int
}

type outcome struct {
	book     *domain.AudioBook
	failure  *domain.FileError
	index    int
	canceled bool
}

// Discover catalogs every file below root whose name ends in ext.
//
// Run-level problems (root missing, owner unresolvable, cancellation) return
// an error and no catalog. Per-file problems exclude the file and are listed
// in the catalog report. The caller owns the returned catalog and must Close it.
func (f *Finder) Discover(ctx context.Context, root, ext string, opts Options) (*domain.Catalog, error) {
	if ext == "" {
		return nil, apperrors.Validation("file extension must not be empty")
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.PathNotFoundf("library path %s does not exist", root)
		}
		return nil, apperrors.Wrapf(err, apperrors.CodePathNotFound, "library path %s is not accessible", root)
	}
	if !info.IsDir() {
		return nil, apperrors.PathNotFoundf("library path %s is not a directory", root)
	}
	if err := checkReadable(root); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodePathNotFound, "library path %s is not readable", root)
	}

	report := &domain.Report{
		RunID:     id.MustGenerate("scan"),
		Root:      root,
		Extension: ext,
		StartedAt: time.Now(),
	}
	logger := f.logger.With("run_id", report.RunID)

	owner, err := f.owners.Resolve(ctx)
	if err != nil {
		logger.Error("owner resolution failed", "error", err)
		return nil, err
	}

	tracker := NewProgressTracker(opts.OnProgress)

	files, err := f.walk(ctx, root, tracker, report, logger)
	if err != nil {
		return nil, err
	}

	candidates := f.filter(files, ext, tracker, report)
	if len(candidates) == 0 {
		logger.Warn("no files match extension", "root", root, "ext", ext, "files_seen", report.FilesSeen)
		report.CompletedAt = time.Now()
		tracker.SetPhase(PhaseComplete)
		return &domain.Catalog{Report: report, Books: []*domain.AudioBook{}}, nil
	}

	books, err := f.probe(ctx, candidates, ext, owner, opts, tracker, report, logger)
	if err != nil {
		return nil, err
	}

	report.Cataloged = len(books)
	report.CompletedAt = time.Now()
	tracker.SetPhase(PhaseComplete)

	logger.Info("discovery complete",
		"root", root,
		"duration", report.Duration(),
		"files", report.FilesSeen,
		"candidates", report.Candidates,
		"cataloged", report.Cataloged,
		"failures", len(report.Failures),
	)

	return &domain.Catalog{Report: report, Books: books}, nil
}

// checkReadable reads one entry of dir so an unlistable root fails the run
// instead of producing an empty catalog.
func checkReadable(dir string) error {
	d, err := os.Open(dir) //#nosec G304 -- library path is configured by the operator
	if err != nil {
		return err
	}
	defer d.Close()

	if _, err := d.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// walk collects every regular file below root in traversal order.
func (f *Finder) walk(ctx context.Context, root string, tracker *ProgressTracker, report *domain.Report, logger *slog.Logger) ([]string, error) {
	tracker.SetPhase(PhaseWalking)
	logger.Info("starting walk", "path", root)

	files := make([]string, 0, 100)
	for wr := range f.walker.Walk(ctx, root) {
		if wr.Error != nil {
			report.Failures = append(report.Failures, domain.FileError{
				Path:  wr.Path,
				Stage: domain.StageWalk,
				Err:   wr.Error,
				Time:  time.Now(),
			})
			tracker.AddError()
			continue
		}
		files = append(files, wr.Path)
		tracker.Increment(wr.Path)
	}

	if err := ctx.Err(); err != nil {
		return nil, apperrors.Canceled(err)
	}

	report.FilesSeen = len(files)
	logger.Info("walk complete", "files", len(files))
	return files, nil
}

func (f *Finder) filter(files []string, ext string, tracker *ProgressTracker, report *domain.Report) []candidate {
	tracker.SetPhase(PhaseFiltering)
	tracker.SetTotal(len(files))

	candidates := make([]candidate, 0, len(files))
	for _, path := range files {
		if strings.HasSuffix(filepath.Base(path), ext) {
			candidates = append(candidates, candidate{path: path, index: len(candidates)})
		}
		tracker.Increment(path)
	}

	report.Candidates = len(candidates)
	return candidates
}

// probe runs the candidates through a worker pool. Results land in slots
// by candidate index, so the catalog keeps traversal order.
func (f *Finder) probe(ctx context.Context, candidates []candidate, ext string, owner domain.BookOwner, opts Options, tracker *ProgressTracker, report *domain.Report, logger *slog.Logger) ([]*domain.AudioBook, error) {
	tracker.SetPhase(PhaseProbing)
	tracker.SetTotal(len(candidates))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(candidates))

	jobs := make(chan candidate, len(candidates))
	results := make(chan outcome, len(candidates))

	for range workers {
		go func() {
			for c := range jobs {
				if ctx.Err() != nil {
					results <- outcome{index: c.index, canceled: true}
					continue
				}
				results <- f.catalogFile(ctx, c, ext, owner, opts.MetadataOnly, logger)
			}
		}()
	}

	for _, c := range candidates {
		jobs <- c
	}
	close(jobs)

	// Every job yields exactly one outcome, so draining never blocks
	// forever and every opened stream is accounted for.
	slots := make([]outcome, len(candidates))
	canceled := false
	for range len(candidates) {
		r := <-results
		slots[r.index] = r
		if r.canceled {
			canceled = true
		}
		if r.failure != nil {
			tracker.AddError()
		}
		tracker.Increment(candidates[r.index].path)
	}

	if canceled || ctx.Err() != nil {
		for _, s := range slots {
			_ = s.book.Close()
		}
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		logger.Info("discovery canceled", "candidates", len(candidates))
		return nil, apperrors.Canceled(cause)
	}

	books := make([]*domain.AudioBook, 0, len(candidates))
	for _, s := range slots {
		if s.failure != nil {
			report.Failures = append(report.Failures, *s.failure)
			continue
		}
		books = append(books, s.book)
	}
	return books, nil
}

// catalogFile turns one candidate into an entry. The name is parsed before
// the file is opened, so malformed names never hold a handle.
func (f *Finder) catalogFile(ctx context.Context, c candidate, ext string, owner domain.BookOwner, metadataOnly bool, logger *slog.Logger) outcome {
	fail := func(stage domain.Stage, err error) outcome {
		logger.Warn("excluding file", "path", c.path, "stage", stage, "code", apperrors.CodeOf(err), "error", err)
		return outcome{
			index: c.index,
			failure: &domain.FileError{
				Path:  c.path,
				Stage: stage,
				Err:   err,
				Time:  time.Now(),
			},
		}
	}

	info, err := ParseFilename(filepath.Base(c.path), ext)
	if err != nil {
		return fail(domain.StageFilename, err)
	}

	desc, err := f.prober.Probe(ctx, c.path)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeCanceled {
			return outcome{index: c.index, canceled: true}
		}
		return fail(domain.StageProbe, err)
	}

	if metadataOnly {
		_ = desc.Close()
		desc.Stream = nil
	}

	logger.Debug("cataloged", "path", c.path, "title", info.Title, "author", info.Author, "container", desc.Container)
	return outcome{index: c.index, book: domain.NewAudioBook(c.path, *desc, info, owner)}
}
