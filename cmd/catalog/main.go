// Package main provides the catalog command: it builds the audio-book catalog
// for a library directory and prints it, optionally rebuilding on changes.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/samber/do/v2"
	"github.com/schollz/progressbar/v3"

	"github.com/listenupapp/bookpeer/internal/di"
	"github.com/listenupapp/bookpeer/internal/di/providers"
	"github.com/listenupapp/bookpeer/internal/domain"
	apperrors "github.com/listenupapp/bookpeer/internal/errors"
	"github.com/listenupapp/bookpeer/internal/logger"
	"github.com/listenupapp/bookpeer/internal/scanner"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	view := &progressView{out: os.Stderr}

	injector := di.NewContainer(args)
	do.ProvideValue(injector, providers.ProgressFunc(view.update))

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}

	log := do.MustInvoke[*logger.Logger](injector)
	defer func() {
		if err := injector.Shutdown(); err != nil {
			log.Error("Shutdown error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := do.MustInvoke[*providers.CatalogServiceHandle](injector)
	catalog, err := svc.Rebuild(ctx)
	if err != nil {
		log.Error("discovery failed", "code", apperrors.CodeOf(err), "error", err)
		return 1
	}
	printCatalog(os.Stdout, catalog)

	handle := do.MustInvoke[*providers.FileWatcherHandle](injector)
	if !handle.Enabled() {
		return 0
	}

	log.Info("watching library for changes, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info("shutting down")
	return 0
}

// progressView renders discovery progress as one bar per phase.
type progressView struct {
	out   io.Writer
	bar   *progressbar.ProgressBar
	phase scanner.Phase
}

func (v *progressView) update(p *scanner.Progress) {
	if p.Phase != v.phase {
		if v.bar != nil {
			_ = v.bar.Finish()
			v.bar = nil
		}
		v.phase = p.Phase
		if p.Phase == scanner.PhaseComplete {
			return
		}
		v.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(v.out),
			progressbar.OptionSetDescription(string(p.Phase)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	if v.bar == nil {
		return
	}
	if p.Total > 0 && v.bar.GetMax() != p.Total {
		v.bar.ChangeMax(p.Total)
	}
	_ = v.bar.Set(p.Current)
}

func printCatalog(w io.Writer, catalog *domain.Catalog) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tAUTHOR\tCONTAINER\tDURATION\tOWNER")
	for _, b := range catalog.Books {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			b.Info.Title, b.Info.Author, b.Description.Container,
			b.Description.Duration().Round(time.Millisecond), b.Owner.Endpoint())
	}
	_ = tw.Flush()

	r := catalog.Report
	if r == nil {
		return
	}

	fmt.Fprintf(w, "\n=== Discovery Complete ===\n")
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	fmt.Fprintf(w, "Duration: %s\n", r.Duration())
	fmt.Fprintf(w, "Files seen: %d\n", r.FilesSeen)
	fmt.Fprintf(w, "Candidates: %d\n", r.Candidates)
	fmt.Fprintf(w, "Cataloged: %d\n", r.Cataloged)

	if len(r.Failures) == 0 {
		return
	}

	counts := r.CountByCode()
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)

	fmt.Fprintf(w, "Skipped: %d\n", len(r.Failures))
	for _, code := range codes {
		fmt.Fprintf(w, "  %s: %d\n", code, counts[apperrors.Code(code)])
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  [%s] %s: %v\n", f.Stage, f.Path, f.Err)
	}
}
