package scanner

import (
	"context"

	"github.com/listenupapp/bookpeer/internal/domain"
)

// OwnerResolver supplies the owner stamped on every entry of a run.
type OwnerResolver interface {
	Resolve(ctx context.Context) (domain.BookOwner, error)
}

// Options configures a discovery run.
type Options struct {
	// Called on every progress change, from the goroutine running Discover.
	OnProgress func(*Progress)

	// Number of concurrent probe workers. Defaults to runtime.NumCPU().
	Workers int

	// Close each entry's stream right after probing. Entries then carry
	// format information only.
	MetadataOnly bool
}

// Progress tracks discovery progress.
type Progress struct {
	Phase       Phase
	CurrentItem string
	Current     int
	Total       int
	Errors      int
}

// Phase represents the current discovery phase.
type Phase string

// Phase constants, in the order a run passes through them.
const (
	PhaseWalking   Phase = "walking"
	PhaseFiltering Phase = "filtering"
	PhaseProbing   Phase = "probing"
	PhaseComplete  Phase = "complete"
)
