package domain

import (
	"errors"
	"time"

	apperrors "github.com/listenupapp/bookpeer/internal/errors"
)

// Stage names the discovery step at which a file was rejected.
type Stage string

// Discovery stages that can reject a file.
const (
	StageWalk     Stage = "walk"
	StageFilename Stage = "filename"
	StageProbe    Stage = "probe"
)

// FileError records why one path was left out of a catalog.
type FileError struct {
	Time  time.Time `json:"time"`
	Err   error     `json:"-"`
	Path  string    `json:"path"`
	Stage Stage     `json:"stage"`
}

// Code returns the error code of the failure.
func (e FileError) Code() apperrors.Code {
	return apperrors.CodeOf(e.Err)
}

// Report is the diagnostic summary of one discovery run.
type Report struct {
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at"`
	RunID       string      `json:"run_id"`
	Root        string      `json:"root"`
	Extension   string      `json:"extension"`
	Failures    []FileError `json:"failures,omitempty"`
	FilesSeen   int         `json:"files_seen"`
	Candidates  int         `json:"candidates"`
	Cataloged   int         `json:"cataloged"`
}

// CountByCode tallies failures per error code.
func (r *Report) CountByCode() map[apperrors.Code]int {
	counts := make(map[apperrors.Code]int)
	for _, f := range r.Failures {
		counts[f.Code()]++
	}
	return counts
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Catalog is the result of a discovery run. Books are in traversal order.
//
// The catalog owns every entry's audio stream; Close releases them all.
type Catalog struct {
	Report *Report      `json:"report"`
	Books  []*AudioBook `json:"books"`
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Books)
}

// Find returns the first entry with the given title and author.
func (c *Catalog) Find(title, author string) (*AudioBook, bool) {
	if c == nil {
		return nil, false
	}
	for _, b := range c.Books {
		if b.Info.Title == title && b.Info.Author == author {
			return b, true
		}
	}
	return nil, false
}

// ByOwner groups entries by owner endpoint.
func (c *Catalog) ByOwner() map[string][]*AudioBook {
	groups := make(map[string][]*AudioBook)
	if c == nil {
		return groups
	}
	for _, b := range c.Books {
		key := b.Owner.Endpoint()
		groups[key] = append(groups[key], b)
	}
	return groups
}

// Close releases every entry's stream and joins the errors.
func (c *Catalog) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, b := range c.Books {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
