package fetcher

import (
	"context"
	"errors"

	"github.com/LeCoonEtSaBande/foil-report/internal/model"
	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
)

var (
	// ErrNoWGModel is returned when a page has no usable WG table.
	ErrNoWGModel = errors.New("no WG forecast table")

	// ErrNoData is returned when no site produced a RawDataFile.
	ErrNoData = errors.New("no site produced forecast data")
)

// Fetcher writes RawDataFiles for the run into the working directory.
type Fetcher interface {
	// Fetch returns the per-site outcome. An error means the fetch as a whole
	// could not run; individual site failures are reported in the Result.
	Fetch(ctx context.Context, rc model.RunContext, dir *workdir.Dir) (*Result, error)
}

// Site identifies a spot to fetch.
type Site struct {
	ID   string
	Name string
}

// SiteFailure records why a site produced no RawDataFile.
type SiteFailure struct {
	SiteID string
	Err    error
}

// Result is the outcome of a fetch.
type Result struct {
	// Written lists the RawDataFile names written, in site order.
	Written []string

	// Failed lists the sites that produced no data.
	Failed []SiteFailure
}

// FailedIDs returns the identifiers of failed sites.
func (r *Result) FailedIDs() []string {
	ids := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		ids = append(ids, f.SiteID)
	}
	return ids
}
