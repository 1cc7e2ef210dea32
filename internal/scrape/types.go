// Package scrape drives the discovery traversal over the DREAL ARA site:
// departments, year listings, paginated project lists, project pages and file
// links, with ledger-backed dedup gates and cooperative stop conditions.
package scrape

import (
	"context"
	"net/http"
	"time"

	"github.com/regwatch/dreal-scraper/internal/document"
)

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Page is the result of fetching one URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Fetcher performs the network fetches of the traversal. Get retrieves the
// full body; Head retrieves headers only.
type Fetcher interface {
	Get(ctx context.Context, url string) (Page, error)
	Head(ctx context.Context, url string) (Page, error)
}

// Sink consumes enriched candidates: upload side effect plus ledger
// write-back. Offer errors are fatal to the run.
type Sink interface {
	Offer(ctx context.Context, c *document.Candidate) error
}

// Batch is one expanded archive: its member candidates plus the scratch
// directory they were extracted into.
type Batch struct {
	Members []*document.Candidate
	Dir     string
}

// Expander downloads and extracts a zip archive, fanning its members out as
// candidates. RemoveDir releases a batch's scratch directory once the
// members are consumed.
type Expander interface {
	Expand(ctx context.Context, c *document.Candidate) (Batch, error)
	RemoveDir(dir string)
}

// departmentRef identifies one geographic department during traversal.
type departmentRef struct {
	Name string
	Code string
}

// Config carries the site-specific knobs of the traversal.
type Config struct {
	// EntryURL is the fixed department listing page the crawl starts from.
	EntryURL string
	// Authority is attributed to every discovered document.
	Authority string
	// CategoryLocal is the site-native category label of the listing.
	CategoryLocal string
}
