// Package report assembles the end-of-run summary mailed to operators.
package report

import (
	"fmt"
	"strings"
	"sync"

	"github.com/regwatch/dreal-scraper/internal/document"
)

// Report accumulates one row per accepted document.
type Report struct {
	mu    sync.Mutex
	items []row
}

type row struct {
	title          string
	project        string
	authority      string
	category       string
	categoryLocal  string
	year           int
	publicationDay string
	sourceFilename string
	sourceFileURL  string
	sourcePageURL  string
	key            string
}

// New returns an empty report.
func New() *Report {
	return &Report{}
}

// Add records an accepted candidate's key fields.
func (r *Report) Add(c *document.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, row{
		title:          c.Title,
		project:        c.Project,
		authority:      c.Authority,
		category:       c.Category,
		categoryLocal:  c.CategoryLocal,
		year:           c.TargetYear,
		publicationDay: c.LastModified.Format("2006-01-02"),
		sourceFilename: c.SourceFilename,
		sourceFileURL:  c.SourceFileURL,
		sourcePageURL:  c.SourcePageURL,
		key:            c.Key(),
	})
}

// Count returns the number of accepted documents.
func (r *Report) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Subject builds the completion mail subject.
func (r *Report) Subject(targetYear int, runName string) string {
	return fmt.Sprintf("DREAL ARA Scraper %d (New: %d) %s", targetYear, r.Count(), runName)
}

// Body builds the completion mail body listing every accepted item.
func (r *Report) Body(runID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "DREAL ARA Scraper run %s\n\n", runID)
	fmt.Fprintf(&b, "SCRAPED ITEMS (%d)\n", len(r.items))
	for _, item := range r.items {
		fmt.Fprintf(&b, `
title: %s
project: %s
authority: %s
category: %s
category_local: %s
year: %d
publication_date: %s
source_filename: %s
source_file_url: %s
source_page_url: %s
event_data_key: %s
`,
			item.title, item.project, item.authority, item.category,
			item.categoryLocal, item.year, item.publicationDay,
			item.sourceFilename, item.sourceFileURL, item.sourcePageURL, item.key)
	}
	return b.String()
}
