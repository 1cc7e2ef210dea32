// Package document defines the candidate record flowing through the scrape
// pipeline and the normalization applied to it before upload.
package document

import "time"

// ArchiveContext carries the archive-specific fields of a candidate that was
// extracted from a zip file.
type ArchiveContext struct {
	// URL is the absolute URL of the source archive.
	URL string
	// LocalPath points at the extracted file in scratch space.
	LocalPath string
	// RelativePath is the file's path inside the archive.
	RelativePath string
	// Manifest is the sorted, deduplicated set of supported relative paths
	// inside the same archive. The ledger needs it to decide when the whole
	// archive is done.
	Manifest []string
}

// Candidate is a document discovered by the traversal, not yet confirmed
// eligible for upload. Archive is nil for plain file links.
type Candidate struct {
	Title          string
	Project        string
	ProjectID      string
	SourcePageURL  string
	SourceFileURL  string
	SourceFilename string
	Authority      string
	CategoryLocal  string
	Category       string
	// DepartmentCode is the two-digit code parsed from the traversal's
	// department label.
	DepartmentCode string
	// Departments is the sorted, duplicate-free union of the traversal code
	// and any codes inferred during enrichment.
	Departments []string
	TargetYear  int
	// LastModified is the origin-reported timestamp from the HEAD probe (or
	// inherited from the archive). RawLastModified keeps the origin header
	// string for the ledger.
	LastModified    time.Time
	RawLastModified string

	Archive *ArchiveContext
}

// FromArchive reports whether the candidate was extracted from a zip.
func (c *Candidate) FromArchive() bool {
	return c.Archive != nil
}

// Key returns the ledger key identifying this document across runs: the file
// URL, or for archive members the archive URL joined with the member path.
func (c *Candidate) Key() string {
	if c.Archive != nil {
		return c.Archive.URL + "/" + c.Archive.RelativePath
	}
	return c.SourceFileURL
}
