package scrape

import (
	"fmt"
)

// AccessLevel controls the visibility of uploaded documents.
type AccessLevel string

// Supported access levels.
const (
	AccessPublic       AccessLevel = "public"
	AccessOrganization AccessLevel = "organization"
	AccessPrivate      AccessLevel = "private"
)

// earliestSupportedYear: the site restructured its archives after 2016, so
// anything at or before that year cannot be traversed.
const earliestSupportedYear = 2016

// RunPolicy is the immutable per-run configuration.
type RunPolicy struct {
	TargetYear int
	// UploadLimit caps accepted documents per run. 0 means unlimited.
	UploadLimit int
	// TimeLimitMinutes caps the run's wall-clock duration. 0 means unlimited.
	TimeLimitMinutes int
	AccessLevel      AccessLevel
	DryRun           bool
	// RunID selects remote checkpoint storage and labels reports. Empty for
	// ad hoc local runs.
	RunID   string
	RunName string
}

// Tracked reports whether the run has a run id and therefore checkpoints to
// the remote ledger store.
func (p RunPolicy) Tracked() bool {
	return p.RunID != ""
}

// Validate rejects configurations that must abort before any fetch.
func (p RunPolicy) Validate() error {
	if p.TargetYear <= earliestSupportedYear {
		return fmt.Errorf("target year %d is not supported (must be after %d)", p.TargetYear, earliestSupportedYear)
	}
	switch p.AccessLevel {
	case AccessPublic, AccessOrganization, AccessPrivate:
	default:
		return fmt.Errorf("invalid access level %q (must be public, organization or private)", p.AccessLevel)
	}
	if p.UploadLimit < 0 {
		return fmt.Errorf("upload limit must be >= 0")
	}
	if p.TimeLimitMinutes < 0 {
		return fmt.Errorf("time limit must be >= 0")
	}
	return nil
}
