// Package sink converts enriched candidates into upload calls and ledger
// updates, enforcing the per-run upload limit.
package sink

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/regwatch/dreal-scraper/internal/document"
	"github.com/regwatch/dreal-scraper/internal/ledger"
	"github.com/regwatch/dreal-scraper/internal/publish"
	"github.com/regwatch/dreal-scraper/internal/report"
	"github.com/regwatch/dreal-scraper/internal/scrape"
	"go.uber.org/zap"
)

// sourceHost is the source label attached to every uploaded document.
const sourceHost = "www.auvergne-rhone-alpes.developpement-durable.gouv.fr"

// UploadRequest is everything the upload client needs for one document.
// Exactly one of LocalPath and FileURL is set.
type UploadRequest struct {
	Title             string
	Description       string
	Source            string
	Language          string
	Access            string
	Project           string
	LocalPath         string
	FileURL           string
	OriginalExtension string
	Data              map[string]string
}

// Uploader is the external document store. The core never retries it: a
// failed upload aborts the run, and re-running is safe thanks to the ledger.
type Uploader interface {
	VerifyPermissions(ctx context.Context) error
	Upload(ctx context.Context, req UploadRequest) error
}

// Sink implements scrape.Sink. All counting state shared across invocations
// lives in the RunState, so the traversal observes the sticky limit flag.
type Sink struct {
	policy    scrape.RunPolicy
	state     *scrape.RunState
	uploader  Uploader
	ledger    *ledger.Ledger
	store     ledger.Store
	publisher publish.Publisher
	report    *report.Report
	project   string
	logger    *zap.Logger
}

// New wires a Sink.
func New(
	policy scrape.RunPolicy,
	state *scrape.RunState,
	uploader Uploader,
	ldg *ledger.Ledger,
	store ledger.Store,
	publisher publish.Publisher,
	rep *report.Report,
	project string,
	logger *zap.Logger,
) *Sink {
	return &Sink{
		policy:    policy,
		state:     state,
		uploader:  uploader,
		ledger:    ldg,
		store:     store,
		publisher: publisher,
		report:    rep,
		project:   project,
		logger:    logger,
	}
}

// Offer processes one enriched candidate. Candidates beyond the upload limit
// are silently discarded (not an error); an upload failure is returned and
// aborts the run. Dry runs skip only the upload call itself, so the ledger
// bookkeeping is exercised identically.
func (s *Sink) Offer(ctx context.Context, c *document.Candidate) error {
	key := c.Key()

	if !s.state.AcquireUploadSlot(s.policy.UploadLimit) {
		s.discardScratch(c)
		return nil
	}

	if !s.policy.DryRun {
		if err := s.uploader.Upload(ctx, s.buildRequest(c)); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
	}

	s.ledger.RecordDocument(key, c.RawLastModified, c.TargetYear)
	if c.Archive != nil {
		if s.ledger.TryCompleteArchive(c.Archive.URL, c.Archive.Manifest, c.RawLastModified, c.TargetYear) {
			s.logger.Info("Archive fully processed", zap.String("archive", c.Archive.URL))
		}
	}
	s.discardScratch(c)

	// Checkpoint after every successful write for tracked runs; a persist
	// failure is loud but cannot roll back the upload that already happened.
	if s.policy.Tracked() && !s.policy.DryRun {
		if err := s.store.Save(ctx, s.ledger.Snapshot()); err != nil {
			s.logger.Error("Failed to persist ledger checkpoint", zap.Error(err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, key); err != nil {
			s.logger.Warn("Failed to publish accepted-document event", zap.Error(err))
		}
	}

	s.report.Add(c)
	scrape.TotalDocumentsAccepted.Inc()
	s.logger.Info("Accepted document",
		zap.String("key", key),
		zap.String("title", c.Title),
		zap.Int("accepted_so_far", s.state.Uploaded()))
	return nil
}

// Close persists the ledger one final time.
func (s *Sink) Close(ctx context.Context) error {
	if err := s.store.Save(ctx, s.ledger.Snapshot()); err != nil {
		return fmt.Errorf("persist ledger at close: %w", err)
	}
	docs, zips := s.ledger.Counts()
	s.logger.Info("Ledger persisted",
		zap.Int("documents", docs),
		zap.Int("zips", zips))
	return nil
}

func (s *Sink) buildRequest(c *document.Candidate) UploadRequest {
	data := map[string]string{
		"authority":            c.Authority,
		"category":             c.Category,
		"category_local":       c.CategoryLocal,
		"event_data_key":       c.Key(),
		"project_id":           c.ProjectID,
		"source_scraper":       fmt.Sprintf("DREAL ARA Scraper %d", c.TargetYear),
		"source_file_url":      c.SourceFileURL,
		"source_filename":      c.SourceFilename,
		"source_page_url":      c.SourcePageURL,
		"publication_date":     c.LastModified.Format("2006-01-02"),
		"publication_time":     c.LastModified.Format("15:04:05 UTC"),
		"publication_datetime": c.LastModified.Format("2006-01-02 15:04:05 UTC"),
		"year":                 fmt.Sprintf("%d", c.TargetYear),
		"departments":          strings.Join(c.Departments, ","),
	}

	req := UploadRequest{
		Title:             c.Title,
		Description:       c.Project,
		Source:            sourceHost,
		Language:          "fra",
		Access:            string(s.policy.AccessLevel),
		Project:           s.project,
		OriginalExtension: strings.TrimPrefix(strings.ToLower(path.Ext(c.SourceFilename)), "."),
		Data:              data,
	}
	if c.Archive != nil {
		req.LocalPath = c.Archive.LocalPath
		data["source_file_zip_path"] = c.Archive.RelativePath
	} else {
		req.FileURL = c.SourceFileURL
	}
	return req
}

// discardScratch deletes an archive member's extracted file, if any.
func (s *Sink) discardScratch(c *document.Candidate) {
	if c.Archive == nil || c.Archive.LocalPath == "" {
		return
	}
	if err := os.Remove(c.Archive.LocalPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to delete scratch file",
			zap.String("path", c.Archive.LocalPath), zap.Error(err))
	}
}
