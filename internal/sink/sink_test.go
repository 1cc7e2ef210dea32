package sink

import (
	"context"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/regwatch/dreal-scraper/internal/document"
	"github.com/regwatch/dreal-scraper/internal/ledger"
	"github.com/regwatch/dreal-scraper/internal/publish"
	"github.com/regwatch/dreal-scraper/internal/report"
	"github.com/regwatch/dreal-scraper/internal/scrape"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

// recordingUploader captures upload requests and can be told to fail.
type recordingUploader struct {
	requests []UploadRequest
	err      error
}

func (u *recordingUploader) VerifyPermissions(context.Context) error { return nil }

func (u *recordingUploader) Upload(_ context.Context, req UploadRequest) error {
	if u.err != nil {
		return u.err
	}
	u.requests = append(u.requests, req)
	return nil
}

type sinkFixture struct {
	sink      *Sink
	uploader  *recordingUploader
	ledger    *ledger.Ledger
	store     *ledger.MemoryStore
	publisher *publish.MemoryPublisher
	report    *report.Report
	state     *scrape.RunState
}

func newSinkFixture(policy scrape.RunPolicy) *sinkFixture {
	if policy.AccessLevel == "" {
		policy.AccessLevel = scrape.AccessPrivate
	}
	state := scrape.NewRunState(stubClock{now: time.Now()}, policy)
	ldg := ledger.New(ledger.EmptySnapshot())
	store := ledger.NewMemoryStore()
	uploader := &recordingUploader{}
	publisher := publish.NewMemoryPublisher()
	rep := report.New()
	return &sinkFixture{
		sink:      New(policy, state, uploader, ldg, store, publisher, rep, "regwatch", zap.NewNop()),
		uploader:  uploader,
		ledger:    ldg,
		store:     store,
		publisher: publisher,
		report:    rep,
		state:     state,
	}
}

func plainCandidate(url string) *document.Candidate {
	c := &document.Candidate{
		Title:           "Décision préfectorale",
		Project:         "Lyon (69) : Extension d'usine",
		SourcePageURL:   "https://example.org/projet-a1001.html",
		SourceFileURL:   url,
		Authority:       "Préfecture de région Auvergne-Rhône-Alpes",
		CategoryLocal:   "Les décisions au cas par cas - Projets",
		DepartmentCode:  "69",
		TargetYear:      2024,
		LastModified:    time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC),
		RawLastModified: "Sun, 01 Feb 2026 09:30:00 GMT",
	}
	if err := document.Enrich(c); err != nil {
		panic(err)
	}
	return c
}

func TestOfferUploadsAndRecords(t *testing.T) {
	fix := newSinkFixture(scrape.RunPolicy{TargetYear: 2024})
	url := "https://example.org/IMG/pdf/decision.pdf"

	require.NoError(t, fix.sink.Offer(context.Background(), plainCandidate(url)))

	require.Len(t, fix.uploader.requests, 1)
	req := fix.uploader.requests[0]
	require.Equal(t, url, req.FileURL)
	require.Empty(t, req.LocalPath)
	require.Equal(t, "fra", req.Language)
	require.Equal(t, "private", req.Access)
	require.Equal(t, "pdf", req.OriginalExtension)
	require.Equal(t, "DREAL ARA Scraper 2024", req.Data["source_scraper"])
	require.Equal(t, "2026-02-01", req.Data["publication_date"])
	require.Equal(t, "69", req.Data["departments"])

	require.True(t, fix.ledger.ContainsDocument(url))
	require.Equal(t, []string{url}, fix.publisher.Keys())
	require.Equal(t, 1, fix.report.Count())
	require.Equal(t, 1, fix.state.Uploaded())
}

func TestOfferDryRunSkipsOnlyUpload(t *testing.T) {
	fix := newSinkFixture(scrape.RunPolicy{TargetYear: 2024, DryRun: true})
	url := "https://example.org/IMG/pdf/decision.pdf"

	require.NoError(t, fix.sink.Offer(context.Background(), plainCandidate(url)))

	require.Empty(t, fix.uploader.requests)
	// Bookkeeping still happens so a dry run exercises the whole pipeline.
	require.True(t, fix.ledger.ContainsDocument(url))
	require.Equal(t, 1, fix.report.Count())
	require.Equal(t, 1, fix.state.Uploaded())
}

func TestOfferSilentlyDiscardsPastLimit(t *testing.T) {
	fix := newSinkFixture(scrape.RunPolicy{TargetYear: 2024, UploadLimit: 1})
	a := "https://example.org/IMG/pdf/a.pdf"
	b := "https://example.org/IMG/pdf/b.pdf"

	require.NoError(t, fix.sink.Offer(context.Background(), plainCandidate(a)))
	require.NoError(t, fix.sink.Offer(context.Background(), plainCandidate(b)))

	require.Len(t, fix.uploader.requests, 1)
	require.True(t, fix.ledger.ContainsDocument(a))
	require.False(t, fix.ledger.ContainsDocument(b))
	require.True(t, fix.state.LimitAttained())
}

func TestOfferUploadFailureIsFatal(t *testing.T) {
	fix := newSinkFixture(scrape.RunPolicy{TargetYear: 2024})
	fix.uploader.err = errors.New("503 from upstream")
	url := "https://example.org/IMG/pdf/decision.pdf"

	err := fix.sink.Offer(context.Background(), plainCandidate(url))
	require.Error(t, err)
	require.Contains(t, err.Error(), "503 from upstream")
	require.False(t, fix.ledger.ContainsDocument(url))
}

func TestOfferCheckpointsTrackedRuns(t *testing.T) {
	fix := newSinkFixture(scrape.RunPolicy{TargetYear: 2024, RunID: "run-42"})

	require.NoError(t, fix.sink.Offer(context.Background(), plainCandidate("https://example.org/IMG/pdf/a.pdf")))
	require.NoError(t, fix.sink.Offer(context.Background(), plainCandidate("https://example.org/IMG/pdf/b.pdf")))
	require.Equal(t, 2, fix.store.Saves())

	require.NoError(t, fix.sink.Close(context.Background()))
	require.Equal(t, 3, fix.store.Saves())

	snap, err := fix.store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Documents, 2)
}

func TestOfferDoesNotCheckpointUntrackedRuns(t *testing.T) {
	fix := newSinkFixture(scrape.RunPolicy{TargetYear: 2024})

	require.NoError(t, fix.sink.Offer(context.Background(), plainCandidate("https://example.org/IMG/pdf/a.pdf")))
	require.Equal(t, 0, fix.store.Saves())

	// Close persists regardless, so ad hoc runs still keep their snapshot.
	require.NoError(t, fix.sink.Close(context.Background()))
	require.Equal(t, 1, fix.store.Saves())
}

func TestOfferCompletesArchiveWhenAllMembersSeen(t *testing.T) {
	fix := newSinkFixture(scrape.RunPolicy{TargetYear: 2024})
	zipURL := "https://example.org/IMG/zip/dossier.zip"
	manifest := []string{"avis/decision_finale.pdf", "dossier.pdf"}

	for _, rel := range manifest {
		c := plainCandidate(zipURL)
		c.SourceFilename = path.Base(rel)
		c.Archive = &document.ArchiveContext{
			URL:          zipURL,
			RelativePath: rel,
			Manifest:     manifest,
		}
		require.NoError(t, document.Enrich(c))
		require.NoError(t, fix.sink.Offer(context.Background(), c))
	}

	require.True(t, fix.ledger.ContainsArchive(zipURL))
	require.True(t, fix.ledger.ContainsDocument(ledger.MemberKey(zipURL, "dossier.pdf")))
	require.Len(t, fix.uploader.requests, 2)
	require.Equal(t, "avis/decision_finale.pdf", fix.uploader.requests[0].Data["source_file_zip_path"])
}
