package scrape

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalPagesFetched tracks the number of listing/project pages fetched.
	TotalPagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_pages_fetched_total",
		Help: "The total number of site pages fetched during traversal.",
	})
	// TotalFetchErrors tracks fetches that failed and dropped their branch.
	TotalFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_fetch_errors_total",
		Help: "The total number of failed fetches (branch dropped).",
	})
	// TotalDuplicatesSkipped tracks candidates discarded by the ledger gate.
	TotalDuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_duplicates_skipped_total",
		Help: "The total number of file links skipped as already uploaded.",
	})
	// TotalArchivesExpanded tracks zip archives downloaded and extracted.
	TotalArchivesExpanded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_archives_expanded_total",
		Help: "The total number of zip archives expanded into members.",
	})
	// TotalCandidatesDropped tracks unsupported-type and unparseable drops.
	TotalCandidatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_candidates_dropped_total",
		Help: "The total number of candidates dropped before the sink.",
	})
	// TotalDocumentsAccepted tracks candidates accepted by the sink.
	TotalDocumentsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_documents_accepted_total",
		Help: "The total number of documents accepted for upload.",
	})
)
