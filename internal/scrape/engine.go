package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/regwatch/dreal-scraper/internal/document"
	"github.com/regwatch/dreal-scraper/internal/ledger"
	"go.uber.org/zap"
)

// task is one unit of traversal work. Running it may yield follow-up tasks.
type task interface {
	run(ctx context.Context, e *Engine) ([]task, error)
}

// Engine executes the discovery traversal as a dispatcher loop over a LIFO
// stack of typed tasks. The stack gives the crawl its depth-first bias while
// keeping cancellation checks explicit at every stage boundary.
type Engine struct {
	cfg      Config
	policy   RunPolicy
	state    *RunState
	fetcher  Fetcher
	ledger   *ledger.Ledger
	expander Expander
	sink     Sink
	logger   *zap.Logger
}

// NewEngine wires the traversal with its collaborators.
func NewEngine(
	cfg Config,
	policy RunPolicy,
	state *RunState,
	fetcher Fetcher,
	ldg *ledger.Ledger,
	expander Expander,
	sink Sink,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:      cfg,
		policy:   policy,
		state:    state,
		fetcher:  fetcher,
		ledger:   ldg,
		expander: expander,
		sink:     sink,
		logger:   logger,
	}
}

// Run drives the traversal to completion, a stop condition, or a fatal
// error. Non-fatal failures (a dead link, a bad archive) drop their branch
// with a warning; everything already committed to the ledger stays committed.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.policy.Validate(); err != nil {
		return err
	}

	stack := []task{rootTask{url: e.cfg.EntryURL}}
	for len(stack) > 0 {
		if reason := e.stopReason(ctx); reason != "" {
			e.logger.Info("Halting traversal", zap.String("reason", reason))
			return nil
		}

		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		next, err := t.run(ctx, e)
		if err != nil {
			return err
		}
		// Successors are pushed in reverse so they pop in discovery order.
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}
	return nil
}

// stopReason returns a non-empty reason when the traversal must halt: the
// wall-clock limit, the sticky upload-limit flag, or context cancellation.
func (e *Engine) stopReason(ctx context.Context) string {
	if ctx.Err() != nil {
		return "context canceled"
	}
	if e.state.TimeExceeded() {
		return fmt.Sprintf("time limit reached (%d minutes)", e.policy.TimeLimitMinutes)
	}
	if e.state.LimitAttained() {
		return "upload limit attained"
	}
	return ""
}

func (e *Engine) fetch(ctx context.Context, url string) (Page, bool) {
	page, err := e.fetcher.Get(ctx, url)
	if err != nil {
		TotalFetchErrors.Inc()
		e.logger.Warn("Fetch failed, dropping branch", zap.String("url", url), zap.Error(err))
		return Page{}, false
	}
	TotalPagesFetched.Inc()
	return page, true
}

// deliver runs enrichment and hands the candidate to the sink. Unsupported
// types are dropped (and their scratch file deleted); sink errors are fatal.
func (e *Engine) deliver(ctx context.Context, c *document.Candidate) error {
	if err := document.Enrich(c); err != nil {
		if errors.Is(err, document.ErrUnsupportedType) {
			TotalCandidatesDropped.Inc()
			e.logger.Debug("Dropping unsupported candidate",
				zap.String("key", c.Key()), zap.Error(err))
			if c.Archive != nil && c.Archive.LocalPath != "" {
				if rmErr := os.Remove(c.Archive.LocalPath); rmErr != nil && !os.IsNotExist(rmErr) {
					e.logger.Warn("Failed to delete scratch file", zap.Error(rmErr))
				}
			}
			return nil
		}
		return err
	}
	return e.sink.Offer(ctx, c)
}

// rootTask enumerates geographic departments from the fixed entry page.
type rootTask struct {
	url string
}

func (t rootTask) run(ctx context.Context, e *Engine) ([]task, error) {
	page, ok := e.fetch(ctx, t.url)
	if !ok {
		return nil, fmt.Errorf("entry page unreachable: %s", t.url)
	}
	departments, err := parseDepartments(page)
	if err != nil {
		return nil, fmt.Errorf("parse entry page: %w", err)
	}
	e.logger.Info("Discovered departments", zap.Int("count", len(departments)))

	tasks := make([]task, 0, len(departments))
	for _, d := range departments {
		tasks = append(tasks, yearTask{
			dept: departmentRef{Name: d.Name, Code: document.ParseDepartmentCode(d.Name)},
			url:  d.URL,
		})
	}
	return tasks, nil
}

// yearTask locates the sub-listing matching the target year for one
// department. No match means the department contributes no work.
type yearTask struct {
	dept departmentRef
	url  string
}

func (t yearTask) run(ctx context.Context, e *Engine) ([]task, error) {
	page, ok := e.fetch(ctx, t.url)
	if !ok {
		return nil, nil
	}
	years, err := parseYearSections(page, e.policy.TargetYear)
	if err != nil {
		e.logger.Warn("Failed to parse year listing", zap.String("department", t.dept.Name), zap.Error(err))
		return nil, nil
	}

	tasks := make([]task, 0, len(years))
	for _, y := range years {
		tasks = append(tasks, listTask{dept: t.dept, subdiv: y.Subdiv, url: y.URL, page: 1})
	}
	return tasks, nil
}

// listTask walks one page of a project listing and follows pagination.
type listTask struct {
	dept   departmentRef
	subdiv string
	url    string
	page   int
}

func (t listTask) run(ctx context.Context, e *Engine) ([]task, error) {
	e.logger.Info("Scraping project listing",
		zap.String("department", t.dept.Name),
		zap.String("subdivision", t.subdiv),
		zap.Int("page", t.page))

	page, ok := e.fetch(ctx, t.url)
	if !ok {
		return nil, nil
	}
	listing, err := parseProjectListing(page)
	if err != nil {
		e.logger.Warn("Failed to parse project listing", zap.String("url", t.url), zap.Error(err))
		return nil, nil
	}

	tasks := make([]task, 0, len(listing.ProjectURLs)+1)
	for _, u := range listing.ProjectURLs {
		tasks = append(tasks, projectTask{dept: t.dept, subdiv: t.subdiv, url: u})
	}
	if listing.NextPageURL != "" {
		tasks = append(tasks, listTask{dept: t.dept, subdiv: t.subdiv, url: listing.NextPageURL, page: t.page + 1})
	}
	return tasks, nil
}

// projectTask extracts the project title and enumerates its file links.
type projectTask struct {
	dept   departmentRef
	subdiv string
	url    string
}

func (t projectTask) run(ctx context.Context, e *Engine) ([]task, error) {
	page, ok := e.fetch(ctx, t.url)
	if !ok {
		return nil, nil
	}
	project, err := parseProjectPage(page)
	if err != nil {
		e.logger.Warn("Failed to parse project page", zap.String("url", t.url), zap.Error(err))
		return nil, nil
	}

	tasks := make([]task, 0, len(project.FileLinks))
	for _, link := range project.FileLinks {
		tasks = append(tasks, fileTask{
			dept:     t.dept,
			project:  project.Title,
			pageURL:  page.FinalURL,
			linkText: link.Text,
			fileURL:  link.URL,
		})
	}
	return tasks, nil
}

// fileTask is the primary dedup gate plus the HEAD probe. The ledger check
// happens before any byte of the file is fetched.
type fileTask struct {
	dept     departmentRef
	project  string
	pageURL  string
	linkText string
	fileURL  string
}

func (t fileTask) run(ctx context.Context, e *Engine) ([]task, error) {
	if e.ledger.ContainsDocument(t.fileURL) || e.ledger.ContainsArchive(t.fileURL) {
		TotalDuplicatesSkipped.Inc()
		return nil, nil
	}

	probe, err := e.fetcher.Head(ctx, t.fileURL)
	if err != nil {
		TotalFetchErrors.Inc()
		e.logger.Warn("HEAD probe failed, dropping candidate", zap.String("url", t.fileURL), zap.Error(err))
		return nil, nil
	}

	rawLastModified := probe.Headers.Get("Last-Modified")
	lastModified, perr := http.ParseTime(rawLastModified)
	if rawLastModified == "" || perr != nil {
		TotalCandidatesDropped.Inc()
		e.logger.Warn("Missing or unparseable Last-Modified, dropping candidate",
			zap.String("url", t.fileURL), zap.String("last_modified", rawLastModified))
		return nil, nil
	}

	candidate := &document.Candidate{
		Title:           t.linkText,
		Project:         t.project,
		SourcePageURL:   t.pageURL,
		SourceFileURL:   t.fileURL,
		Authority:       e.cfg.Authority,
		CategoryLocal:   e.cfg.CategoryLocal,
		DepartmentCode:  t.dept.Code,
		TargetYear:      e.policy.TargetYear,
		LastModified:    lastModified,
		RawLastModified: rawLastModified,
	}

	if strings.HasSuffix(strings.ToLower(t.fileURL), ".zip") {
		if e.ledger.ContainsArchive(t.fileURL) {
			return nil, nil
		}
		return []task{archiveTask{candidate: candidate}}, nil
	}

	if e.ledger.ContainsDocument(t.fileURL) {
		return nil, nil
	}
	return nil, e.deliver(ctx, candidate)
}

// archiveTask expands a zip and delivers each member as its own candidate.
type archiveTask struct {
	candidate *document.Candidate
}

func (t archiveTask) run(ctx context.Context, e *Engine) ([]task, error) {
	batch, err := e.expander.Expand(ctx, t.candidate)
	if err != nil {
		TotalFetchErrors.Inc()
		e.logger.Warn("Archive expansion failed, dropping its candidates",
			zap.String("url", t.candidate.SourceFileURL), zap.Error(err))
		return nil, nil
	}
	TotalArchivesExpanded.Inc()
	defer e.expander.RemoveDir(batch.Dir)

	for _, member := range batch.Members {
		if reason := e.stopReason(ctx); reason != "" {
			e.logger.Info("Halting archive delivery", zap.String("reason", reason))
			return nil, nil
		}
		if err := e.deliver(ctx, member); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
