package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/regwatch/dreal-scraper/internal/api"
	"github.com/regwatch/dreal-scraper/internal/archive"
	"github.com/regwatch/dreal-scraper/internal/clock/system"
	"github.com/regwatch/dreal-scraper/internal/ledger"
	"github.com/regwatch/dreal-scraper/internal/report"
	"github.com/regwatch/dreal-scraper/internal/scrape"
	"github.com/regwatch/dreal-scraper/internal/sink"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one incremental scrape of the target year",
	RunE:  runScrape,
}

func runScrape(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a := appFrom(ctx)
	logger := a.GetLogger()

	policy := policyFromConfig()
	if err := policy.Validate(); err != nil {
		return err
	}
	logger.Info("Starting scrape run",
		zap.Int("target_year", policy.TargetYear),
		zap.Int("upload_limit", policy.UploadLimit),
		zap.Int("time_limit_minutes", policy.TimeLimitMinutes),
		zap.Bool("dry_run", policy.DryRun),
		zap.String("run_id", policy.RunID),
	)

	notifier := a.GetNotifier()
	fail := func(err error) error {
		subject := fmt.Sprintf("DREAL ARA Scraper %d FAILED %s", policy.TargetYear, policy.RunName)
		if nerr := notifier.Send(ctx, subject, err.Error()); nerr != nil {
			logger.Warn("Failed to send failure notification", zap.Error(nerr))
		}
		return err
	}

	if !policy.DryRun {
		if err := a.GetUploader().VerifyPermissions(ctx); err != nil {
			return fail(fmt.Errorf("verify uploader permissions: %w", err))
		}
	}

	ldg, err := ledger.Open(ctx, a.GetLedgerStore())
	if err != nil {
		return fail(fmt.Errorf("open ledger: %w", err))
	}
	docs, zips := ldg.Counts()
	logger.Info("Ledger loaded", zap.Int("documents", docs), zap.Int("zips", zips))

	fetcher, err := scrape.NewCollyFetcher(scrape.FetcherConfig{
		UserAgent:      viper.GetString("scraper.user_agent"),
		RequestTimeout: viper.GetDuration("scraper.request_timeout"),
		Parallelism:    viper.GetInt("scraper.parallelism"),
		Delay:          viper.GetDuration("scraper.delay"),
	}, logger)
	if err != nil {
		return fail(fmt.Errorf("configure fetcher: %w", err))
	}

	expander := archive.New(fetcher, ldg, viper.GetString("scraper.scratch_dir"), logger)
	defer expander.CleanupRoot()

	if viper.GetBool("server.enabled") {
		srv := api.NewServer(viper.GetString("server.addr"), logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Metrics server shutdown failed", zap.Error(err))
			}
		}()
	}

	rep := report.New()
	state := scrape.NewRunState(system.New(), policy)
	snk := sink.New(
		policy, state,
		a.GetUploader(), ldg, a.GetLedgerStore(), a.GetPublisher(),
		rep, viper.GetString("uploader.documentcloud.project"), logger,
	)

	engine := scrape.NewEngine(scrape.Config{
		EntryURL:      viper.GetString("scraper.entry_url"),
		Authority:     viper.GetString("scraper.authority"),
		CategoryLocal: viper.GetString("scraper.category_local"),
	}, policy, state, fetcher, ldg, expander, snk, logger)

	if err := engine.Run(ctx); err != nil {
		return fail(err)
	}
	if err := snk.Close(ctx); err != nil {
		return fail(fmt.Errorf("persist ledger: %w", err))
	}

	logger.Info("Scrape run finished",
		zap.Int("uploaded", state.Uploaded()),
		zap.Duration("elapsed", state.Elapsed()),
	)

	if !policy.DryRun {
		subject := rep.Subject(policy.TargetYear, policy.RunName)
		if err := notifier.Send(ctx, subject, rep.Body(policy.RunID)); err != nil {
			logger.Warn("Failed to send run report", zap.Error(err))
		}
	}
	return nil
}

// policyFromConfig assembles the run policy from viper. An absent target
// year means the current year; wet runs without an explicit run id get a
// generated one so their checkpoints are attributable.
func policyFromConfig() scrape.RunPolicy {
	year := viper.GetInt("run.target_year")
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	dryRun := viper.GetBool("run.dry_run")
	runID := viper.GetString("run.run_id")
	if runID == "" && !dryRun {
		runID = uuid.NewString()
	}
	return scrape.RunPolicy{
		TargetYear:       year,
		UploadLimit:      viper.GetInt("run.upload_limit"),
		TimeLimitMinutes: viper.GetInt("run.time_limit_minutes"),
		AccessLevel:      scrape.AccessLevel(viper.GetString("run.access_level")),
		DryRun:           dryRun,
		RunID:            runID,
		RunName:          viper.GetString("run.run_name"),
	}
}

func init() {
	scrapeCmd.Flags().Int("year", 0, "target year to scrape (default: current year)")
	scrapeCmd.Flags().Int("upload-limit", 0, "maximum documents to accept, 0 for unlimited")
	scrapeCmd.Flags().Int("time-limit", 345, "maximum run duration in minutes, 0 for unlimited")
	scrapeCmd.Flags().String("access-level", "private", "access level for uploaded documents (public, organization, private)")
	scrapeCmd.Flags().Bool("dry-run", true, "skip uploads and mail, still exercise the full pipeline")
	scrapeCmd.Flags().String("run-id", "", "identifier tying this run to its checkpoints")
	scrapeCmd.Flags().String("run-name", "no name", "human readable run label for reports")

	_ = viper.BindPFlag("run.target_year", scrapeCmd.Flags().Lookup("year"))
	_ = viper.BindPFlag("run.upload_limit", scrapeCmd.Flags().Lookup("upload-limit"))
	_ = viper.BindPFlag("run.time_limit_minutes", scrapeCmd.Flags().Lookup("time-limit"))
	_ = viper.BindPFlag("run.access_level", scrapeCmd.Flags().Lookup("access-level"))
	_ = viper.BindPFlag("run.dry_run", scrapeCmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("run.run_id", scrapeCmd.Flags().Lookup("run-id"))
	_ = viper.BindPFlag("run.run_name", scrapeCmd.Flags().Lookup("run-name"))

	rootCmd.AddCommand(scrapeCmd)
}
