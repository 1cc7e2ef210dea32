package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/regwatch/dreal-scraper/internal/app"
	"github.com/regwatch/dreal-scraper/internal/logging"
	"github.com/regwatch/dreal-scraper/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type contextKey string

// appKey carries the initialized App through the command context.
const appKey contextKey = "app"

// newApp is a seam for tests.
var newApp = app.NewApp

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "drealscraper",
	Short: "Incremental scraper for DREAL Auvergne-Rhône-Alpes decisions",
	Long: `drealscraper walks the DREAL Auvergne-Rhône-Alpes "cas par cas"
project listings for one year, expands zip attachments, and hands every
document not yet seen to the configured upload sink. A persistent ledger
keeps reruns incremental.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(cfgFile); err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		logging.InitLogger(viper.GetBool("logging.development"))

		a, err := newApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("initialize application: %w", err)
		}
		cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if a := appFrom(cmd.Context()); a != nil {
			a.Close()
		}
	},
}

func appFrom(ctx context.Context) *app.App {
	a, _ := ctx.Value(appKey).(*app.App)
	return a
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
}
