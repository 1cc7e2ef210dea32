package config

import (
	"strings"

	"github.com/spf13/viper"
)

// InitConfig loads configuration from an optional config file and the
// environment. Every key has a sane default so the binary runs without
// any file at all.
func InitConfig(cfgFile string) error {
	setDefaults()

	viper.SetEnvPrefix("SCRAPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.drealscraper")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// no config file, defaults plus env are enough
			return nil
		}
		if cfgFile == "" {
			return nil
		}
		return err
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("logging.development", false)

	viper.SetDefault("scraper.entry_url", "https://www.auvergne-rhone-alpes.developpement-durable.gouv.fr/projets-r3463.html?lang=fr")
	viper.SetDefault("scraper.authority", "Préfecture de région Auvergne-Rhône-Alpes")
	viper.SetDefault("scraper.category_local", "Les décisions au cas par cas - Projets")
	viper.SetDefault("scraper.user_agent", "drealscraper/1.0 (+https://github.com/regwatch/dreal-scraper)")
	viper.SetDefault("scraper.request_timeout", "30s")
	viper.SetDefault("scraper.parallelism", 2)
	viper.SetDefault("scraper.delay", "1s")
	viper.SetDefault("scraper.scratch_dir", "downloaded_zips")

	viper.SetDefault("run.target_year", 0)
	viper.SetDefault("run.upload_limit", 0)
	viper.SetDefault("run.time_limit_minutes", 345)
	viper.SetDefault("run.access_level", "private")
	viper.SetDefault("run.dry_run", true)
	viper.SetDefault("run.run_id", "")
	viper.SetDefault("run.run_name", "no name")

	viper.SetDefault("store.provider", "file")
	viper.SetDefault("store.file.path", "event_data.json")
	viper.SetDefault("store.gcs.bucket_name", "")
	viper.SetDefault("store.gcs.object_name", "event_data.json")
	viper.SetDefault("store.postgres.dsn", "")

	viper.SetDefault("uploader.provider", "noop")
	viper.SetDefault("uploader.documentcloud.base_url", "https://api.www.documentcloud.org/api")
	viper.SetDefault("uploader.documentcloud.token", "")
	viper.SetDefault("uploader.documentcloud.project", "")

	viper.SetDefault("notify.provider", "noop")
	viper.SetDefault("notify.sendgrid.api_key", "")
	viper.SetDefault("notify.sendgrid.from_name", "DREAL ARA Scraper")
	viper.SetDefault("notify.sendgrid.from_email", "")
	viper.SetDefault("notify.sendgrid.to_email", "")

	viper.SetDefault("publish.provider", "noop")
	viper.SetDefault("publish.gcp.project_id", "")
	viper.SetDefault("publish.gcp.topic_id", "")

	viper.SetDefault("server.enabled", false)
	viper.SetDefault("server.addr", ":9090")
}
