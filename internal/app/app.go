// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"github.com/regwatch/dreal-scraper/internal/ledger"
	"github.com/regwatch/dreal-scraper/internal/logging"
	"github.com/regwatch/dreal-scraper/internal/notify"
	"github.com/regwatch/dreal-scraper/internal/publish"
	"github.com/regwatch/dreal-scraper/internal/sink"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// App holds the shared, long-lived services of one scraper process: the
// ledger store, the upload client, the notifier and the event publisher.
// It is initialized once at startup and fails fast when any critical
// service cannot be constructed.
type App struct {
	logger    *zap.Logger
	store     ledger.Store
	uploader  sink.Uploader
	notifier  notify.Notifier
	publisher publish.Publisher

	closers []func() error
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger { return a.logger }

// GetLedgerStore exposes the configured checkpoint store.
func (a *App) GetLedgerStore() ledger.Store { return a.store }

// GetUploader exposes the configured upload client.
func (a *App) GetUploader() sink.Uploader { return a.uploader }

// GetNotifier exposes the configured mail notifier.
func (a *App) GetNotifier() notify.Notifier { return a.notifier }

// GetPublisher exposes the configured accepted-document event feed.
func (a *App) GetPublisher() publish.Publisher { return a.publisher }

// NewApp reads provider selections from Viper and instantiates each service.
func NewApp(ctx context.Context) (*App, error) {
	l := logging.L
	l.Info("Initializing application services...")
	a := &App{logger: l}

	if err := a.initLedgerStore(ctx); err != nil {
		return nil, err
	}
	if err := a.initUploader(); err != nil {
		return nil, err
	}
	if err := a.initNotifier(); err != nil {
		return nil, err
	}
	if err := a.initPublisher(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) initLedgerStore(ctx context.Context) error {
	provider := viper.GetString("store.provider")
	switch provider {
	case "gcs":
		bucket := viper.GetString("store.gcs.bucket_name")
		object := viper.GetString("store.gcs.object_name")
		if bucket == "" || object == "" {
			return fmt.Errorf("store provider is 'gcs' but bucket_name or object_name is not set")
		}
		a.logger.Info("Using GCS ledger store", zap.String("bucket", bucket), zap.String("object", object))
		store, err := ledger.NewGCSStore(ctx, bucket, object)
		if err != nil {
			return fmt.Errorf("initialize GCS ledger store: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
	case "postgres":
		dsn := viper.GetString("store.postgres.dsn")
		if dsn == "" {
			return fmt.Errorf("store provider is 'postgres' but store.postgres.dsn is not set")
		}
		a.logger.Info("Using Postgres ledger store")
		store, err := ledger.NewPostgresStore(ctx, dsn)
		if err != nil {
			return fmt.Errorf("initialize Postgres ledger store: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, func() error { store.Close(); return nil })
	case "file":
		path := viper.GetString("store.file.path")
		if path == "" {
			return fmt.Errorf("store provider is 'file' but store.file.path is not set")
		}
		a.logger.Info("Using file ledger store", zap.String("path", path))
		a.store = ledger.NewFileStore(path)
	case "noop":
		a.logger.Info("Using in-memory ledger store. Checkpoints will be discarded at exit.")
		a.store = ledger.NewMemoryStore()
	default:
		return fmt.Errorf("unknown ledger store provider: %s", provider)
	}
	return nil
}

func (a *App) initUploader() error {
	provider := viper.GetString("uploader.provider")
	switch provider {
	case "documentcloud":
		baseURL := viper.GetString("uploader.documentcloud.base_url")
		token := viper.GetString("uploader.documentcloud.token")
		a.logger.Info("Using DocumentCloud uploader", zap.String("base_url", baseURL))
		client, err := sink.NewDocumentCloudClient(baseURL, token)
		if err != nil {
			return fmt.Errorf("initialize DocumentCloud uploader: %w", err)
		}
		a.uploader = client
	case "noop":
		a.logger.Info("Using No-Op uploader. Documents will not be uploaded.")
		a.uploader = sink.NoopUploader{}
	default:
		return fmt.Errorf("unknown uploader provider: %s", provider)
	}
	return nil
}

func (a *App) initNotifier() error {
	provider := viper.GetString("notify.provider")
	switch provider {
	case "sendgrid":
		notifier, err := notify.NewSendGrid(
			viper.GetString("notify.sendgrid.api_key"),
			viper.GetString("notify.sendgrid.from_name"),
			viper.GetString("notify.sendgrid.from_email"),
			viper.GetString("notify.sendgrid.to_email"),
		)
		if err != nil {
			return fmt.Errorf("initialize SendGrid notifier: %w", err)
		}
		a.logger.Info("Using SendGrid notifier")
		a.notifier = notifier
	case "noop":
		a.logger.Info("Using No-Op notifier. No mail will be sent.")
		a.notifier = notify.Noop{}
	default:
		return fmt.Errorf("unknown notifier provider: %s", provider)
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	provider := viper.GetString("publish.provider")
	switch provider {
	case "pubsub":
		projectID := viper.GetString("publish.gcp.project_id")
		topicID := viper.GetString("publish.gcp.topic_id")
		if projectID == "" || topicID == "" {
			return fmt.Errorf("publish provider is 'pubsub' but project_id or topic_id is not set")
		}
		a.logger.Info("Using GCP Pub/Sub event feed", zap.String("topic", topicID))
		publisher, err := publish.NewPubSubPublisher(ctx, projectID, topicID)
		if err != nil {
			return fmt.Errorf("initialize pubsub publisher: %w", err)
		}
		a.publisher = publisher
		a.closers = append(a.closers, publisher.Close)
	case "noop":
		a.logger.Info("Using in-memory event feed.")
		a.publisher = publish.NewMemoryPublisher()
	default:
		return fmt.Errorf("unknown publish provider: %s", provider)
	}
	return nil
}

// Close shuts every service down, logging failures rather than aborting.
func (a *App) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("Failed to close service", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
