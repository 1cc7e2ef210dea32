package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/regwatch/dreal-scraper/internal/logging"
	"go.uber.org/zap"
)

// GCSStore keeps the snapshot as a single JSON object in a GCS bucket. It is
// the default store for tracked runs, where checkpoints must survive the
// ephemeral CI runner executing the scrape.
type GCSStore struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCSStore initializes a GCS client and verifies bucket access.
// Authentication goes through Application Default Credentials.
func NewGCSStore(ctx context.Context, bucket, object string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	// Fail fast on startup if the bucket is missing or inaccessible.
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		if cerr := client.Close(); cerr != nil {
			logging.L.Warn("Failed to close GCS client after bucket check failure", zap.Error(cerr))
		}
		return nil, fmt.Errorf("get GCS bucket %q attributes: %w", bucket, err)
	}

	return &GCSStore{
		client: client,
		bucket: bucket,
		object: object,
	}, nil
}

// Load reads and decodes the snapshot object.
func (s *GCSStore) Load(ctx context.Context) (Snapshot, error) {
	reader, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("open GCS object %s/%s: %w", s.bucket, s.object, err)
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			logging.L.Warn("Failed to close GCS reader", zap.Error(cerr))
		}
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read GCS object %s/%s: %w", s.bucket, s.object, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode GCS snapshot: %w", err)
	}
	return snap, nil
}

// Save overwrites the snapshot object.
func (s *GCSStore) Save(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	wc := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	wc.ContentType = "application/json"
	if _, err := wc.Write(payload); err != nil {
		// Close anyway to release resources; the write error is the one that matters.
		if cerr := wc.Close(); cerr != nil {
			logging.L.Warn("Failed to close GCS writer after write failure", zap.Error(cerr))
		}
		return fmt.Errorf("write GCS object %s/%s: %w", s.bucket, s.object, err)
	}
	// Close finalizes the upload and flushes buffered data.
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close GCS writer for %s/%s: %w", s.bucket, s.object, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close GCS client: %w", err)
	}
	return nil
}
