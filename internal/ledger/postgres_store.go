package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool is the subset of pgxpool.Pool the store needs. Narrowing to an
// interface lets tests substitute a pgxmock pool.
type PgxPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore keeps the ledger in a Postgres table, one row per key. It is
// an alternative to the GCS store for deployments that already run Postgres.
//
// Assumed schema:
//
//	CREATE TABLE scrape_ledger (
//	    key           TEXT PRIMARY KEY,
//	    kind          TEXT NOT NULL CHECK (kind IN ('document', 'zip')),
//	    last_modified TEXT NOT NULL,
//	    last_seen     TIMESTAMPTZ NOT NULL,
//	    target_year   INT NOT NULL
//	);
type PostgresStore struct {
	pool PgxPool
}

// NewPostgresStore connects to Postgres and pings it to verify the DSN.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool wraps an existing pool. Used by tests.
func NewPostgresStoreWithPool(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Load reads every row into a snapshot. An empty table yields an empty
// snapshot, not ErrNotFound: the table existing at all means the checkpoint
// is tracked here.
func (s *PostgresStore) Load(ctx context.Context) (Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, kind, last_modified, last_seen, target_year FROM scrape_ledger`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query scrape_ledger: %w", err)
	}
	defer rows.Close()

	snap := EmptySnapshot()
	for rows.Next() {
		var (
			key, kind, lastModified string
			lastSeen                time.Time
			targetYear              int
		)
		if err := rows.Scan(&key, &kind, &lastModified, &lastSeen, &targetYear); err != nil {
			return Snapshot{}, fmt.Errorf("scan scrape_ledger row: %w", err)
		}
		rec := Record{LastModified: lastModified, LastSeen: lastSeen, TargetYear: targetYear}
		switch kind {
		case "zip":
			snap.Zips[key] = rec
		default:
			snap.Documents[key] = rec
		}
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate scrape_ledger rows: %w", err)
	}
	return snap, nil
}

// Save upserts every snapshot entry. The ledger never shrinks within a run,
// so upserting is equivalent to a full overwrite.
func (s *PostgresStore) Save(ctx context.Context, snap Snapshot) error {
	for key, rec := range snap.Documents {
		if err := s.upsert(ctx, key, "document", rec); err != nil {
			return err
		}
	}
	for key, rec := range snap.Zips {
		if err := s.upsert(ctx, key, "zip", rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) upsert(ctx context.Context, key, kind string, rec Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scrape_ledger (key, kind, last_modified, last_seen, target_year)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET last_modified = EXCLUDED.last_modified,
		    last_seen = EXCLUDED.last_seen,
		    target_year = EXCLUDED.target_year`,
		key, kind, rec.LastModified, rec.LastSeen, rec.TargetYear)
	if err != nil {
		return fmt.Errorf("upsert ledger key %q: %w", key, err)
	}
	return nil
}

// Close shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
