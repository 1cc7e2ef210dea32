package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreLoad(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	seen := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"key", "kind", "last_modified", "last_seen", "target_year"}).
		AddRow("https://example.org/a.pdf", "document", "lm-a", seen, 2023).
		AddRow("https://example.org/bundle.zip", "zip", "lm-z", seen, 2023)
	mock.ExpectQuery(`SELECT key, kind, last_modified, last_seen, target_year FROM scrape_ledger`).
		WillReturnRows(rows)

	store := NewPostgresStoreWithPool(mock)
	snap, err := store.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Documents, 1)
	require.Len(t, snap.Zips, 1)
	require.Equal(t, "lm-a", snap.Documents["https://example.org/a.pdf"].LastModified)
	require.Equal(t, 2023, snap.Zips["https://example.org/bundle.zip"].TargetYear)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreLoadQueryError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT key, kind`).WillReturnError(errors.New("relation does not exist"))

	_, err = NewPostgresStoreWithPool(mock).Load(context.Background())
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestPostgresStoreSaveUpserts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	seen := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	snap := EmptySnapshot()
	snap.Documents["doc-key"] = Record{LastModified: "lm", LastSeen: seen, TargetYear: 2023}
	snap.Zips["zip-key"] = Record{LastModified: "lm", LastSeen: seen, TargetYear: 2023}

	mock.ExpectExec(`INSERT INTO scrape_ledger`).
		WithArgs("doc-key", "document", "lm", seen, 2023).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO scrape_ledger`).
		WithArgs("zip-key", "zip", "lm", seen, 2023).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewPostgresStoreWithPool(mock).Save(context.Background(), snap))
	require.NoError(t, mock.ExpectationsWereMet())
}
