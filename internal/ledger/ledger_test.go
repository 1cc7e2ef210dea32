package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

func TestRecordDocumentIsIdempotent(t *testing.T) {
	l := New(EmptySnapshot()).WithNow(fixedNow)

	require.False(t, l.ContainsDocument("https://example.org/a.pdf"))

	l.RecordDocument("https://example.org/a.pdf", "Mon, 02 Jan 2023 10:00:00 GMT", 2023)
	l.RecordDocument("https://example.org/a.pdf", "Mon, 02 Jan 2023 10:00:00 GMT", 2023)

	require.True(t, l.ContainsDocument("https://example.org/a.pdf"))
	docs, zips := l.Counts()
	require.Equal(t, 1, docs)
	require.Equal(t, 0, zips)
}

func TestTryCompleteArchiveRequiresAllMembers(t *testing.T) {
	l := New(EmptySnapshot()).WithNow(fixedNow)

	const archiveURL = "https://example.org/bundle.zip"
	manifest := []string{"a.pdf", "sub/b.pdf", "c.docx"}

	l.RecordDocument(MemberKey(archiveURL, "a.pdf"), "lm", 2023)
	l.RecordDocument(MemberKey(archiveURL, "sub/b.pdf"), "lm", 2023)

	require.False(t, l.TryCompleteArchive(archiveURL, manifest, "lm", 2023),
		"archive must not complete while a manifest entry is missing")
	require.False(t, l.ContainsArchive(archiveURL))

	l.RecordDocument(MemberKey(archiveURL, "c.docx"), "lm", 2023)

	require.True(t, l.TryCompleteArchive(archiveURL, manifest, "lm", 2023))
	require.True(t, l.ContainsArchive(archiveURL))
}

func TestTryCompleteArchiveEmptyFailureMakesNoChange(t *testing.T) {
	l := New(EmptySnapshot()).WithNow(fixedNow)

	require.False(t, l.TryCompleteArchive("https://example.org/z.zip", []string{"x.pdf"}, "lm", 2023))
	_, zips := l.Counts()
	require.Zero(t, zips)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	l := New(EmptySnapshot()).WithNow(fixedNow)
	l.RecordDocument("k", "lm", 2024)

	snap := l.Snapshot()
	snap.Documents["other"] = Record{}

	docs, _ := l.Counts()
	require.Equal(t, 1, docs, "mutating the snapshot must not touch the ledger")
}

func TestNewToleratesNilMaps(t *testing.T) {
	l := New(Snapshot{})
	l.RecordDocument("k", "lm", 2024)
	require.True(t, l.ContainsDocument("k"))
}

func TestOpenRecoversFromNotFound(t *testing.T) {
	l, err := Open(context.Background(), NewMemoryStore())
	require.NoError(t, err)
	docs, zips := l.Counts()
	require.Zero(t, docs)
	require.Zero(t, zips)
}

func TestOpenLoadsSeededSnapshot(t *testing.T) {
	store := NewMemoryStore()
	store.Seed(Snapshot{
		Documents: map[string]Record{"doc": {LastModified: "lm", LastSeen: fixedNow(), TargetYear: 2022}},
		Zips:      map[string]Record{"zip": {LastModified: "lm", LastSeen: fixedNow(), TargetYear: 2022}},
	})

	l, err := Open(context.Background(), store)
	require.NoError(t, err)
	require.True(t, l.ContainsDocument("doc"))
	require.True(t, l.ContainsArchive("zip"))
}
