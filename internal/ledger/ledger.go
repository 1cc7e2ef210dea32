// Package ledger tracks which documents and archives have already been
// uploaded in previous runs, so a re-crawl never uploads the same file twice.
package ledger

import (
	"sync"
	"time"
)

// Record is the checkpoint entry stored per document or archive key.
type Record struct {
	LastModified string    `json:"last_modified"`
	LastSeen     time.Time `json:"last_seen"`
	TargetYear   int       `json:"target_year"`
}

// Snapshot is the wire shape of the whole ledger. It round-trips wholesale:
// the maps are small enough that persistence always overwrites the full blob.
type Snapshot struct {
	Documents map[string]Record `json:"documents"`
	Zips      map[string]Record `json:"zips"`
}

// EmptySnapshot returns a snapshot with allocated, empty maps.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Documents: make(map[string]Record),
		Zips:      make(map[string]Record),
	}
}

// MemberKey derives the document key for a file extracted from an archive.
func MemberKey(archiveURL, relativePath string) string {
	return archiveURL + "/" + relativePath
}

// Ledger is the in-process view of the checkpoint. Reads are safe from any
// goroutine; writes are serialized because archive completion depends on a
// consistent read-after-write view of the document map.
type Ledger struct {
	mu        sync.RWMutex
	documents map[string]Record
	zips      map[string]Record
	now       func() time.Time
}

// New builds a Ledger seeded from a previously loaded snapshot. Nil maps in
// the snapshot are tolerated and treated as empty.
func New(snap Snapshot) *Ledger {
	l := &Ledger{
		documents: snap.Documents,
		zips:      snap.Zips,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if l.documents == nil {
		l.documents = make(map[string]Record)
	}
	if l.zips == nil {
		l.zips = make(map[string]Record)
	}
	return l
}

// WithNow overrides the timestamp source. Used by tests.
func (l *Ledger) WithNow(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// ContainsDocument reports whether the document key was completed before.
func (l *Ledger) ContainsDocument(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.documents[key]
	return ok
}

// ContainsArchive reports whether the archive URL was fully processed before.
func (l *Ledger) ContainsArchive(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.zips[key]
	return ok
}

// RecordDocument upserts a document entry and refreshes its last_seen stamp.
// Entries are never removed: the ledger only grows within a run.
func (l *Ledger) RecordDocument(key, lastModified string, targetYear int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.documents[key] = Record{
		LastModified: lastModified,
		LastSeen:     l.now(),
		TargetYear:   targetYear,
	}
}

// TryCompleteArchive marks the archive done iff every manifest entry already
// has a document record. It must be re-invoked after each member lands, since
// completion is only knowable once the last sibling is recorded.
func (l *Ledger) TryCompleteArchive(archiveURL string, manifest []string, lastModified string, targetYear int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rel := range manifest {
		if _, ok := l.documents[MemberKey(archiveURL, rel)]; !ok {
			return false
		}
	}
	l.zips[archiveURL] = Record{
		LastModified: lastModified,
		LastSeen:     l.now(),
		TargetYear:   targetYear,
	}
	return true
}

// Counts returns the number of document and archive entries.
func (l *Ledger) Counts() (documents, zips int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.documents), len(l.zips)
}

// Snapshot returns a deep copy suitable for persistence.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snap := Snapshot{
		Documents: make(map[string]Record, len(l.documents)),
		Zips:      make(map[string]Record, len(l.zips)),
	}
	for k, v := range l.documents {
		snap.Documents[k] = v
	}
	for k, v := range l.zips {
		snap.Zips[k] = v
	}
	return snap
}
