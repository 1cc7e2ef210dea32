package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileStore keeps the snapshot in a local JSON file. It backs ad hoc and
// dry runs that have no tracked run id.
type FileStore struct {
	Path string
}

// NewFileStore returns a store reading and writing path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads and decodes the snapshot file.
func (s *FileStore) Load(_ context.Context) (Snapshot, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("read snapshot %s: %w", s.Path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", s.Path, err)
	}
	return snap, nil
}

// Save overwrites the snapshot file wholesale.
func (s *FileStore) Save(_ context.Context, snap Snapshot) error {
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.Path, payload, 0o600); err != nil {
		return fmt.Errorf("write snapshot %s: %w", s.Path, err)
	}
	return nil
}
