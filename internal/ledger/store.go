package ledger

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound signals that no snapshot exists yet. Callers recover from it by
// starting with an empty ledger; any other load error is fatal to the run.
var ErrNotFound = errors.New("ledger snapshot not found")

// Store persists the ledger snapshot between runs. Save overwrites the whole
// snapshot; there is no append mode.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Open loads the snapshot from the store, mapping "not found" to an empty
// ledger. Every other error is returned to the caller, which must abort:
// without the checkpoint it cannot know what was already uploaded.
func Open(ctx context.Context, store Store) (*Ledger, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return New(EmptySnapshot()), nil
		}
		return nil, fmt.Errorf("load ledger snapshot: %w", err)
	}
	return New(snap), nil
}
