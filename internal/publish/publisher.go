// Package publish emits accepted-document events for downstream consumers.
package publish

import (
	"context"
	"sync"
)

// Publisher pushes the ledger key of each accepted document to an event
// feed. Failures are logged, never fatal: the upload already happened.
type Publisher interface {
	Publish(ctx context.Context, documentKey string) error
	Close() error
}

// MemoryPublisher collects events in memory. Used by tests and as the noop
// provider.
type MemoryPublisher struct {
	mu   sync.Mutex
	keys []string
}

// NewMemoryPublisher returns an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the key.
func (p *MemoryPublisher) Publish(_ context.Context, documentKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, documentKey)
	return nil
}

// Keys returns a copy of the published keys.
func (p *MemoryPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Close is a no-op.
func (p *MemoryPublisher) Close() error { return nil }
