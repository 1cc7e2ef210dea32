// Package notify delivers run reports and fatal-error alerts to operators.
package notify

import (
	"context"
	"sync"
)

// Notifier sends one plain-text message. Invoked with the run report at
// close, and with an error subject/body on specific fatal failures.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Noop discards messages. Used for dry runs and local execution.
type Noop struct{}

// Send does nothing.
func (Noop) Send(_ context.Context, _, _ string) error { return nil }

// Memory records messages for tests.
type Memory struct {
	mu       sync.Mutex
	Subjects []string
	Bodies   []string
}

// Send stores the message.
func (m *Memory) Send(_ context.Context, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Subjects = append(m.Subjects, subject)
	m.Bodies = append(m.Bodies, body)
	return nil
}
