package store

import (
	"context"
	"sync"

	"cameio-cli/src/contracts"
)

// InMemoryHistory is a thread-safe in-memory implementation of History.
// Used by tests and the MCP server when no history is configured.
type InMemoryHistory struct {
	mu     sync.RWMutex
	events []contracts.BuildEvent
}

// NewInMemoryHistory creates a new in-memory history.
func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{}
}

func (h *InMemoryHistory) Record(ctx context.Context, event *contracts.BuildEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events = append(h.events, *event)
	return nil
}

func (h *InMemoryHistory) List(ctx context.Context, limit int) ([]contracts.BuildEvent, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return newestFirst(h.events, limit), nil
}

func (h *InMemoryHistory) Close() error {
	return nil
}

// newestFirst returns a reversed copy of the last limit events.
func newestFirst(events []contracts.BuildEvent, limit int) []contracts.BuildEvent {
	n := len(events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]contracts.BuildEvent, 0, n)
	for i := len(events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, events[i])
	}
	return out
}
