// Package store persists the project reference, the private per-user data
// files and the local build history.
package store

import (
	"context"
	"errors"

	"cameio-cli/src/contracts"
)

// ErrNotFound is returned when a project file is required but absent.
var ErrNotFound = errors.New("not found")

// Store is a key/value record saved as a whole.
// Concurrent Set and Save calls are serialized; the last Save wins.
type Store interface {
	// Get returns the raw value for key.
	Get(key string) (any, bool)

	// GetString returns the value for key when it is a string, else "".
	GetString(key string) string

	// Set stores value under key in memory.
	Set(key string, value any)

	// Remove deletes key in memory.
	Remove(key string)

	// Save persists the current contents.
	Save() error
}

// History records build events for later listing.
type History interface {
	// Record appends one event.
	Record(ctx context.Context, event *contracts.BuildEvent) error

	// List returns up to limit most recent events, newest first.
	// limit <= 0 returns every event.
	List(ctx context.Context, limit int) ([]contracts.BuildEvent, error)

	// Close releases the underlying resources.
	Close() error
}
