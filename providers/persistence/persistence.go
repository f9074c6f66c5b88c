// Package persistence defines the snapshot storage port used by the graph
// store: one named slot per strategy, overwritten wholesale on every flush.
// No append log, no versioning, no migration path.
package persistence

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when the slot has never been saved.
var ErrNotFound = errors.New("snapshot not found")

// Port stores and retrieves serialized snapshots by slot name.
// Implementations must be safe for concurrent use; the store's debounced
// autosave fires from a timer goroutine.
type Port interface {
	// Save overwrites the slot with data. Last write wins.
	Save(ctx context.Context, slot string, data []byte) error

	// Load returns the last saved data for the slot, or ErrNotFound.
	Load(ctx context.Context, slot string) ([]byte, error)
}
