package db

import "context"

// DefaultStorageName is the key the snapshot is stored under
const DefaultStorageName = "mindmeld-storage"

// Store defines the persistence contract consumed by the state manager.
// A store holds exactly one snapshot and every Save overwrites it whole.
type Store interface {
	// Load returns the stored snapshot, or nil with no error when nothing has been saved yet
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the stored snapshot
	Save(ctx context.Context, snapshot *Snapshot) error
}
