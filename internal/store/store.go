package store

import "context"

// Store is the shared persistence layer for the room table. The table is
// read and written as one opaque blob: every write replaces the previous
// blob completely, so concurrent writers are last-writer-wins at table
// granularity. No backend provides cross-client locking.
type Store interface {
	// Load returns the current table blob. The second return value is
	// false when no table has been written yet.
	Load(ctx context.Context) ([]byte, bool, error)

	// Save replaces the table blob.
	Save(ctx context.Context, data []byte) error

	// Subscribe registers a callback fired when the table may have
	// changed. The signal is advisory: it can fire for writes by this
	// client, by peers, or spuriously. Callers must re-read the table
	// and decide for themselves whether anything relevant changed.
	// The returned function removes the subscription.
	Subscribe(fn func()) (unsubscribe func())

	// Close releases backend resources.
	Close() error
}
