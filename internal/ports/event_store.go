package ports

import "context"

type StoredEntry struct {
	Key   string
	Value string
}

// EventStore is the durable key/value area persisted message events are
// written to.
type EventStore interface {
	Put(ctx context.Context, key, value string) error
	// Entries returns every entry in insertion order.
	Entries(ctx context.Context) ([]StoredEntry, error)
	// Remove deletes id and every fragment key derived from it.
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
