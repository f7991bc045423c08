package storage

import "context"

// Store provides address-keyed storage for opaque bytes.
// Blob stores key by content address; document stores key by a
// caller-chosen id and allow overwrite.
type Store interface {
	// Put stores data under addr, replacing any previous value.
	Put(ctx context.Context, addr Address, data []byte) error

	// Get retrieves data by addr.
	Get(ctx context.Context, addr Address) ([]byte, error)

	// Has checks if data exists for addr.
	Has(ctx context.Context, addr Address) (bool, error)

	// Delete removes data by addr.
	Delete(ctx context.Context, addr Address) error

	// Size returns the size in bytes of the data stored under addr.
	Size(ctx context.Context, addr Address) (int64, error)

	// List returns all stored addresses (for backup/export).
	List(ctx context.Context) ([]Address, error)
}
