package cache

import "context"

// Key identifies a cached block of an immutable blob. Basis snapshots are
// written once per time interval and never mutated, so a (path, block)
// pair is stable for the lifetime of the blob.
type Key struct {
	// Path is the blob name within its store.
	Path string
	// Block is the logical block index within the blob.
	Block uint64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a block. Caller must treat b as immutable afterwards.
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Close releases any resources.
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
