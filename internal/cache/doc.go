// Package cache provides a block cache used by the caching blob store to
// avoid repeated remote reads of immutable basis snapshots.
package cache
