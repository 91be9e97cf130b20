package rombasis

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/rombasis/blobstore"
	"github.com/hupe1980/rombasis/manifest"
	"github.com/hupe1980/rombasis/persistence"
)

// Reader provides time-indexed, read-only access to a persisted basis
// catalog: given a simulation time it resolves the covering interval
// through the manifest and loads that interval's snapshot on demand.
// Loaded snapshots are kept for the lifetime of the reader.
//
// Safe for concurrent use.
type Reader struct {
	mu    sync.Mutex
	store blobstore.BlobStore
	man   *manifest.Manifest
	snaps map[int]*persistence.Snapshot

	// last is the interval of the most recent lookup; IsNewBasis compares
	// against it. -1 before the first lookup.
	last int
}

// NewReader opens the basis catalog persisted in store. Options relevant to
// reading are WithCodec and WithBasisName/WithProcessRank (they only affect
// which manifest codec is used; interval paths come from the manifest
// itself).
func NewReader(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*Reader, error) {
	if store == nil {
		return nil, ErrNoBlobStore
	}
	o := applyOptions(optFns)

	man, err := manifest.NewStore(store, o.codec).Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(man.Intervals) == 0 {
		return nil, fmt.Errorf("rombasis: manifest lists no intervals: %w", ErrNoSavedState)
	}

	return &Reader{
		store: store,
		man:   man,
		snaps: make(map[int]*persistence.Snapshot),
		last:  -1,
	}, nil
}

// Dim returns the state dimension recorded in the manifest.
func (r *Reader) Dim() int {
	return r.man.Dim
}

// NumBasisTimeIntervals returns the number of persisted intervals.
func (r *Reader) NumBasisTimeIntervals() int {
	return len(r.man.Intervals)
}

// BasisIntervalStartTime returns the start time of the requested interval.
func (r *Reader) BasisIntervalStartTime(which int) float64 {
	if which < 0 || which >= len(r.man.Intervals) {
		panic(fmt.Sprintf("rombasis: interval index %d out of range [0,%d)", which, len(r.man.Intervals)))
	}
	return r.man.Intervals[which].StartTime
}

// intervalFor returns the index of the newest interval whose start time is
// at or before t. Times before the first interval resolve to interval 0.
func (r *Reader) intervalFor(t float64) int {
	ivs := r.man.Intervals
	i := sort.Search(len(ivs), func(i int) bool {
		return ivs[i].StartTime > t
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// IsNewBasis reports whether a lookup at time t would resolve to a
// different interval than the previous lookup did.
func (r *Reader) IsNewBasis(t float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.intervalFor(t) != r.last
}

// Basis returns the basis covering simulation time t.
func (r *Reader) Basis(ctx context.Context, t float64) (*mat.Dense, error) {
	snap, err := r.lookup(ctx, t)
	if err != nil {
		return nil, err
	}
	return snap.Basis, nil
}

// SingularValues returns the singular values covering simulation time t,
// in descending order.
func (r *Reader) SingularValues(ctx context.Context, t float64) ([]float64, error) {
	snap, err := r.lookup(ctx, t)
	if err != nil {
		return nil, err
	}
	return snap.SingularValues, nil
}

func (r *Reader) lookup(ctx context.Context, t float64) (*persistence.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	which := r.intervalFor(t)
	if snap, ok := r.snaps[which]; ok {
		r.last = which
		return snap, nil
	}

	iv := r.man.Intervals[which]
	snap, err := persistence.ReadSnapshot(ctx, r.store, iv.Path)
	if err != nil {
		return nil, translateError(err, iv.Path)
	}
	if snap.Dim() != r.man.Dim {
		return nil, &ErrCorruptSnapshot{
			Name:  iv.Path,
			cause: fmt.Errorf("snapshot dimension %d disagrees with manifest %d", snap.Dim(), r.man.Dim),
		}
	}

	r.snaps[which] = snap
	r.last = which
	return snap, nil
}
