// Package manifest tracks which basis snapshots exist and which one is
// current. The manifest itself is immutable; each save writes a new
// numbered file and repoints CURRENT, so readers always see a complete
// snapshot list.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/rombasis/blobstore"
	"github.com/hupe1980/rombasis/codec"
)

const (
	ManifestFileName = "MANIFEST"
	CurrentFileName  = "CURRENT"
	CurrentVersion   = 1
)

// Manifest describes the persisted state of a basis generator at a
// specific point in time.
type Manifest struct {
	Version int    `json:"version"`
	ID      uint64 `json:"id"`

	// Dim is the state dimension shared by all snapshots.
	Dim int `json:"dim"`

	// Intervals lists the frozen time intervals in order, plus the open
	// interval if it has been flushed.
	Intervals []IntervalInfo `json:"intervals"`
}

// IntervalInfo describes a single basis time interval.
type IntervalInfo struct {
	// Index is the interval's position in the generation run.
	Index int `json:"index"`
	// StartTime is the simulation time of the interval's first sample.
	StartTime float64 `json:"start_time"`
	// Rank is the number of basis vectors in the snapshot.
	Rank int `json:"rank"`
	// NumSamples is the number of samples the interval absorbed.
	NumSamples int `json:"num_samples"`
	// Path is the snapshot blob name, relative to the store root.
	Path string `json:"path"`
}

// Store manages the manifest and atomic updates through a blob store.
type Store struct {
	store blobstore.BlobStore
	codec codec.Codec
	mu    sync.Mutex
}

// NewStore creates a new manifest store. If c is nil the default codec
// is used.
func NewStore(store blobstore.BlobStore, c codec.Codec) *Store {
	if c == nil {
		c = codec.Default
	}
	return &Store{
		store: store,
		codec: c,
	}
}

// Load loads the current manifest. A missing CURRENT pointer yields an
// empty manifest, not an error.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := readBlob(ctx, s.store, CurrentFileName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return &Manifest{Version: CurrentVersion}, nil
		}
		return nil, err
	}

	data, err := readBlob(ctx, s.store, string(current))
	if err != nil {
		return nil, fmt.Errorf("read manifest %q: %w", string(current), err)
	}

	var m Manifest
	if err := s.codec.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported manifest version: %d (expected %d)", m.Version, CurrentVersion)
	}

	return &m, nil
}

// Save atomically saves a new manifest and advances CURRENT.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Version = CurrentVersion
	m.ID++

	filename := fmt.Sprintf("%s-%06d.json", ManifestFileName, m.ID)

	data, err := s.codec.Marshal(m)
	if err != nil {
		return err
	}

	if err := s.store.Put(ctx, filename, data); err != nil {
		return err
	}

	// Commit: the manifest becomes current only once this succeeds.
	return s.store.Put(ctx, CurrentFileName, []byte(filename))
}

func readBlob(ctx context.Context, store blobstore.BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	data := make([]byte, b.Size())
	if _, err := b.ReadAt(ctx, data, 0); err != nil && b.Size() > 0 {
		return nil, err
	}
	return data, nil
}
