package persistence

import (
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/rombasis/blobstore"
	"gonum.org/v1/gonum/mat"
)

// Snapshot is the persisted form of a basis at the end of a time interval
// (SnapshotKindBasis) or of a generator mid-interval for restart
// (SnapshotKindState).
type Snapshot struct {
	Kind       uint8
	StartTime  float64
	NumSamples int

	// Basis is the dim x rank orthonormal basis.
	Basis *mat.Dense
	// SingularValues holds the rank singular values in descending order.
	SingularValues []float64
	// SampleCoords is the numSamples x rank coordinate matrix. Nil for
	// snapshots that only need reconstruction through the basis.
	SampleCoords *mat.Dense
}

// Dim returns the state dimension.
func (s *Snapshot) Dim() int {
	r, _ := s.Basis.Dims()
	return r
}

// Rank returns the number of basis vectors.
func (s *Snapshot) Rank() int {
	_, c := s.Basis.Dims()
	return c
}

func (s *Snapshot) validate() error {
	if s.Basis == nil {
		return fmt.Errorf("snapshot has no basis")
	}
	if s.Kind != SnapshotKindBasis && s.Kind != SnapshotKindState {
		return fmt.Errorf("%w: %d", ErrInvalidKind, s.Kind)
	}
	dim, rank := s.Basis.Dims()
	if dim == 0 || rank == 0 {
		return fmt.Errorf("snapshot basis is empty")
	}
	if len(s.SingularValues) != rank {
		return fmt.Errorf("snapshot has %d singular values for rank %d", len(s.SingularValues), rank)
	}
	if s.SampleCoords != nil {
		rows, cols := s.SampleCoords.Dims()
		if cols != rank {
			return fmt.Errorf("sample coordinates have %d columns for rank %d", cols, rank)
		}
		if rows != s.NumSamples {
			return fmt.Errorf("sample coordinates have %d rows for %d samples", rows, s.NumSamples)
		}
	}
	return nil
}

// SnapshotName builds the blob name of an interval snapshot:
// "<base>.<interval>_<rank>.basis".
func SnapshotName(base string, interval, rank int) string {
	return fmt.Sprintf("%s.%010d_%d.basis", base, interval, rank)
}

// StateName builds the blob name of a generator restart state.
func StateName(base string) string {
	return base + ".state"
}

// WriteSnapshot serializes a snapshot into the blob store under name.
// Layout: 64-byte header, then a (possibly compressed) payload of basis,
// singular values, optional sample coordinates, and a CRC32 trailer over
// the uncompressed payload.
func WriteSnapshot(ctx context.Context, store blobstore.BlobStore, name string, snap *Snapshot, comp Compression) error {
	if err := snap.validate(); err != nil {
		return err
	}

	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}

	if err := writeSnapshotTo(w, snap, comp); err != nil {
		_ = w.Close()
		_ = store.Delete(ctx, name)
		return err
	}
	if err := w.Sync(); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func writeSnapshotTo(w io.Writer, snap *Snapshot, comp Compression) error {
	dim, rank := snap.Basis.Dims()

	header := FileHeader{
		Kind:        snap.Kind,
		Compression: uint8(comp),
		Dim:         uint64(dim),
		Rank:        uint32(rank),
		NumSamples:  uint64(snap.NumSamples),
		StartTime:   snap.StartTime,
	}
	if snap.SampleCoords != nil {
		header.Flags |= FlagHasSampleCoords
	}

	if err := NewBinaryWriter(w).WriteHeader(&header); err != nil {
		return err
	}

	compW, err := comp.NewWriter(w)
	if err != nil {
		return err
	}

	cw := NewChecksumWriter(compW)
	bw := NewBinaryWriter(cw)

	if err := bw.WriteFloat64Slice(matData(snap.Basis)); err != nil {
		return err
	}
	if err := bw.WriteFloat64Slice(snap.SingularValues); err != nil {
		return err
	}
	if snap.SampleCoords != nil {
		if err := bw.WriteFloat64Slice(matData(snap.SampleCoords)); err != nil {
			return err
		}
	}

	// Trailer rides inside the compressed stream; the reader knows the
	// payload length from the header and finds it right after.
	if err := NewBinaryWriter(compW).WriteUint32(cw.Sum()); err != nil {
		return err
	}
	return compW.Close()
}

// ReadSnapshot loads and verifies a snapshot from the blob store.
func ReadSnapshot(ctx context.Context, store blobstore.BlobStore, name string) (*Snapshot, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	return readSnapshotFrom(&blobReader{ctx: ctx, blob: b})
}

func readSnapshotFrom(r io.Reader) (*Snapshot, error) {
	header, err := NewBinaryReader(r).ReadHeader()
	if err != nil {
		return nil, err
	}
	if header.Kind != SnapshotKindBasis && header.Kind != SnapshotKindState {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, header.Kind)
	}

	decomp, err := Compression(header.Compression).NewReader(r)
	if err != nil {
		return nil, err
	}
	defer decomp.Close()

	cr := NewChecksumReader(decomp)
	br := NewBinaryReader(cr)

	dim := int(header.Dim)
	rank := int(header.Rank)

	basisData, err := br.ReadFloat64Slice(dim * rank)
	if err != nil {
		return nil, fmt.Errorf("read basis: %w", err)
	}
	sigma, err := br.ReadFloat64Slice(rank)
	if err != nil {
		return nil, fmt.Errorf("read singular values: %w", err)
	}

	snap := &Snapshot{
		Kind:           header.Kind,
		StartTime:      header.StartTime,
		NumSamples:     int(header.NumSamples),
		Basis:          mat.NewDense(dim, rank, basisData),
		SingularValues: sigma,
	}

	if header.Flags&FlagHasSampleCoords != 0 {
		coordsData, err := br.ReadFloat64Slice(int(header.NumSamples) * rank)
		if err != nil {
			return nil, fmt.Errorf("read sample coordinates: %w", err)
		}
		snap.SampleCoords = mat.NewDense(int(header.NumSamples), rank, coordsData)
	}

	// The trailer is read outside the checksum tap.
	sum := cr.Sum()
	expected, err := NewBinaryReader(decomp).ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("read checksum: %w", err)
	}
	if sum != expected {
		return nil, &ChecksumMismatchError{Expected: expected, Actual: sum}
	}

	return snap, nil
}

// matData returns the row-major backing data of m, copying only when the
// matrix is a strided view.
func matData(m *mat.Dense) []float64 {
	raw := m.RawMatrix()
	if raw.Stride == raw.Cols {
		return raw.Data[:raw.Rows*raw.Cols]
	}
	out := make([]float64, raw.Rows*raw.Cols)
	for i := 0; i < raw.Rows; i++ {
		copy(out[i*raw.Cols:(i+1)*raw.Cols], raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols])
	}
	return out
}

// blobReader adapts a blobstore.Blob to io.Reader.
type blobReader struct {
	ctx  context.Context
	blob blobstore.Blob
	off  int64
}

func (r *blobReader) Read(p []byte) (int, error) {
	n, err := r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	return n, err
}
