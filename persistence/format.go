package persistence

import "errors"

const (
	// MagicNumber identifies basis snapshot files (ASCII: "ROMB")
	MagicNumber = 0x524F4D42
	// Version is the current file format version (v1.0.0)
	Version = 0x00010000

	// Snapshot kinds
	SnapshotKindBasis = 1
	SnapshotKindState = 2
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrInvalidKind    = errors.New("invalid snapshot kind")
)

// Header flags.
const (
	// FlagHasSampleCoords marks snapshots that carry the per-sample
	// coordinate matrix alongside the basis.
	FlagHasSampleCoords = 1 << 0
)

// FileHeader is the 64-byte header at the start of every snapshot file.
// Written uncompressed so readers can inspect a snapshot without
// decoding the payload.
type FileHeader struct {
	Magic       uint32 // 0x524F4D42 ("ROMB")
	Version     uint32 // File format version
	Kind        uint8  // 1=Basis, 2=State
	Compression uint8  // Compression of the payload
	Flags       uint8
	Padding1    [1]byte
	Dim         uint64  // State dimension (rows of the basis)
	Rank        uint32  // Number of basis vectors
	Padding2    [4]byte
	NumSamples  uint64  // Samples absorbed into this snapshot
	StartTime   float64 // Simulation time of the interval's first sample
	Reserved    [20]byte
}
