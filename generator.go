package rombasis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/rombasis/blobstore"
	"github.com/hupe1980/rombasis/manifest"
	"github.com/hupe1980/rombasis/persistence"
	"github.com/hupe1980/rombasis/resource"
	"github.com/hupe1980/rombasis/sampler"
	"github.com/hupe1980/rombasis/svd"
)

// Generator collects simulation snapshots into a reduced basis and owns the
// persistence lifecycle around the SVD engine: interval snapshot flushes,
// manifest updates and restart states.
//
// All methods are safe for concurrent use.
type Generator struct {
	mu sync.Mutex

	dim     int
	sampler sampler.Sampler

	store     blobstore.BlobStore
	manifests *manifest.Store
	resources *resource.Controller

	compression persistence.Compression
	basisName   string

	metrics MetricsCollector
	logger  *Logger

	man *manifest.Manifest

	// intervalOffset maps engine-local interval indices to manifest
	// indices. Nonzero only after a restart.
	intervalOffset int

	// flushedInterval/flushedSamples identify the newest persisted
	// snapshot, in engine-local terms.
	flushedInterval int
	flushedSamples  int

	lastSampleTime float64

	closed bool
}

// restorer is satisfied by engines that can resume from a restart state.
type restorer interface {
	Restore(basis *mat.Dense, singularValues []float64, sampleCoords *mat.Dense, startTime float64, numSamples int) error
}

// ranker is satisfied by engines that track their rank incrementally.
type ranker interface {
	Rank() int
}

// New creates a generator around the fast-update incremental SVD engine and
// the adaptive sampler. dim is the row dimension of the state space.
func New(dim int, optFns ...Option) (*Generator, error) {
	o := applyOptions(optFns)

	engine, err := svd.NewIncremental(withDimension(dim, o.svdOptions)...)
	if err != nil {
		return nil, translateError(err, "")
	}
	smp, err := sampler.NewIncremental(engine, o.samplerOptions...)
	if err != nil {
		return nil, err
	}

	return newGenerator(dim, smp, o), nil
}

// NewStatic creates a generator around the batch SVD engine and the
// pass-through sampler: every offered snapshot is collected and the interval
// basis is factorized in one batch. Sampler options are ignored.
func NewStatic(dim int, optFns ...Option) (*Generator, error) {
	o := applyOptions(optFns)

	engine, err := svd.NewStatic(withDimension(dim, o.svdOptions)...)
	if err != nil {
		return nil, translateError(err, "")
	}
	smp, err := sampler.NewStatic(engine)
	if err != nil {
		return nil, err
	}

	return newGenerator(dim, smp, o), nil
}

// withDimension appends the authoritative dimension so it wins over any
// user-supplied option function.
func withDimension(dim int, optFns []func(*svd.Options)) []func(*svd.Options) {
	out := make([]func(*svd.Options), 0, len(optFns)+1)
	out = append(out, optFns...)
	return append(out, func(o *svd.Options) { o.Dimension = dim })
}

func newGenerator(dim int, smp sampler.Sampler, o options) *Generator {
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}

	g := &Generator{
		dim:             dim,
		sampler:         smp,
		store:           o.store,
		resources:       o.resources,
		compression:     o.compression,
		basisName:       o.basisName,
		metrics:         o.metricsCollector,
		logger:          o.logger.WithDimension(dim).WithBasisName(o.basisName),
		flushedInterval: -1,
	}
	if o.store != nil {
		g.manifests = manifest.NewStore(o.store, o.codec)
	}
	return g
}

// Dim returns the row dimension of the state space.
func (g *Generator) Dim() int {
	return g.dim
}

// IsNextSample reports whether a sample is wanted at simulation time t.
func (g *Generator) IsNextSample(t float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sampler.IsNextSample(t)
}

// ComputeNextSampleTime computes the next time a snapshot is needed, given
// the state u and its right hand side rhs at time t. Like the engines it
// panics on malformed input; those are caller bugs, not runtime conditions.
func (g *Generator) ComputeNextSampleTime(u, rhs []float64, t float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sampler.ComputeNextSampleTime(u, rhs, t)
}

// TakeSample collects the snapshot u at simulation time t, where dt is the
// solver's current time step. When the sample opens a new time interval, the
// completed interval is first flushed to the blob store (if one is
// configured) and the adaptive sampling step is reset to dt, so the cadence
// follows the solver's step as it evolves.
//
// It returns false with a nil error when the engine rejected the sample
// (zero norm).
func (g *Generator) TakeSample(ctx context.Context, u []float64, t, dt float64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	start := time.Now()
	accepted, err := g.takeSampleLocked(ctx, u, t, dt)
	g.metrics.RecordSample(time.Since(start), err)
	return accepted, err
}

func (g *Generator) takeSampleLocked(ctx context.Context, u []float64, t, dt float64) (bool, error) {
	if g.closed {
		return false, ErrClosed
	}
	if len(u) != g.dim {
		return false, &ErrDimensionMismatch{Expected: g.dim, Actual: len(u)}
	}
	if t < 0 {
		return false, fmt.Errorf("rombasis: negative sample time %g", t)
	}
	if dt < 0 {
		return false, fmt.Errorf("rombasis: negative time step %g", dt)
	}
	if t < g.lastSampleTime {
		return false, fmt.Errorf("rombasis: sample time %g precedes %g", t, g.lastSampleTime)
	}

	eng := g.sampler.Engine()
	boundary := eng.NumBasisTimeIntervals() > 0 && eng.IsNewTimeInterval()
	if boundary {
		if err := g.flushLiveIntervalLocked(ctx); err != nil {
			return false, err
		}
	}

	accepted := g.sampler.TakeSample(u, t)
	if accepted {
		g.lastSampleTime = t
		if boundary && dt > 0 {
			g.sampler.ResetDt(dt)
		}
	}

	rank := 0
	if r, ok := eng.(ranker); ok {
		rank = r.Rank()
	}
	g.logger.LogSample(ctx, t, rank, eng.NumSamples(), accepted)
	return accepted, nil
}

// EndSamples signals that the sample stream is complete. The live interval
// is flushed to the blob store and the manifest committed. Without a store
// it is a no-op.
func (g *Generator) EndSamples(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	return g.flushLiveIntervalLocked(ctx)
}

// Close flushes the live interval and marks the generator closed. Closing
// twice is a no-op.
func (g *Generator) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	err := g.flushLiveIntervalLocked(ctx)
	g.closed = true
	return err
}

// flushLiveIntervalLocked persists the live factorization if it holds
// samples that are not on stable storage yet.
func (g *Generator) flushLiveIntervalLocked(ctx context.Context) error {
	eng := g.sampler.Engine()
	n := eng.NumBasisTimeIntervals()
	if g.store == nil || n == 0 || eng.NumSamples() == 0 {
		return nil
	}

	interval := n - 1
	if interval == g.flushedInterval && eng.NumSamples() <= g.flushedSamples {
		return nil
	}
	if interval < g.flushedInterval {
		return nil
	}

	start := time.Now()
	name, rank, err := g.writeIntervalLocked(ctx, interval)
	g.metrics.RecordFlush(time.Since(start), err)
	g.logger.LogFlush(ctx, name, g.intervalOffset+interval, rank, err)
	if err != nil {
		return translateError(err, name)
	}

	g.flushedInterval = interval
	g.flushedSamples = eng.NumSamples()
	return nil
}

func (g *Generator) writeIntervalLocked(ctx context.Context, interval int) (string, int, error) {
	snap := g.snapshotLocked(persistence.SnapshotKindBasis)
	index := g.intervalOffset + interval
	name := persistence.SnapshotName(g.basisName, index, snap.Rank())

	if err := g.persistLocked(ctx, name, snap); err != nil {
		return name, snap.Rank(), err
	}

	if err := g.ensureManifestLocked(ctx); err != nil {
		return name, snap.Rank(), err
	}

	// Re-flushing the same interval (EndSamples followed by more samples,
	// or a resumed run) supersedes the previous snapshot.
	if k := len(g.man.Intervals); k > 0 && g.man.Intervals[k-1].Index == index {
		if prev := g.man.Intervals[k-1].Path; prev != name {
			_ = g.store.Delete(ctx, prev)
		}
		g.man.Intervals = g.man.Intervals[:k-1]
	}

	g.man.Dim = g.dim
	g.man.Intervals = append(g.man.Intervals, manifest.IntervalInfo{
		Index:      index,
		StartTime:  snap.StartTime,
		Rank:       snap.Rank(),
		NumSamples: snap.NumSamples,
		Path:       name,
	})
	if err := g.manifests.Save(ctx, g.man); err != nil {
		return name, snap.Rank(), err
	}
	return name, snap.Rank(), nil
}

// snapshotLocked captures the live factorization. Restart states also carry
// the sample coordinates so the engine can resume mid-interval.
func (g *Generator) snapshotLocked(kind uint8) *persistence.Snapshot {
	eng := g.sampler.Engine()

	basis := eng.Basis()
	_, rank := basis.Dims()

	s := eng.SingularValues()
	sv := make([]float64, rank)
	for i := range sv {
		sv[i] = s.At(i, i)
	}

	snap := &persistence.Snapshot{
		Kind:           kind,
		StartTime:      eng.BasisIntervalStartTime(eng.NumBasisTimeIntervals() - 1),
		NumSamples:     eng.NumSamples(),
		Basis:          basis,
		SingularValues: sv,
	}
	if kind == persistence.SnapshotKindState {
		if c, ok := eng.(interface{ SampleCoordinates() *mat.Dense }); ok {
			snap.SampleCoords = c.SampleCoordinates()
		}
	}
	return snap
}

// persistLocked writes one snapshot under the configured resource limits.
func (g *Generator) persistLocked(ctx context.Context, name string, snap *persistence.Snapshot) error {
	if err := g.resources.AcquireFlush(ctx); err != nil {
		return err
	}
	defer g.resources.ReleaseFlush()

	if err := g.resources.AcquireIO(ctx, snapshotBytes(snap)); err != nil {
		return err
	}
	return persistence.WriteSnapshot(ctx, g.store, name, snap, g.compression)
}

// snapshotBytes estimates the serialized size of a snapshot for IO
// budgeting. Compression can only shrink the actual write.
func snapshotBytes(snap *persistence.Snapshot) int {
	dim, rank := snap.Basis.Dims()
	n := 64 + dim*rank*8 + rank*8 + 4
	if snap.SampleCoords != nil {
		r, c := snap.SampleCoords.Dims()
		n += r * c * 8
	}
	return n
}

func (g *Generator) ensureManifestLocked(ctx context.Context) error {
	if g.man != nil {
		return nil
	}
	m, err := g.manifests.Load(ctx)
	if err != nil {
		return err
	}
	g.man = m
	return nil
}

// SaveState persists the live factorization as a restart state, including
// the sample coordinates, so a later run can resume mid-interval.
func (g *Generator) SaveState(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	start := time.Now()
	err := g.saveStateLocked(ctx)
	g.metrics.RecordStateSave(time.Since(start), err)
	return err
}

func (g *Generator) saveStateLocked(ctx context.Context) error {
	if g.closed {
		return ErrClosed
	}
	if g.store == nil {
		return ErrNoBlobStore
	}
	if g.sampler.Engine().NumSamples() == 0 {
		return fmt.Errorf("rombasis: nothing to save: %w", svd.ErrNoSamples)
	}

	name := persistence.StateName(g.basisName)
	snap := g.snapshotLocked(persistence.SnapshotKindState)

	err := g.persistLocked(ctx, name, snap)
	g.logger.LogStateSave(ctx, name, err)
	return translateError(err, name)
}

// Restore resumes from the restart state saved under the configured basis
// name. It must be called before any sample is taken and only the
// incremental engine supports it. A missing state yields ErrNoSavedState.
func (g *Generator) Restore(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	start := time.Now()
	err := g.restoreLocked(ctx)
	g.metrics.RecordRestore(time.Since(start), err)
	return err
}

func (g *Generator) restoreLocked(ctx context.Context) error {
	if g.closed {
		return ErrClosed
	}
	if g.store == nil {
		return ErrNoBlobStore
	}

	rest, ok := g.sampler.Engine().(restorer)
	if !ok {
		return fmt.Errorf("rombasis: engine does not support restart")
	}

	name := persistence.StateName(g.basisName)
	snap, err := persistence.ReadSnapshot(ctx, g.store, name)
	if err != nil {
		err = translateError(err, name)
		g.logger.LogRestore(ctx, name, 0, err)
		return err
	}

	if snap.Kind != persistence.SnapshotKindState {
		err := &ErrCorruptSnapshot{Name: name, cause: fmt.Errorf("kind %d is not a restart state", snap.Kind)}
		g.logger.LogRestore(ctx, name, 0, err)
		return err
	}
	if snap.Dim() != g.dim {
		err := &ErrDimensionMismatch{Expected: g.dim, Actual: snap.Dim()}
		g.logger.LogRestore(ctx, name, 0, err)
		return err
	}
	if snap.SampleCoords == nil {
		err := &ErrCorruptSnapshot{Name: name, cause: errors.New("restart state has no sample coordinates")}
		g.logger.LogRestore(ctx, name, 0, err)
		return err
	}

	if err := rest.Restore(snap.Basis, snap.SingularValues, snap.SampleCoords, snap.StartTime, snap.NumSamples); err != nil {
		err = translateError(err, name)
		g.logger.LogRestore(ctx, name, 0, err)
		return err
	}

	// The resumed interval keeps its manifest slot: engine-local interval 0
	// maps onto the index the previous run was working on.
	if err := g.ensureManifestLocked(ctx); err != nil {
		return err
	}
	g.intervalOffset = len(g.man.Intervals)
	if k := len(g.man.Intervals); k > 0 && g.man.Intervals[k-1].StartTime == snap.StartTime {
		g.intervalOffset = g.man.Intervals[k-1].Index
	}
	g.lastSampleTime = snap.StartTime

	g.logger.LogRestore(ctx, name, snap.NumSamples, nil)
	return nil
}

// Basis returns the basis vectors of the current time interval as a
// dim x rank matrix. It panics before the first accepted sample. Read-only.
func (g *Generator) Basis() *mat.Dense {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sampler.Engine().Basis()
}

// SingularValues returns the singular values of the current time interval
// in descending order. It panics before the first accepted sample.
func (g *Generator) SingularValues() []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.sampler.Engine().SingularValues()
	n, _ := s.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = s.At(i, i)
	}
	return out
}

// NumSamples returns the number of samples folded into the current time
// interval.
func (g *Generator) NumSamples() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sampler.Engine().NumSamples()
}

// NumBasisTimeIntervals returns the number of time intervals on which
// different sets of basis vectors are defined.
func (g *Generator) NumBasisTimeIntervals() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sampler.Engine().NumBasisTimeIntervals()
}

// BasisIntervalStartTime returns the start time of the requested interval.
func (g *Generator) BasisIntervalStartTime(which int) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sampler.Engine().BasisIntervalStartTime(which)
}

// IntervalBasis returns the factorization of the requested interval. For
// the newest interval it is the live factorization. Both matrices are
// read-only.
func (g *Generator) IntervalBasis(which int) (basis, singularValues *mat.Dense) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sampler.Engine().IntervalBasis(which)
}

// Manifest returns a copy of the persisted interval catalog. Intervals the
// generator has not flushed yet are not listed.
func (g *Generator) Manifest(ctx context.Context) (*manifest.Manifest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.store == nil {
		return nil, ErrNoBlobStore
	}
	if err := g.ensureManifestLocked(ctx); err != nil {
		return nil, err
	}

	out := *g.man
	out.Intervals = append([]manifest.IntervalInfo(nil), g.man.Intervals...)
	return &out, nil
}

// Ensure the engines keep satisfying what the facade relies on.
var (
	_ restorer = (*svd.Incremental)(nil)
	_ ranker   = (*svd.Incremental)(nil)
)
