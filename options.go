package rombasis

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/rombasis/blobstore"
	"github.com/hupe1980/rombasis/codec"
	"github.com/hupe1980/rombasis/persistence"
	"github.com/hupe1980/rombasis/resource"
	"github.com/hupe1980/rombasis/sampler"
	"github.com/hupe1980/rombasis/svd"
)

type options struct {
	codec            codec.Codec
	store            blobstore.BlobStore
	resources        *resource.Controller
	compression      persistence.Compression
	basisName        string
	processRank      int
	metricsCollector MetricsCollector
	logger           *Logger
	svdOptions       []func(*svd.Options)
	samplerOptions   []func(*sampler.Options)
}

// Option configures Generator constructor behavior.
//
// Options primarily exist to avoid exploding the API surface
// (e.g. store-specific constructor variants).
type Option func(*options)

// WithCodec configures the codec used for encoding manifest files.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithBlobStore configures the store that interval snapshots, restart
// states and the manifest are written to. Without a store the generator is
// purely in-memory and all persistence operations fail with ErrNoBlobStore.
//
// Example:
//
//	store, _ := blobstore.NewLocalStore("./rom-data")
//	gen, _ := rombasis.New(dim, rombasis.WithBlobStore(store))
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithResourceController configures flush-concurrency and IO-bandwidth
// limits applied to snapshot writes. Pass nil to run unlimited.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithCompression configures the payload compression of persisted
// snapshots. The default is Zstd.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithBasisName configures the blob-name prefix of everything the generator
// persists. The default is "basis".
func WithBasisName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.basisName = name
		}
	}
}

// WithProcessRank suffixes the basis name with a zero-padded process rank,
// keeping the blobs of cooperating solver processes apart in a shared
// store. Negative ranks are ignored.
func WithProcessRank(rank int) Option {
	return func(o *options) {
		o.processRank = rank
	}
}

// WithSVDOptions forwards configuration to the underlying SVD engine, e.g.
// the linearity tolerance or the number of samples per time interval.
//
// Example:
//
//	gen, _ := rombasis.New(dim, rombasis.WithSVDOptions(func(o *svd.Options) {
//	    o.LinearityTol = 1e-9
//	    o.SamplesPerInterval = 50
//	}))
func WithSVDOptions(optFns ...func(*svd.Options)) Option {
	return func(o *options) {
		o.svdOptions = append(o.svdOptions, optFns...)
	}
}

// WithSamplerOptions forwards configuration to the adaptive sampler, e.g.
// the initial time step or the sampling tolerance. Ignored by NewStatic.
func WithSamplerOptions(optFns ...func(*sampler.Options)) Option {
	return func(o *options) {
		o.samplerOptions = append(o.samplerOptions, optFns...)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &rombasis.BasicMetricsCollector{}
//	gen, _ := rombasis.New(dim, rombasis.WithMetricsCollector(metrics))
//	// ... use gen ...
//	stats := metrics.GetStats()
//	fmt.Printf("Samples: %d, Avg latency: %dns\n", stats.SampleCount, stats.SampleAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := rombasis.NewJSONLogger(slog.LevelInfo)
//	gen, _ := rombasis.New(dim, rombasis.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            nil,
		compression:      persistence.CompressionZstd,
		basisName:        "basis",
		processRank:      -1,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.processRank >= 0 {
		o.basisName = fmt.Sprintf("%s.%06d", o.basisName, o.processRank)
	}
	return o
}
