// Package rombasis builds reduced-order-model bases from streaming
// simulation snapshots.
//
// A Generator wraps one of two truncated-SVD engines. The incremental
// engine (New) folds each snapshot into the factorization with Brand's
// fast update method, so the basis is available at any point of the run
// without ever materializing the snapshot matrix. The static engine
// (NewStatic) collects the snapshots of a time interval and factorizes
// them in one batch SVD.
//
// Long simulations are split into time intervals; each interval carries
// its own basis. With a blob store configured the generator flushes the
// basis of every completed interval, maintains a versioned manifest of
// what was written, and can save and resume a restart state mid-interval.
//
// Basic usage:
//
//	store, err := blobstore.NewLocalStore("./rom-data")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gen, err := rombasis.New(dim,
//		rombasis.WithBlobStore(store),
//		rombasis.WithSVDOptions(func(o *svd.Options) {
//			o.SamplesPerInterval = 100
//		}),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer gen.Close(ctx)
//
//	for t := 0.0; t < tFinal; t = step(t) {
//		if gen.IsNextSample(t) {
//			if _, err := gen.TakeSample(ctx, state(t), t, dt); err != nil {
//				log.Fatal(err)
//			}
//			gen.ComputeNextSampleTime(state(t), rhs(t), t)
//		}
//	}
//	if err := gen.EndSamples(ctx); err != nil {
//		log.Fatal(err)
//	}
//	basis := gen.Basis()
//
// The sub-packages are usable on their own: svd holds the engines,
// sampler the cadence policies, persistence the snapshot wire format,
// blobstore the storage backends (local disk, memory, S3, MinIO) and
// deim the discrete empirical interpolation method for sampling
// nonlinear terms against a built basis.
package rombasis
