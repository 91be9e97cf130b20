// Package svd maintains truncated singular value decompositions of a stream
// of high-dimensional state snapshots, without ever storing or re-factoring
// the full snapshot matrix.
//
// Two engines are provided:
//
//   - Incremental: Brand's "fast update" formulation. Each accepted sample
//     either extends the basis by one direction or is folded in as linearly
//     dependent, driven by a single small SVD per sample. The right singular
//     vectors are never materialized; an auxiliary coordinate matrix carries
//     one row per accepted sample instead.
//   - Static: collects the samples of a time interval and factors them in one
//     batch SVD when the basis is requested.
//
// Both engines split the sample stream into time intervals. Within an
// interval the basis is updated in place; when an interval closes its basis
// is frozen and kept as read-only history.
//
// Engines are single-threaded by design: exactly one caller drives samples
// sequentially. Concurrent use of one engine is not supported.
package svd
