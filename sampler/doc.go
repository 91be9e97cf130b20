// Package sampler decides when the next state snapshot should be taken for
// basis generation.
//
// The incremental sampler adapts the sampling time step to a local error
// indicator: the component of the state (and of its time derivative) that is
// not captured by the current basis. The static sampler accepts every offered
// snapshot.
package sampler
