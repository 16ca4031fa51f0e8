// Package sweep keeps the thumbnail cache filled.
//
// A sweep is one walk of a source tree with mirror.Walker, handing every
// thumbnailable image to a bounded worker pool that calls the generator
// with the image's fingerprinted artifact path. Before walking, the tree is
// counted and the count becomes a progress countdown, published at most
// every PublishInterval to a gauge, to Status, and to a plain-text file.
//
// Per root, sweeps are single-flight: an atomic flag is claimed before a
// pass and a second request while it is held gets ErrAlreadyRunning.
// Distinct roots have distinct flags and run in parallel.
//
// Start runs passes forever with Interval between them, on a timer that
// Stop and Trigger interrupt. Per-item failures never end a pass; a failed
// cache write stops further writes for the rest of that pass and marks the
// root degraded.
package sweep
