// Command autogallery serves a directory tree as a browsable gallery and
// keeps a thumbnail cache for it.
//
// # Application Lifecycle
//
//  1. Memory Configuration: sets GOMEMLIMIT from MEMORY_LIMIT or GOMEMLIMIT
//  2. Configuration Loading: defaults, optional CONFIG_FILE, environment
//  3. Database Initialization: opens the SQLite failure ledger, if writable
//  4. Component Initialization:
//     - Thumbnail Generator: pure Go decoding, optionally through libvips
//     - Memory Monitor: pauses sweeps while the heap is near its limit
//     - Sweep Scheduler: periodic passes over the source tree
//     - Maintenance: orphan collection on GC_SCHEDULE
//     - Metrics Collector: cache size and ledger gauges every minute
//  5. HTTP Server Setup: routes, access log, metrics middleware
//  6. Graceful Shutdown: SIGINT/SIGTERM stops sweeps, then the servers
//
// # Sweeps
//
// The sweep loop starts on the first gallery request, not at startup. Each
// pass walks the source tree, mirrors its directories under CACHE_DIR and
// writes a thumbnail for every image that lacks one. Thumbnail names carry
// a fingerprint of the source path and modification time, so a changed
// image gets a new thumbnail and the old one becomes an orphan for the
// maintenance job.
//
// Listings only read the cache unless LISTING_GENERATE is set, so an image
// shows its generic icon until a sweep has reached it.
//
// # HTTP Server
//
// The main server (PORT, default 8080) serves:
//
//   - /api/list: directory listings as JSON
//   - /files/: source files
//   - /cache/: thumbnails, cacheable forever
//   - /api/progress, /api/sweep, /api/sweeps: sweep progress and control
//   - /health, /healthz, /livez, /readyz, /version: health and build info
//   - everything else from STATIC_DIR
//
// Prometheus metrics are served on METRICS_PORT (default 9090) at /metrics.
//
// # Build Requirements
//
// CGO is required for SQLite and libvips:
//
//	go build -o autogallery .
//
// See [autogallery/internal/startup] for the full list of settings and
// cmd/thumbsweep for running sweeps from the command line.
package main
