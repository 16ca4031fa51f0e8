// Package startup loads configuration and prints the startup and shutdown
// log.
//
// # Configuration
//
// [LoadConfig] starts from [DefaultConfig], overlays the YAML file named by
// CONFIG_FILE (unknown keys are rejected), then applies the environment:
//
//   - SOURCE_DIR: tree to serve (default: /srv/gallery)
//   - CACHE_DIR: thumbnail cache root, must be writable (default: /cache)
//   - DATABASE_DIR: failure ledger and sweep history (default: /database)
//   - STATIC_DIR: icons and front-end assets (default: ./static)
//   - PORT, METRICS_PORT, METRICS_ENABLED: listeners (8080, 9090, true)
//   - SWEEP_INTERVAL: pause between sweeps, duration or seconds (default: 600s)
//   - SWEEP_WORKERS: thumbnail workers per sweep (default: 1.5 per CPU, max 8)
//   - PROGRESS_FILE: sweep progress file (default: CACHE_DIR/.sweep-progress)
//   - GC_SCHEDULE: cron expression for orphan collection (default: off)
//   - FAILURE_RETENTION: how long a failed image is skipped (default: 720h)
//   - THUMB_MAX_WIDTH, THUMB_MAX_HEIGHT, THUMB_QUALITY: 178, 100, 85
//   - USE_VIPS: decode through libvips (default: false)
//   - LISTING_GENERATE: thumbnail uncached images while listing (default: false)
//   - ROW_ITEMS_SHORT, ROW_ITEMS_LONG: gallery row width on mobile/desktop (3, 5)
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS: logging
//
// The YAML keys are the lowercase variable names:
//
//	source_dir: /srv/photos
//	sweep_interval: 15m
//	gc_schedule: "@daily"
//
// # Directory Setup
//
// The cache root is created and write-tested; failure there is the one
// configuration error that stops the server. The source directory is only
// checked. The database directory is created if possible, and the ledger is
// disabled when it is not writable.
//
// # Build Information
//
// Version, Commit and BuildTime are set with -ldflags and exposed through
// [GetBuildInfo].
package startup
