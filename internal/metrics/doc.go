// Package metrics provides Prometheus instrumentation for the gallery.
//
// All metrics are prefixed with "autogallery_" and registered with the
// default registry through promauto, so importing the package is enough to
// export them on /metrics.
//
// # Metric Categories
//
// ## HTTP
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Sweeps
//   - SweepRunsTotal: completed passes by result
//   - SweepSkippedTotal: requests ignored because the root was already sweeping
//   - SweepRunning, SweepItemsRemaining, SweepDegraded: per-root state
//   - SweepItemsTotal: visited entries by outcome
//   - SweepLastDuration, SweepLastTimestamp
//
// ## Thumbnails
//   - ThumbnailGenerationsTotal: attempts by status
//   - ThumbnailGenerationDuration: per phase (decode, resize, encode, write, total)
//   - ThumbnailDecodeByFormat: by image format and decoder
//
// ## Cache
//   - CacheArtifacts, CacheSizeBytes: refreshed by Collector
//   - CacheLookupsTotal: listing hits and misses
//   - CacheGCRunsTotal, CacheGCRemovedTotal: orphan collection
//
// ## Listings, filesystem, database, memory
//   - ListingsTotal, ListingDuration, ListingItems
//   - Filesystem*: fed by FilesystemObserver, labelled by volume
//   - DBQueryTotal, DBQueryDuration, DBFailuresRecorded
//   - MemoryUsageRatio, MemoryPaused, MemoryGCForced
//
// # Usage
//
//	metrics.InitializeMetrics(cfg.SourceDir)
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
//	collector := metrics.NewCollector(cacheStats, db, time.Minute)
//	collector.Start()
//	defer collector.Stop()
package metrics
