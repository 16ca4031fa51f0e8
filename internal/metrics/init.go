package metrics

// InitializeMetrics pre-populates the label combinations we know about so
// every series is exported from the first scrape. Call once at startup.
func InitializeMetrics(roots ...string) {
	volumes := []string{"source", "cache", "database", "unknown"}
	ops := []string{"stat", "lstat", "readdir", "open"}
	for _, vol := range volumes {
		for _, op := range ops {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}

	for _, root := range roots {
		SweepRunning.WithLabelValues(root)
		SweepItemsRemaining.WithLabelValues(root)
		SweepLastDuration.WithLabelValues(root)
		SweepLastTimestamp.WithLabelValues(root)
		SweepDegraded.WithLabelValues(root)
	}
	for _, result := range []string{"ok", "degraded", "cancelled", "error"} {
		SweepRunsTotal.WithLabelValues(result)
	}
	for _, outcome := range []string{"generated", "exists", "ineligible", "known_failure", "failed", "write_disabled"} {
		SweepItemsTotal.WithLabelValues(outcome)
	}

	for _, status := range []string{"success", "exists", "ineligible", "error_decode", "error_write"} {
		ThumbnailGenerationsTotal.WithLabelValues(status)
	}
	for _, phase := range []string{"decode", "resize", "encode", "write", "total"} {
		ThumbnailGenerationDuration.WithLabelValues(phase)
	}

	CacheLookupsTotal.WithLabelValues("hit")
	CacheLookupsTotal.WithLabelValues("miss")
	CacheGCRemovedTotal.WithLabelValues("artifact")
	CacheGCRemovedTotal.WithLabelValues("directory")
	CacheGCRemovedTotal.WithLabelValues("temp")
	for _, status := range []string{"ok", "not_found", "not_directory"} {
		ListingsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"migrate", "record_failure", "known_failure", "count_failures",
		"prune_failures", "record_sweep", "recent_sweeps"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
