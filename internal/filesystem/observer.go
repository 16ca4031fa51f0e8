package filesystem

// Observer receives retry and latency events. The metrics package provides
// the Prometheus implementation; this package does not import it so that
// metrics can stay a leaf.
type Observer interface {
	// ObserveOperation records the outcome of one logical operation
	// ("stat", "lstat", "readdir", "open"), retries included.
	ObserveOperation(volume, operation string, durationSeconds float64, err error)
	ObserveRetryAttempt(operation, volume string)
	ObserveRetrySuccess(operation, volume string)
	ObserveRetryFailure(operation, volume string)
	ObserveStaleError(operation, volume string)
}

var defaultObserver Observer

// SetObserver sets the package-level observer. nil disables observation.
func SetObserver(o Observer) {
	defaultObserver = o
}
