package metrics

// FilesystemObserver feeds filesystem retry events into Prometheus. It
// satisfies filesystem.Observer; register it with filesystem.SetObserver.
type FilesystemObserver struct{}

// NewFilesystemObserver returns the Prometheus-backed observer.
func NewFilesystemObserver() *FilesystemObserver {
	return &FilesystemObserver{}
}

// ObserveOperation records latency and errors for one operation.
func (o *FilesystemObserver) ObserveOperation(volume, operation string, durationSeconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(durationSeconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (o *FilesystemObserver) ObserveRetryAttempt(operation, volume string) {
	FilesystemRetryAttempts.WithLabelValues(operation, volume).Inc()
}

func (o *FilesystemObserver) ObserveRetrySuccess(operation, volume string) {
	FilesystemRetrySuccess.WithLabelValues(operation, volume).Inc()
}

func (o *FilesystemObserver) ObserveRetryFailure(operation, volume string) {
	FilesystemRetryFailures.WithLabelValues(operation, volume).Inc()
}

func (o *FilesystemObserver) ObserveStaleError(operation, volume string) {
	FilesystemStaleErrors.WithLabelValues(operation, volume).Inc()
}
