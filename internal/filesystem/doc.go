/*
Package filesystem wraps the handful of filesystem calls the gallery makes
against its source and cache trees.

# Retries

Gallery roots are often NFS mounts. StatWithRetry, LstatWithRetry,
ReadDirWithRetry and OpenWithRetry retry ESTALE (stale file handle) with
exponential backoff; every other error is returned immediately.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

# Errors

Classify folds os errors into ErrNotFound and ErrPermissionDenied so callers
can use errors.Is without caring which syscall failed.

# Observation

Retries and latencies are reported to an Observer registered with SetObserver,
labelled by the volume that VolumeResolver assigns to the path.
*/
package filesystem
