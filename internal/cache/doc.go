// Package cache owns the on-disk layout of the thumbnail cache.
//
// Artifacts live in a tree that mirrors the source tree directory for
// directory. Inside each mirrored directory an artifact is named after the
// fingerprint of its source file, a SHA-256 of the absolute source path and
// its modification time:
//
//	/srv/gallery/2024/beach.jpg  ->  /cache/2024/3f1c...e9.jpg
//
// Editing a file changes its mtime and therefore its fingerprint, so the old
// artifact is simply never looked up again. Artifacts are write-once; the
// Collector removes the ones that no longer match any source file.
package cache
