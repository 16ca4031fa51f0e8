// Package media turns source images into thumbnail artifacts.
//
// A Generator decodes an image (honouring EXIF orientation), scales it to
// fit a bounding box with FitBox, applies a light detail-sharpening kernel
// and stores it as a JPEG. Generation is write-once: when the destination
// already exists nothing happens. Large images are shrunk right after
// decoding, and libvips can be used instead to shrink during decoding.
//
// Errors come in two kinds. A *ThumbnailError means this one source could
// not be thumbnailed and nothing else is affected. A *CacheWriteError means
// the cache itself refused the write, which is usually true for the next
// file as well.
package media
