package media

import "fmt"

// ThumbnailError reports a source image that could not be turned into a
// thumbnail: undecodable, truncated, zero-sized, or one that made a decoder
// panic. The cause is kept in Err.
type ThumbnailError struct {
	Path string
	Op   string // "decode", "resize" or "encode"
	Err  error
}

func (e *ThumbnailError) Error() string {
	return fmt.Sprintf("thumbnail %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ThumbnailError) Unwrap() error { return e.Err }

// CacheWriteError reports that an encoded thumbnail could not be stored:
// the mirrored directory could not be created or the artifact not written.
// Unlike ThumbnailError it usually means the cache volume is full or
// read-only, so callers stop trying to write for a while.
type CacheWriteError struct {
	Path string
	Err  error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("write thumbnail %s: %v", e.Path, e.Err)
}

func (e *CacheWriteError) Unwrap() error { return e.Err }
