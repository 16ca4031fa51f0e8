package cache

import (
	"context"
	"io/fs"
	"path/filepath"

	"autogallery/internal/metrics"
)

// Stats counts artifacts and their total size under the cache root.
// It implements metrics.StatsProvider.
type Stats struct {
	Layout Layout
}

// CacheStats walks the cache tree. Unreadable directories are skipped.
func (s Stats) CacheStats(ctx context.Context) (metrics.CacheStats, error) {
	var out metrics.CacheStats
	err := filepath.WalkDir(s.Layout.CacheRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !IsArtifactName(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out.Artifacts++
		out.Bytes += info.Size()
		return nil
	})
	return out, err
}
