package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autogallery/internal/classify"
	"autogallery/internal/filesystem"
	"autogallery/internal/logging"
	"autogallery/internal/metrics"
)

// GCResult summarises one orphan collection pass.
type GCResult struct {
	DirsScanned      int
	ArtifactsKept    int
	ArtifactsRemoved int
	DirsRemoved      int
	TempsRemoved     int
	Duration         time.Duration
}

// Collector removes orphaned artifacts: thumbnails whose fingerprint no
// longer matches any file in the mirrored source directory. It only deletes
// names that IsArtifactName accepts and only ever under the cache root.
type Collector struct {
	layout Layout
	log    logging.Logger
}

// NewCollector returns a collector for layout.
func NewCollector(layout Layout) *Collector {
	return &Collector{layout: layout, log: logging.For("cache-gc")}
}

// Collect runs one pass. Cancelling ctx stops between directories.
func (c *Collector) Collect(ctx context.Context) (GCResult, error) {
	start := time.Now()
	var res GCResult

	var dirs []string
	err := filepath.WalkDir(c.layout.CacheRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == c.layout.CacheRoot {
				return err
			}
			c.log.Warn("skipping %s: %v", p, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, p)
		}
		return nil
	})
	if err != nil {
		metrics.CacheGCRunsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("walk cache root: %w", err)
	}

	// Deepest first so emptied children are gone before their parent is tried.
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			metrics.CacheGCRunsTotal.WithLabelValues("cancelled").Inc()
			res.Duration = time.Since(start)
			return res, err
		}
		c.collectDir(dirs[i], &res)
	}

	res.Duration = time.Since(start)
	metrics.CacheGCRunsTotal.WithLabelValues("ok").Inc()
	c.log.Info("scanned %d directories, kept %d artifacts, removed %d artifacts and %d directories in %v",
		res.DirsScanned, res.ArtifactsKept, res.ArtifactsRemoved, res.DirsRemoved, res.Duration.Round(time.Millisecond))
	return res, nil
}

func (c *Collector) collectDir(cacheDir string, res *GCResult) {
	res.DirsScanned++

	sourceDir, err := c.layout.SourceDir(cacheDir)
	if err != nil {
		return
	}

	live, sourceGone, err := c.liveFingerprints(sourceDir)
	if err != nil {
		c.log.Warn("cannot read %s, leaving %s alone: %v", sourceDir, cacheDir, err)
		return
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		c.log.Warn("cannot read %s: %v", cacheDir, err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), TempPrefix) {
			c.removeStaleTemp(filepath.Join(cacheDir, e.Name()), res)
			continue
		}
		if e.IsDir() || !IsArtifactName(e.Name()) {
			continue
		}
		if live[e.Name()] {
			res.ArtifactsKept++
			continue
		}
		p := filepath.Join(cacheDir, e.Name())
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.log.Warn("remove %s: %v", p, err)
			continue
		}
		res.ArtifactsRemoved++
		metrics.CacheGCRemovedTotal.WithLabelValues("artifact").Inc()
		c.log.Debug("removed orphan %s", p)
	}

	if sourceGone && cacheDir != c.layout.CacheRoot {
		// Fails harmlessly if anything besides our artifacts is left.
		if err := os.Remove(cacheDir); err == nil {
			res.DirsRemoved++
			metrics.CacheGCRemovedTotal.WithLabelValues("directory").Inc()
			c.log.Debug("removed directory %s", cacheDir)
		}
	}
}

// staleTempAge is how old a temp file must be before it counts as the
// leftover of a crashed write rather than one in progress.
const staleTempAge = time.Hour

func (c *Collector) removeStaleTemp(p string, res *GCResult) {
	info, err := os.Lstat(p)
	if err != nil || time.Since(info.ModTime()) < staleTempAge {
		return
	}
	if err := os.Remove(p); err == nil {
		res.TempsRemoved++
		metrics.CacheGCRemovedTotal.WithLabelValues("temp").Inc()
		c.log.Debug("removed stale temp file %s", p)
	}
}

// liveFingerprints returns the artifact names that the current contents of
// sourceDir would produce. A missing source directory yields an empty set
// and sourceGone; any other read failure is returned so nothing is deleted
// on a transient error.
func (c *Collector) liveFingerprints(sourceDir string) (live map[string]bool, sourceGone bool, err error) {
	live = make(map[string]bool)
	entries, err := filesystem.ReadDirWithRetry(sourceDir, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(filesystem.Classify(err), filesystem.ErrNotFound) {
			return live, true, nil
		}
		return nil, false, err
	}

	for _, e := range entries {
		if !classify.Thumbnailable(e.Name()) {
			continue
		}
		p := filepath.Join(sourceDir, e.Name())
		info, err := filesystem.StatWithRetry(p, filesystem.DefaultRetryConfig())
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		fp, err := FingerprintInfo(p, info)
		if err != nil {
			continue
		}
		live[ArtifactName(fp)] = true
	}
	return live, false, nil
}
