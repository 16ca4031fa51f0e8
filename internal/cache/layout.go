package cache

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"autogallery/internal/filesystem"
)

// Layout maps source paths onto the mirrored cache tree:
//
//	<SourceRoot>/<rel>/photo.jpg -> <CacheRoot>/<rel>/<fingerprint>.jpg
type Layout struct {
	SourceRoot string
	CacheRoot  string
}

// NewLayout returns a Layout with both roots made absolute and cleaned.
func NewLayout(sourceRoot, cacheRoot string) (Layout, error) {
	src, err := filepath.Abs(sourceRoot)
	if err != nil {
		return Layout{}, fmt.Errorf("resolve source root: %w", err)
	}
	dst, err := filepath.Abs(cacheRoot)
	if err != nil {
		return Layout{}, fmt.Errorf("resolve cache root: %w", err)
	}
	return Layout{SourceRoot: src, CacheRoot: dst}, nil
}

// Rel returns p relative to the source root. It fails for paths outside
// the root.
func (l Layout) Rel(p string) (string, error) {
	rel, err := filepath.Rel(l.SourceRoot, p)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", p, l.SourceRoot)
	}
	return rel, nil
}

// MirrorDir returns the cache directory that mirrors sourceDir.
func (l Layout) MirrorDir(sourceDir string) (string, error) {
	rel, err := l.Rel(sourceDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.CacheRoot, rel), nil
}

// SourceDir is the inverse of MirrorDir.
func (l Layout) SourceDir(cacheDir string) (string, error) {
	rel, err := filepath.Rel(l.CacheRoot, cacheDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", cacheDir, l.CacheRoot)
	}
	return filepath.Join(l.SourceRoot, rel), nil
}

// ArtifactPath returns where the thumbnail for sourcePath with the given
// fingerprint lives.
func (l Layout) ArtifactPath(sourcePath, fingerprint string) (string, error) {
	dir, err := l.MirrorDir(filepath.Dir(sourcePath))
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ArtifactName(fingerprint)), nil
}

// ArtifactBeside returns the artifact path for an entry whose mirrored path
// is already known, as handed out by the tree walker.
func ArtifactBeside(mirroredPath, fingerprint string) string {
	return filepath.Join(filepath.Dir(mirroredPath), ArtifactName(fingerprint))
}

// Exists reports whether a regular artifact file is present.
func (l Layout) Exists(artifactPath string) bool {
	info, err := filesystem.StatWithRetry(artifactPath, filesystem.DefaultRetryConfig())
	return err == nil && info.Mode().IsRegular()
}

// URLPath returns the artifact path relative to the cache root with forward
// slashes, suitable for appending to the cache URL prefix.
func (l Layout) URLPath(artifactPath string) (string, error) {
	rel, err := filepath.Rel(l.CacheRoot, artifactPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside %s", artifactPath, l.CacheRoot)
	}
	return path.Clean(filepath.ToSlash(rel)), nil
}

// Contains reports whether p is the cache root or inside it.
func (l Layout) Contains(p string) bool {
	rel, err := filepath.Rel(l.CacheRoot, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// EnsureRoot creates the cache root and checks that it is writable.
func (l Layout) EnsureRoot() error {
	if err := os.MkdirAll(l.CacheRoot, 0o755); err != nil {
		return fmt.Errorf("create cache root: %w", err)
	}
	tmp, err := os.CreateTemp(l.CacheRoot, ".write-test-*")
	if err != nil {
		return fmt.Errorf("cache root not writable: %w", err)
	}
	name := tmp.Name()
	tmp.Close()
	return os.Remove(name)
}
