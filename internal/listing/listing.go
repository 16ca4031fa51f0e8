package listing

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"autogallery/internal/cache"
	"autogallery/internal/classify"
	"autogallery/internal/filesystem"
	"autogallery/internal/logging"
	"autogallery/internal/media"
	"autogallery/internal/metrics"
)

var (
	// ErrNotFound means the requested directory does not exist, cannot be
	// read, or lies outside the root.
	ErrNotFound = errors.New("directory not found")
	// ErrNotDirectory means the path names something other than a
	// directory; the caller should serve it as a file instead.
	ErrNotDirectory = errors.New("not a directory")
)

// BackName is the display name of the synthetic parent entry.
const BackName = "Back"

// Item is one row of a listing.
type Item struct {
	Name           string                  `json:"name"`
	Path           string                  `json:"path"` // relative to the root, slash separated
	Classification classify.Classification `json:"classification"`
	ThumbnailURL   string                  `json:"thumbnailUrl,omitempty"`
	IconURL        string                  `json:"iconUrl,omitempty"`
	IsDir          bool                    `json:"isDir"`
	Size           int64                   `json:"size"`
	ModTime        time.Time               `json:"modTime"`
	Back           bool                    `json:"back,omitempty"`
}

// PathPart is one step of the breadcrumb trail.
type PathPart struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Listing is a directory ready for rendering.
type Listing struct {
	Path       string     `json:"path"`
	Name       string     `json:"name"`
	Parent     string     `json:"parent,omitempty"`
	Breadcrumb []PathPart `json:"breadcrumb"`
	Items      []Item     `json:"items"`
	TotalItems int        `json:"totalItems"`
}

// Generator writes a single thumbnail. *media.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, source, dest string) (media.Outcome, error)
}

// Config configures an Assembler.
type Config struct {
	Layout      cache.Layout
	CachePrefix string // URL prefix the cache root is served under, e.g. "/cache/"
	IconPrefix  string // URL prefix of the icon assets, e.g. "/static/icons/"
	RootName    string // breadcrumb label of the root
	// Generator, if set, thumbnails an uncached image while listing. Left
	// nil, listings only read the cache and sweeps fill it.
	Generator Generator
}

// Assembler builds listings. It only reads the cache unless a Generator
// is configured, in which case it may write single artifacts through the
// same path sweeps use.
type Assembler struct {
	cfg Config
	log logging.Logger
	// nestedCache is the resolved cache root when it lives inside the
	// source root, empty otherwise.
	nestedCache cache.Layout
}

// New returns an Assembler.
func New(cfg Config) *Assembler {
	if cfg.CachePrefix == "" {
		cfg.CachePrefix = "/cache/"
	}
	if cfg.IconPrefix == "" {
		cfg.IconPrefix = "/static/icons/"
	}
	if cfg.RootName == "" {
		cfg.RootName = "Gallery"
	}
	a := &Assembler{cfg: cfg, log: logging.For("listing")}
	if cfg.Layout.CacheRoot != "" && cfg.Layout.SourceRoot != "" {
		srcReal := realPath(cfg.Layout.SourceRoot)
		cacheReal := realPath(cfg.Layout.CacheRoot)
		if rel, err := filepath.Rel(srcReal, cacheReal); err == nil && rel != "." &&
			rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			a.nestedCache = cache.Layout{CacheRoot: cacheReal}
		}
	}
	return a
}

// inCache reports whether p resolves into a cache root nested in the
// source tree.
func (a *Assembler) inCache(p string) bool {
	if a.nestedCache.CacheRoot == "" {
		return false
	}
	return a.nestedCache.Contains(realPath(p))
}

// realPath resolves symlinks in p. A missing tail is resolved as far as it
// exists so paths under the cache root still compare correctly.
func realPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	dir, base := filepath.Split(abs)
	dir = filepath.Clean(dir)
	if dir == abs {
		return abs
	}
	return filepath.Join(realPath(dir), base)
}

// Resolve cleans rel and maps it to an absolute path under the source
// root. Paths that climb out of the root are clamped to it; paths through
// hidden names or into a cache root inside the source tree return
// ErrNotFound.
func (a *Assembler) Resolve(rel string) (clean, abs string, err error) {
	clean = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(rel, "\\", "/")), "/")
	if clean != "" {
		for _, part := range strings.Split(clean, "/") {
			if strings.HasPrefix(part, ".") {
				return "", "", fmt.Errorf("%w: %s", ErrNotFound, rel)
			}
		}
	}
	abs = filepath.Join(a.cfg.Layout.SourceRoot, filepath.FromSlash(clean))
	if a.inCache(abs) {
		return "", "", fmt.Errorf("%w: %s", ErrNotFound, rel)
	}
	return clean, abs, nil
}

// List returns the entries of the directory at rel (relative to the source
// root, "" for the root). Directories sort first, then everything by name
// ignoring case; outside the root a "Back" entry leads to the parent.
// Entries that cannot be read are left out.
func (a *Assembler) List(ctx context.Context, rel string) (*Listing, error) {
	start := time.Now()

	listing, err := a.list(ctx, rel)
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.ListingsTotal.WithLabelValues("not_found").Inc()
	case errors.Is(err, ErrNotDirectory):
		metrics.ListingsTotal.WithLabelValues("not_directory").Inc()
	case err == nil:
		metrics.ListingsTotal.WithLabelValues("ok").Inc()
		metrics.ListingDuration.Observe(time.Since(start).Seconds())
		metrics.ListingItems.Observe(float64(listing.TotalItems))
	}
	return listing, err
}

func (a *Assembler) list(ctx context.Context, rel string) (*Listing, error) {
	clean, dir, err := a.Resolve(rel)
	if err != nil {
		return nil, err
	}

	retry := filesystem.DefaultRetryConfig()
	info, err := filesystem.StatWithRetry(dir, retry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, filesystem.Classify(err))
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, clean)
	}

	entries, err := filesystem.ReadDirWithRetry(dir, retry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, filesystem.Classify(err))
	}

	items := make([]Item, 0, len(entries)+1)
	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}
		item, ok := a.item(ctx, dir, clean, de)
		if ok {
			items = append(items, item)
		}
	}

	SortItems(items)

	listing := &Listing{
		Path:       clean,
		Name:       a.cfg.RootName,
		Breadcrumb: a.breadcrumb(clean),
		TotalItems: len(items),
	}
	if clean != "" {
		listing.Name = path.Base(clean)
		listing.Parent = parentOf(clean)
		back := Item{
			Name:           BackName,
			Path:           listing.Parent,
			Classification: classify.Directory,
			IconURL:        a.cfg.IconPrefix + classify.Icon(classify.Directory),
			IsDir:          true,
			Back:           true,
		}
		items = append([]Item{back}, items...)
	}
	listing.Items = items
	return listing, nil
}

// item builds the row for one entry, following symlinks. ok is false for
// entries the server cannot read.
func (a *Assembler) item(ctx context.Context, dir, rel string, de fs.DirEntry) (Item, bool) {
	name := de.Name()
	p := filepath.Join(dir, name)

	if a.inCache(p) {
		a.log.Debug("excluding cache tree %s", p)
		return Item{}, false
	}
	if err := unix.Access(p, unix.R_OK); err != nil {
		a.log.Debug("excluding %s: %v", p, err)
		return Item{}, false
	}
	info, err := filesystem.StatWithRetry(p, filesystem.DefaultRetryConfig())
	if err != nil {
		a.log.Debug("excluding %s: %v", p, filesystem.Classify(err))
		return Item{}, false
	}

	c := classify.ClassifyName(name, info.IsDir())
	item := Item{
		Name:           name,
		Path:           path.Join(rel, name),
		Classification: c,
		IsDir:          info.IsDir(),
		ModTime:        info.ModTime(),
	}
	if !info.IsDir() {
		item.Size = info.Size()
	}

	if c == classify.ImageGeneric && info.Mode().IsRegular() && classify.Thumbnailable(name) {
		if url, ok := a.thumbnail(ctx, p, info); ok {
			item.Classification = classify.ImageThumbed
			item.ThumbnailURL = url
		}
	}
	if item.Classification != classify.ImageThumbed {
		item.IconURL = a.cfg.IconPrefix + classify.Icon(item.Classification)
	}
	return item, true
}

// thumbnail returns the URL of the artifact for p if one exists, making it
// first when on-demand generation is enabled.
func (a *Assembler) thumbnail(ctx context.Context, p string, info fs.FileInfo) (string, bool) {
	fp, err := cache.FingerprintInfo(p, info)
	if err != nil {
		return "", false
	}
	artifact, err := a.cfg.Layout.ArtifactPath(p, fp)
	if err != nil {
		return "", false
	}

	hit := a.cfg.Layout.Exists(artifact)
	if hit {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}

	if !hit && a.cfg.Generator != nil {
		outcome, err := a.cfg.Generator.Generate(ctx, p, artifact)
		if err != nil {
			a.log.Debug("on-demand thumbnail for %s: %v", p, err)
			return "", false
		}
		hit = outcome == media.Written || outcome == media.SkippedExists
	}
	if !hit {
		return "", false
	}

	urlPath, err := a.cfg.Layout.URLPath(artifact)
	if err != nil {
		return "", false
	}
	return a.cfg.CachePrefix + urlPath, true
}

func (a *Assembler) breadcrumb(rel string) []PathPart {
	crumbs := []PathPart{{Name: a.cfg.RootName, Path: ""}}
	if rel == "" {
		return crumbs
	}
	current := ""
	for _, part := range strings.Split(rel, "/") {
		current = path.Join(current, part)
		crumbs = append(crumbs, PathPart{Name: part, Path: current})
	}
	return crumbs
}

func parentOf(rel string) string {
	parent := path.Dir(rel)
	if parent == "." {
		return ""
	}
	return parent
}

// sortKey puts directories ahead of files: the leading NUL collates
// before any character a file name can start with.
func sortKey(it Item) string {
	if it.IsDir {
		return "\x00" + strings.ToLower(it.Name)
	}
	return strings.ToLower(it.Name)
}

// SortItems orders items directories first, then case-insensitively by
// name. Names equal but for case fall back to byte order so the result is
// stable across calls.
func SortItems(items []Item) {
	slices.SortFunc(items, func(x, y Item) int {
		if c := strings.Compare(sortKey(x), sortKey(y)); c != 0 {
			return c
		}
		return strings.Compare(x.Name, y.Name)
	})
}
