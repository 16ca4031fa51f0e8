package mirror

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"autogallery/internal/filesystem"
	"autogallery/internal/logging"
)

// Kind is what an entry is once symlinks are followed.
type Kind int

const (
	// KindFile is a regular file.
	KindFile Kind = iota
	// KindDirectory is a directory.
	KindDirectory
	// KindOther covers devices, sockets and pipes.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "other"
	}
}

// Entry is one visited source entry. It is rebuilt on every walk.
type Entry struct {
	Path    string // absolute path through the logical tree, symlinks unresolved
	Name    string
	Kind    Kind
	Symlink bool // reached through a symlink
	ModTime time.Time
	Info    fs.FileInfo // of the symlink target for links
}

// IsDir reports whether the entry is a directory. Together with Name it
// lets an Entry be passed to classify.Classify.
func (e Entry) IsDir() bool { return e.Kind == KindDirectory }

// IsRegular reports whether the entry is a regular file.
func (e Entry) IsRegular() bool { return e.Kind == KindFile }

// VisitFunc is called once per entry with the path the entry would have in
// the cache tree. Returning fs.SkipDir keeps the walker out of a directory,
// fs.SkipAll ends the walk without error; any other error aborts the walk.
type VisitFunc func(entry Entry, mirrored string) error

// Walker traverses a source tree alongside its mirror in the cache tree.
//
// Hidden entries (leading dot) are skipped, and so is the cache root when
// it lives inside the source tree. Symlinks are followed, except a link to
// a directory that is one of its own ancestors, which would recurse forever.
// Unreadable directories count as empty. The walker never creates anything.
type Walker struct {
	sourceRoot string
	cacheRoot  string
	sourceReal string
	cacheReal  string
	retry      filesystem.RetryConfig
	log        logging.Logger
}

// New returns a Walker for sourceRoot mirrored into cacheRoot.
func New(sourceRoot, cacheRoot string) *Walker {
	w := &Walker{
		sourceRoot: absPath(sourceRoot),
		cacheRoot:  absPath(cacheRoot),
		retry:      filesystem.DefaultRetryConfig(),
		log:        logging.For("mirror"),
	}
	w.sourceReal = realPath(w.sourceRoot)
	w.cacheReal = realPath(w.cacheRoot)
	return w
}

// Walk is shorthand for New(sourceRoot, cacheRoot).Walk(ctx, visit).
func Walk(ctx context.Context, sourceRoot, cacheRoot string, visit VisitFunc) error {
	return New(sourceRoot, cacheRoot).Walk(ctx, visit)
}

// Walk visits every entry below the source root, depth first, siblings in
// name order. It returns ctx.Err() if cancelled, or the first error from
// visit other than fs.SkipDir and fs.SkipAll.
func (w *Walker) Walk(ctx context.Context, visit VisitFunc) error {
	err := w.walkDir(ctx, w.sourceRoot, w.cacheRoot, []string{w.sourceReal}, visit)
	if errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

// Count returns how many entries Walk would visit. It is used to seed
// progress reporting before a sweep.
func (w *Walker) Count(ctx context.Context) (int64, error) {
	var n int64
	err := w.Walk(ctx, func(Entry, string) error {
		n++
		return nil
	})
	return n, err
}

// SourceRoot returns the absolute source root.
func (w *Walker) SourceRoot() string { return w.sourceRoot }

// CacheRoot returns the absolute cache root.
func (w *Walker) CacheRoot() string { return w.cacheRoot }

// walkDir lists dir and recurses. ancestors holds the real path of every
// directory from the root down to dir inclusive.
func (w *Walker) walkDir(ctx context.Context, dir, mirror string, ancestors []string, visit VisitFunc) error {
	entries, err := filesystem.ReadDirWithRetry(dir, w.retry)
	if err != nil {
		w.log.Warn("cannot read %s, treating as empty: %v", dir, err)
		return nil
	}

	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		p := filepath.Join(dir, name)
		entry, real, ok := w.resolve(p, de, ancestors)
		if !ok {
			continue
		}

		mirrored := filepath.Join(mirror, name)
		if err := visit(entry, mirrored); err != nil {
			if errors.Is(err, fs.SkipDir) {
				continue
			}
			return err
		}

		if entry.Kind == KindDirectory {
			next := append(slices.Clip(ancestors), real)
			if err := w.walkDir(ctx, p, mirrored, next, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve builds the Entry for p and, for directories, its real path.
// ok is false for entries that must not be visited at all.
func (w *Walker) resolve(p string, de fs.DirEntry, ancestors []string) (entry Entry, real string, ok bool) {
	parentReal := ancestors[len(ancestors)-1]
	entry = Entry{Path: p, Name: de.Name()}

	var info fs.FileInfo
	var err error
	if de.Type()&fs.ModeSymlink != 0 {
		entry.Symlink = true
		real, err = filepath.EvalSymlinks(p)
		if err != nil {
			w.log.Debug("skipping dangling symlink %s: %v", p, err)
			return Entry{}, "", false
		}
		info, err = filesystem.StatWithRetry(p, w.retry)
	} else {
		real = filepath.Join(parentReal, de.Name())
		info, err = de.Info()
	}
	if err != nil {
		w.log.Debug("skipping %s: %v", p, err)
		return Entry{}, "", false
	}

	entry.Info = info
	entry.ModTime = info.ModTime()
	switch {
	case info.IsDir():
		entry.Kind = KindDirectory
	case info.Mode().IsRegular():
		entry.Kind = KindFile
	default:
		entry.Kind = KindOther
	}

	if entry.Kind == KindDirectory {
		if real == w.cacheReal {
			return Entry{}, "", false
		}
		if entry.Symlink && slices.Contains(ancestors, real) {
			w.log.Debug("skipping symlink cycle %s -> %s", p, real)
			return Entry{}, "", false
		}
	}
	return entry, real, true
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// realPath resolves symlinks, falling back to p when it does not exist yet.
func realPath(p string) string {
	if real, err := filepath.EvalSymlinks(p); err == nil {
		return real
	}
	return p
}
