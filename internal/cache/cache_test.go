package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autogallery/internal/filesystem"
)

func writeFile(t *testing.T, path string, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFingerprintStable(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.jpg")
	writeFile(t, p, "x")

	first, err := Fingerprint(p)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	second, err := Fingerprint(p)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if first != second {
		t.Errorf("fingerprint changed without modification: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(first))
	}
	if !IsArtifactName(ArtifactName(first)) {
		t.Errorf("ArtifactName(%s) not recognised as artifact", first)
	}
}

func TestFingerprintChangesWithMtime(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.jpg")
	writeFile(t, p, "x")

	before, err := Fingerprint(p)
	if err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(p, later, later); err != nil {
		t.Fatal(err)
	}
	after, err := Fingerprint(p)
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Error("fingerprint should change when mtime changes")
	}
}

func TestFingerprintDependsOnPath(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "b.jpg")
	writeFile(t, a, "x")
	writeFile(t, b, "x")
	ts := time.Unix(1_700_000_000, 0)
	for _, p := range []string{a, b} {
		if err := os.Chtimes(p, ts, ts); err != nil {
			t.Fatal(err)
		}
	}

	fa, _ := Fingerprint(a)
	fb, _ := Fingerprint(b)
	if fa == fb {
		t.Error("different paths with equal mtimes should not collide")
	}
}

func TestFingerprintRelativeMatchesAbsolute(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.jpg")
	writeFile(t, p, "x")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	rel, err := Fingerprint("a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	abs, err := Fingerprint(p)
	if err != nil {
		t.Fatal(err)
	}
	if rel != abs {
		t.Error("relative and absolute spellings of a path should fingerprint identically")
	}
}

func TestFingerprintMissing(t *testing.T) {
	_, err := Fingerprint(filepath.Join(t.TempDir(), "gone.jpg"))
	if !errors.Is(err, filesystem.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestIsArtifactName(t *testing.T) {
	valid := strings.Repeat("ab", 32) + ".jpg"
	tests := []struct {
		name string
		want bool
	}{
		{valid, true},
		{strings.Repeat("ab", 32) + ".png", false},
		{strings.Repeat("zz", 32) + ".jpg", false},
		{"abc.jpg", false},
		{".sweep-progress", false},
	}
	for _, tt := range tests {
		if got := IsArtifactName(tt.name); got != tt.want {
			t.Errorf("IsArtifactName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLayoutPaths(t *testing.T) {
	l, err := NewLayout("/srv/gallery", "/cache")
	if err != nil {
		t.Fatal(err)
	}

	dir, err := l.MirrorDir("/srv/gallery/2024/summer")
	if err != nil || dir != "/cache/2024/summer" {
		t.Errorf("MirrorDir = %q, %v", dir, err)
	}
	root, err := l.MirrorDir("/srv/gallery")
	if err != nil || root != "/cache" {
		t.Errorf("MirrorDir(root) = %q, %v", root, err)
	}
	if _, err := l.MirrorDir("/srv/other"); err == nil {
		t.Error("MirrorDir outside the root should fail")
	}

	src, err := l.SourceDir("/cache/2024")
	if err != nil || src != "/srv/gallery/2024" {
		t.Errorf("SourceDir = %q, %v", src, err)
	}

	art, err := l.ArtifactPath("/srv/gallery/2024/beach.jpg", "ff")
	if err != nil || art != "/cache/2024/ff.jpg" {
		t.Errorf("ArtifactPath = %q, %v", art, err)
	}
	if got := ArtifactBeside("/cache/2024/beach.jpg", "ff"); got != "/cache/2024/ff.jpg" {
		t.Errorf("ArtifactBeside = %q", got)
	}

	u, err := l.URLPath("/cache/2024/ff.jpg")
	if err != nil || u != "2024/ff.jpg" {
		t.Errorf("URLPath = %q, %v", u, err)
	}
	if _, err := l.URLPath("/elsewhere/ff.jpg"); err == nil {
		t.Error("URLPath outside the cache root should fail")
	}

	if !l.Contains("/cache") || !l.Contains("/cache/2024") || l.Contains("/cache2") {
		t.Error("Contains mismatch")
	}
}

func TestLayoutEnsureRootAndExists(t *testing.T) {
	base := t.TempDir()
	l, err := NewLayout(filepath.Join(base, "src"), filepath.Join(base, "cache", "nested"))
	if err != nil {
		t.Fatal(err)
	}
	if err := l.EnsureRoot(); err != nil {
		t.Fatalf("EnsureRoot: %v", err)
	}
	entries, _ := os.ReadDir(l.CacheRoot)
	if len(entries) != 0 {
		t.Errorf("EnsureRoot left %d files behind", len(entries))
	}

	art := filepath.Join(l.CacheRoot, "x.jpg")
	if l.Exists(art) {
		t.Error("Exists reported a missing artifact")
	}
	writeFile(t, art, "jpeg")
	if !l.Exists(art) {
		t.Error("Exists missed a present artifact")
	}
	if l.Exists(l.CacheRoot) {
		t.Error("a directory is not an artifact")
	}
}

func TestStats(t *testing.T) {
	base := t.TempDir()
	l, _ := NewLayout(filepath.Join(base, "src"), filepath.Join(base, "cache"))
	name := ArtifactName(strings.Repeat("0", 64))
	writeFile(t, filepath.Join(l.CacheRoot, name), "1234")
	writeFile(t, filepath.Join(l.CacheRoot, "a", "b", name), "12")
	writeFile(t, filepath.Join(l.CacheRoot, ".sweep-progress"), "42")

	stats, err := Stats{Layout: l}.CacheStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Artifacts != 2 || stats.Bytes != 6 {
		t.Errorf("stats = %+v, want 2 artifacts / 6 bytes", stats)
	}
}

func TestCollectorRemovesOnlyOrphans(t *testing.T) {
	base := t.TempDir()
	l, _ := NewLayout(filepath.Join(base, "src"), filepath.Join(base, "cache"))

	live := filepath.Join(l.SourceRoot, "album", "keep.jpg")
	writeFile(t, live, "img")
	fp, err := Fingerprint(live)
	if err != nil {
		t.Fatal(err)
	}
	keep, _ := l.ArtifactPath(live, fp)
	writeFile(t, keep, "thumb")

	stale := filepath.Join(l.CacheRoot, "album", ArtifactName(strings.Repeat("1", 64)))
	writeFile(t, stale, "old thumb")
	foreign := filepath.Join(l.CacheRoot, "album", "notes.txt")
	writeFile(t, foreign, "not ours")

	goneDir := filepath.Join(l.CacheRoot, "deleted-album")
	writeFile(t, filepath.Join(goneDir, ArtifactName(strings.Repeat("2", 64))), "old")

	res, err := NewCollector(l).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if _, err := os.Stat(keep); err != nil {
		t.Errorf("live artifact removed: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("orphan artifact still present")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("non-artifact file removed: %v", err)
	}
	if _, err := os.Stat(goneDir); !os.IsNotExist(err) {
		t.Errorf("directory for deleted source should be removed")
	}
	if res.ArtifactsKept != 1 || res.ArtifactsRemoved != 2 || res.DirsRemoved != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestCollectorAfterSourceEdit(t *testing.T) {
	base := t.TempDir()
	l, _ := NewLayout(filepath.Join(base, "src"), filepath.Join(base, "cache"))
	p := filepath.Join(l.SourceRoot, "a.png")
	writeFile(t, p, "v1")

	oldFP, _ := Fingerprint(p)
	oldArt, _ := l.ArtifactPath(p, oldFP)
	writeFile(t, oldArt, "thumb v1")

	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(p, later, later); err != nil {
		t.Fatal(err)
	}

	if _, err := NewCollector(l).Collect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(oldArt); !os.IsNotExist(err) {
		t.Error("artifact for the previous mtime should be collected")
	}
}

func TestCollectorCancelled(t *testing.T) {
	base := t.TempDir()
	l, _ := NewLayout(filepath.Join(base, "src"), filepath.Join(base, "cache"))
	writeFile(t, filepath.Join(l.CacheRoot, "x", ArtifactName(strings.Repeat("3", 64))), "t")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewCollector(l).Collect(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCollectorMissingCacheRoot(t *testing.T) {
	base := t.TempDir()
	l, _ := NewLayout(filepath.Join(base, "src"), filepath.Join(base, "nope"))
	if _, err := NewCollector(l).Collect(context.Background()); err == nil {
		t.Error("expected an error for a missing cache root")
	}
}

func TestCollectorRemovesStaleTempFiles(t *testing.T) {
	base := t.TempDir()
	l, _ := NewLayout(filepath.Join(base, "src"), filepath.Join(base, "cache"))
	if err := os.MkdirAll(l.SourceRoot, 0o755); err != nil {
		t.Fatal(err)
	}
	old := filepath.Join(l.CacheRoot, TempPrefix+"old")
	fresh := filepath.Join(l.CacheRoot, TempPrefix+"fresh")
	writeFile(t, old, "x")
	writeFile(t, fresh, "x")
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	res, err := NewCollector(l).Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("stale temp file should be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh temp file may belong to a write in progress")
	}
	if res.TempsRemoved != 1 {
		t.Errorf("TempsRemoved = %d, want 1", res.TempsRemoved)
	}
}
