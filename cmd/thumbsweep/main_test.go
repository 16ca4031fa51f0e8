package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		for y := 0; y < 48; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

type testEnv struct {
	src, cache string
	vars       map[string]string
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	base := t.TempDir()
	e := &testEnv{
		src:   filepath.Join(base, "src"),
		cache: filepath.Join(base, "cache"),
	}
	e.vars = map[string]string{
		"SOURCE_DIR":   e.src,
		"CACHE_DIR":    e.cache,
		"DATABASE_DIR": filepath.Join(base, "db"),
		"LOG_LEVEL":    "error",
	}
	writePNG(t, filepath.Join(e.src, "one.png"))
	writePNG(t, filepath.Join(e.src, "trip", "two.png"))
	if err := os.WriteFile(filepath.Join(e.src, "readme.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	return e
}

func (e *testEnv) run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut, func(k string) string { return e.vars[k] })
	return code, out.String(), errOut.String()
}

func countArtifacts(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".jpg") {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestRunUsage(t *testing.T) {
	e := newEnv(t)

	if code, _, stderr := e.run(t); code != 2 || !strings.Contains(stderr, "Usage") {
		t.Errorf("no args: code=%d stderr=%q", code, stderr)
	}
	if code, stdout, _ := e.run(t, "help"); code != 0 || !strings.Contains(stdout, "thumbsweep <command>") {
		t.Errorf("help: code=%d stdout=%q", code, stdout)
	}

	code, _, stderr := e.run(t, "rm -rf\n")
	if code != 2 {
		t.Errorf("unknown command code = %d, want 2", code)
	}
	if !strings.Contains(stderr, "Unknown command: rm_-rf_") {
		t.Errorf("unknown command not sanitized: %q", stderr)
	}
}

func TestRunSweepThenStatus(t *testing.T) {
	e := newEnv(t)

	code, stdout, stderr := e.run(t, "sweep")
	if code != 0 {
		t.Fatalf("sweep exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "generated 2") {
		t.Errorf("summary missing generated count:\n%s", stdout)
	}
	if n := countArtifacts(t, e.cache); n != 2 {
		t.Errorf("artifacts = %d, want 2", n)
	}

	code, stdout, stderr = e.run(t, "status")
	if code != 0 {
		t.Fatalf("status exit %d: %s", code, stderr)
	}
	for _, want := range []string{"Entries left in current pass: 0", "Images in failure ledger: 0", "GENERATED"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("status output missing %q:\n%s", want, stdout)
		}
	}
}

func TestRunStatusWithoutHistory(t *testing.T) {
	e := newEnv(t)

	code, stdout, stderr := e.run(t, "status")
	if code != 0 {
		t.Fatalf("status exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "No sweeps recorded") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRunGC(t *testing.T) {
	e := newEnv(t)

	if code, _, stderr := e.run(t, "sweep"); code != 0 {
		t.Fatalf("sweep exit %d: %s", code, stderr)
	}
	if err := os.Remove(filepath.Join(e.src, "trip", "two.png")); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := e.run(t, "gc")
	if code != 0 {
		t.Fatalf("gc exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Removed 1 orphaned thumbnails") {
		t.Errorf("stdout = %q", stdout)
	}
	if n := countArtifacts(t, e.cache); n != 1 {
		t.Errorf("artifacts after gc = %d, want 1", n)
	}
}

func TestRunConfigError(t *testing.T) {
	e := newEnv(t)
	e.vars["THUMB_QUALITY"] = "0"

	code, _, stderr := e.run(t, "sweep")
	if code != 1 || !strings.Contains(stderr, "THUMB_QUALITY") {
		t.Errorf("code=%d stderr=%q", code, stderr)
	}
}

func TestRunStatusWithoutDatabase(t *testing.T) {
	e := newEnv(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	e.vars["DATABASE_DIR"] = blocker

	code, _, stderr := e.run(t, "status")
	if code != 1 || !strings.Contains(stderr, "no database") {
		t.Errorf("code=%d stderr=%q", code, stderr)
	}
}

func TestProgressLine(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		remaining int64
		width     int
		want      string
	}{
		{"start", 10, 10, 20, "[............] 0/10"},
		{"half", 10, 5, 20, "[######......] 5/10"},
		{"done", 10, 0, 20, "[###########] 10/10"},
		{"narrow", 100, 40, 12, "60/100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := progressLine(tt.total, tt.remaining, tt.width)
			if got != tt.want {
				t.Errorf("progressLine(%d, %d, %d) = %q, want %q", tt.total, tt.remaining, tt.width, got, tt.want)
			}
		})
	}
}

func TestRendererPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)

	r.update(0, 0) // nothing counted yet
	r.update(4, 4)
	r.update(4, 4) // unchanged
	r.update(4, 1)
	r.finish()

	want := "4/4 entries left\n1/4 entries left\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sweep", "sweep"},
		{"gc-now_2", "gc-now_2"},
		{"a b;c", "a_b_c"},
		{"\x1b[31m", "__31m"},
	}
	for _, tt := range tests {
		if got := sanitizeCommand(tt.in); got != tt.want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
