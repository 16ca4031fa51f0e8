package startup

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion == "" {
		t.Error("Expected GoVersion to be set")
	}
	if info.OS == "" {
		t.Error("Expected OS to be set")
	}
	if info.Arch == "" {
		t.Error("Expected Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

// testEnv returns a getenv over a map, with the three directories pointed
// into a temp dir.
func testEnv(t *testing.T, vars map[string]string) func(string) string {
	t.Helper()
	base := t.TempDir()
	src := filepath.Join(base, "src")
	if err := os.Mkdir(src, 0o755); err != nil {
		t.Fatal(err)
	}
	env := map[string]string{
		"SOURCE_DIR":   src,
		"CACHE_DIR":    filepath.Join(base, "cache"),
		"DATABASE_DIR": filepath.Join(base, "db"),
	}
	for k, v := range vars {
		env[k] = v
	}
	return func(key string) string { return env[key] }
}

func TestLoadDefaults(t *testing.T) {
	getenv := testEnv(t, nil)

	cfg, err := Load(getenv)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" || cfg.MetricsPort != "9090" {
		t.Errorf("ports = %s/%s, want 8080/9090", cfg.Port, cfg.MetricsPort)
	}
	if cfg.SweepInterval != 600*time.Second {
		t.Errorf("SweepInterval = %v, want 10m", cfg.SweepInterval)
	}
	if cfg.ThumbMaxWidth != 178 || cfg.ThumbMaxHeight != 100 || cfg.ThumbQuality != 85 {
		t.Errorf("thumbnail box = %dx%d q%d", cfg.ThumbMaxWidth, cfg.ThumbMaxHeight, cfg.ThumbQuality)
	}
	if want := filepath.Join(getenv("CACHE_DIR"), ".sweep-progress"); cfg.ProgressFile != want {
		t.Errorf("ProgressFile = %s, want %s", cfg.ProgressFile, want)
	}
	if want := filepath.Join(getenv("DATABASE_DIR"), "autogallery.db"); cfg.DatabasePath != want {
		t.Errorf("DatabasePath = %s, want %s", cfg.DatabasePath, want)
	}
	if !cfg.DatabaseEnabled {
		t.Error("expected database to be enabled for a writable directory")
	}
	if info, err := os.Stat(cfg.CacheDir); err != nil || !info.IsDir() {
		t.Errorf("cache root not created: %v", err)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	getenv := testEnv(t, map[string]string{
		"PORT":              "9000",
		"METRICS_ENABLED":   "false",
		"SWEEP_INTERVAL":    "90",
		"FAILURE_RETENTION": "48h",
		"SWEEP_WORKERS":     "3",
		"THUMB_MAX_WIDTH":   "400",
		"THUMB_QUALITY":     "70",
		"USE_VIPS":          "true",
		"LISTING_GENERATE":  "1",
		"GC_SCHEDULE":       "@daily",
		"ROW_ITEMS_SHORT":   "2",
	})

	cfg, err := Load(getenv)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Port = %s, want 9000", cfg.Port)
	}
	if cfg.MetricsEnabled {
		t.Error("MetricsEnabled = true, want false")
	}
	if cfg.SweepInterval != 90*time.Second {
		t.Errorf("SweepInterval = %v, want 90s", cfg.SweepInterval)
	}
	if cfg.FailureRetention != 48*time.Hour {
		t.Errorf("FailureRetention = %v, want 48h", cfg.FailureRetention)
	}
	if cfg.SweepWorkers != 3 {
		t.Errorf("SweepWorkers = %d, want 3", cfg.SweepWorkers)
	}
	if cfg.ThumbMaxWidth != 400 || cfg.ThumbQuality != 70 {
		t.Errorf("thumbnail settings = %d q%d", cfg.ThumbMaxWidth, cfg.ThumbQuality)
	}
	if !cfg.UseVips || !cfg.ListingGenerate {
		t.Error("expected USE_VIPS and LISTING_GENERATE to be on")
	}
	if cfg.GCSchedule != "@daily" {
		t.Errorf("GCSchedule = %q", cfg.GCSchedule)
	}
	if cfg.ItemsPerRow(true) != 2 || cfg.ItemsPerRow(false) != 5 {
		t.Errorf("ItemsPerRow = %d/%d, want 2/5", cfg.ItemsPerRow(true), cfg.ItemsPerRow(false))
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	getenv := testEnv(t, map[string]string{
		"METRICS_ENABLED": "sometimes",
		"SWEEP_INTERVAL":  "soon",
		"THUMB_QUALITY":   "high",
	})

	cfg, err := Load(getenv)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.MetricsEnabled {
		t.Error("invalid bool should keep default true")
	}
	if cfg.SweepInterval != 600*time.Second {
		t.Errorf("invalid duration should keep default, got %v", cfg.SweepInterval)
	}
	if cfg.ThumbQuality != 85 {
		t.Errorf("invalid int should keep default, got %d", cfg.ThumbQuality)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"zero interval", map[string]string{"SWEEP_INTERVAL": "0"}, "SWEEP_INTERVAL"},
		{"negative width", map[string]string{"THUMB_MAX_WIDTH": "-1"}, "thumbnail box"},
		{"quality too high", map[string]string{"THUMB_QUALITY": "101"}, "THUMB_QUALITY"},
		{"zero row items", map[string]string{"ROW_ITEMS_LONG": "0"}, "row item"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(testEnv(t, tt.vars))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gallery.yaml")
	content := "port: \"7000\"\nsweep_interval: 15m\nrow_items_long: 6\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	// The environment still wins over the file.
	cfg, err := Load(testEnv(t, map[string]string{
		"CONFIG_FILE": file,
		"PORT":        "7001",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "7001" {
		t.Errorf("Port = %s, want 7001", cfg.Port)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Errorf("SweepInterval = %v, want 15m", cfg.SweepInterval)
	}
	if cfg.RowItemsLong != 6 {
		t.Errorf("RowItemsLong = %d, want 6", cfg.RowItemsLong)
	}
}

func TestLoadConfigFileRejectsUnknownKeys(t *testing.T) {
	file := filepath.Join(t.TempDir(), "gallery.yaml")
	if err := os.WriteFile(file, []byte("sweep_intervall: 5m\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(testEnv(t, map[string]string{"CONFIG_FILE": file})); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := Load(testEnv(t, map[string]string{"CONFIG_FILE": missing})); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadUnusableCacheRoot(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(testEnv(t, map[string]string{"CACHE_DIR": filepath.Join(blocker, "cache")}))
	if err == nil {
		t.Fatal("expected error when the cache root cannot be created")
	}
}

func TestLoadDatabaseDisabled(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(testEnv(t, map[string]string{"DATABASE_DIR": blocker}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabaseEnabled {
		t.Error("expected database to be disabled when its directory is a file")
	}
}

func TestLoadMissingSourceIsNotFatal(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "not-mounted")
	cfg, err := Load(testEnv(t, map[string]string{"SOURCE_DIR": missing}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SourceDir != missing {
		t.Errorf("SourceDir = %s, want %s", cfg.SourceDir, missing)
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/list", "api/list"},
		{"/api/sweep/status", "api/sweep"},
		{"/cache/{path:.*}", "cache"},
		{"/healthz", "healthz"},
		{"/", ""},
	}

	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGetRoutes(t *testing.T) {
	noop := func(http.ResponseWriter, *http.Request) {}

	r := mux.NewRouter()
	r.HandleFunc("/api/list", noop).Methods(http.MethodGet)
	r.HandleFunc("/api/sweep", noop).Methods(http.MethodPost, http.MethodGet)
	r.PathPrefix("/static/").HandlerFunc(noop)

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 4 {
		t.Fatalf("got %d routes, want 4: %+v", len(routes), routes)
	}

	var sawWildcard bool
	for _, rt := range routes {
		if rt.Path == "/static/" && rt.Method == "*" {
			sawWildcard = true
		}
	}
	if !sawWildcard {
		t.Errorf("expected prefix route with wildcard method, got %+v", routes)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShutdownSteps(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var order []string
	sd := BeginShutdown(ctx, "interrupt")
	sd.Step("first", func(got context.Context) error {
		if got != ctx {
			t.Error("step did not receive the shutdown context")
		}
		order = append(order, "first")
		return nil
	})
	sd.Step("broken", func(context.Context) error {
		order = append(order, "broken")
		return errors.New("stuck")
	})
	sd.Step("skipped", nil)
	sd.Step("last", func(context.Context) error {
		order = append(order, "last")
		return nil
	})

	if got := strings.Join(order, ","); got != "first,broken,last" {
		t.Errorf("steps ran as %s", got)
	}
	if n := sd.Done(); n != 1 {
		t.Errorf("Done() = %d failed steps, want 1", n)
	}
}

func TestEnsureWritableDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := ensureWritableDir(dir); err != nil {
		t.Fatalf("ensureWritableDir() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("write test file left behind: %v", entries)
	}

	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ensureWritableDir(file); err == nil {
		t.Error("expected an error for a regular file")
	}
}
