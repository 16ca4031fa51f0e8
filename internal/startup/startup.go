package startup

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"autogallery/internal/logging"
	"autogallery/internal/memory"
)

// Set with -ldflags "-X autogallery/internal/startup.Version=..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo is the body of the /version endpoint.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

const rule = "------------------------------------------------------------"

// section prints a blank line followed by a ruled heading.
func section(format string, args ...interface{}) {
	logging.Info("")
	logging.Info(rule)
	logging.Info(format, args...)
	logging.Info(rule)
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogMemoryConfig logs what memory.ConfigureFromEnv decided.
func LogMemoryConfig(res memory.ConfigResult) {
	switch res.Source {
	case "GOMEMLIMIT":
		logging.Info("  Memory limit:    %s (GOMEMLIMIT)", formatBytes(res.GoMemLimit))
	case "MEMORY_LIMIT":
		logging.Info("  Memory limit:    %s (%.0f%% of %s container limit)",
			formatBytes(res.GoMemLimit), res.Ratio*100, formatBytes(res.ContainerLimit))
	default:
		logging.Info("  Memory limit:    not configured (set MEMORY_LIMIT or GOMEMLIMIT)")
	}
}

// LogDatabaseInit reports whether the failure ledger opened. A nil err means
// it did.
func LogDatabaseInit(took time.Duration, err error) {
	section("FAILURE LEDGER")
	if err != nil {
		logging.Warn("  Ledger unavailable: %v", err)
		logging.Warn("  Broken images will be retried on every sweep")
		return
	}
	logging.Info("  [OK] Ledger ready in %v", took.Round(time.Millisecond))
}

// LogThumbnailInit logs the thumbnail generator settings.
func LogThumbnailInit(maxW, maxH, quality int, vips bool) {
	section("THUMBNAIL GENERATOR")
	logging.Info("  Box:     %dx%d", maxW, maxH)
	logging.Info("  Quality: %d", quality)
	if vips {
		logging.Info("  Decoder: libvips with pure-Go fallback")
	} else {
		logging.Info("  Decoder: pure Go")
	}
}

// LogSweepInit logs the sweep scheduler settings.
func LogSweepInit(interval time.Duration, workers int, gcSchedule string) {
	section("SWEEP SCHEDULER")
	logging.Info("  Interval: %v", interval)
	logging.Info("  Workers:  %d", workers)
	logging.Info("  GC:       %s", valueOr(gcSchedule, "disabled"))
	logging.Info("  First sweep starts with the first request")
}

// RouteInfo is one method/path pair found on a router.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// GetRoutes walks router and returns one RouteInfo per method. Routes that
// accept any method are reported with Method "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var out []RouteInfo
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			if path, err = route.GetPathRegexp(); err != nil {
				return nil
			}
		}
		methods, err := route.GetMethods()
		if err != nil || len(methods) == 0 {
			methods = []string{"*"}
		}
		for _, m := range methods {
			out = append(out, RouteInfo{Method: m, Path: path, Name: route.GetName()})
		}
		return nil
	})
	return out, err
}

// LogHTTPRoutes prints the access log settings and, at debug level, every
// route grouped by its leading path segment.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("walking routes: %v", err)
		}
		sort.SliceStable(routes, func(i, j int) bool {
			return getRouteGroup(routes[i].Path) < getRouteGroup(routes[j].Path)
		})

		logging.Debug("  %d routes:", len(routes))
		current := "\x00"
		for _, rt := range routes {
			if g := getRouteGroup(rt.Path); g != current {
				current = g
				logging.Debug("  [%s]", valueOr(g, "root"))
			}
			logging.Debug("    %-6s %s", rt.Method, rt.Path)
		}
	}

	logging.Info("  Access log:")
	logging.Info("    Static/cache requests: %s", onOff(logStaticFiles, "LOG_STATIC_FILES"))
	logging.Info("    Health checks:         %s", onOff(logHealthChecks, "LOG_HEALTH_CHECKS"))
}

func onOff(on bool, env string) string {
	if on {
		return "logged"
	}
	return "skipped (" + env + "=true to log)"
}

// getRouteGroup names the group a route is listed under: the first path
// segment, or the first two for /api routes.
func getRouteGroup(path string) string {
	segs := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if segs[0] == "api" && len(segs) > 1 {
		return "api/" + segs[1]
	}
	return segs[0]
}

// ServerConfig describes the listeners for LogServerStarted.
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

func LogServerStarted(config ServerConfig) {
	section("SERVER STARTED in %v", config.StartupDuration.Round(time.Millisecond))
	logging.Info("  Gallery: http://0.0.0.0:%s/api/list", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics: http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("  Metrics: disabled")
	}
	logging.Info(rule)
}

// Shutdown runs teardown steps in order and logs how each went.
type Shutdown struct {
	ctx    context.Context
	failed int
}

// BeginShutdown logs the signal that triggered shutdown. Steps share ctx as
// their deadline.
func BeginShutdown(ctx context.Context, signal string) *Shutdown {
	section("SHUTDOWN (received %s)", signal)
	return &Shutdown{ctx: ctx}
}

// Step stops one component. A nil stop is ignored.
func (s *Shutdown) Step(name string, stop func(context.Context) error) {
	if stop == nil {
		return
	}
	logging.Debug("  stopping %s", name)
	start := time.Now()
	if err := stop(s.ctx); err != nil {
		s.failed++
		logging.Warn("  [!!] %s: %v", name, err)
		return
	}
	logging.Info("  [OK] %s stopped (%v)", name, time.Since(start).Round(time.Millisecond))
}

// Done logs the final line and returns how many steps failed.
func (s *Shutdown) Done() int {
	if s.failed > 0 {
		logging.Warn("  Shutdown finished with %d failed step(s)", s.failed)
	} else {
		logging.Info("  [OK] Shutdown complete")
	}
	return s.failed
}

func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

const banner = `
    ___         __        ______      ____
   /   | __  __/ /_____  / ____/___ _/ / /__  _______  __
  / /| |/ / / / __/ __ \/ / __/ __ '/ / / _ \/ ___/ / / /
 / ___ / /_/ / /_/ /_/ / /_/ / /_/ / / /  __/ /  / /_/ /
/_/  |_\__,_/\__/\____/\____/\__,_/_/_/\___/_/   \__, /
                                                /____/`

func printBanner() {
	fmt.Println(rule + banner)
	fmt.Println(rule)
	logging.Info("  %s (%s) built %s", Version, Commit, BuildTime)
	logging.Info("  Started %s", time.Now().Format(time.RFC1123))
}

func logSystemInfo() {
	section("SYSTEM")
	procs, cpus := runtime.GOMAXPROCS(0), runtime.NumCPU()
	logging.Info("  %s on %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if procs < cpus {
		logging.Info("  GOMAXPROCS %d of %d CPUs (container limit)", procs, cpus)
	} else {
		logging.Info("  GOMAXPROCS %d", procs)
	}
	if !logging.IsDebugEnabled() {
		return
	}
	if host, err := os.Hostname(); err == nil {
		logging.Debug("  Host: %s", host)
	}
	if wd, err := os.Getwd(); err == nil {
		logging.Debug("  Dir:  %s", wd)
	}
}

// checkSourceDirectory reports a missing or non-directory source. It never
// creates it: the source is expected to be mounted.
func checkSourceDirectory(path string) error {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return fmt.Errorf("source directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("source %s is not a directory", path)
	}

	if logging.IsDebugEnabled() {
		if entries, err := os.ReadDir(path); err == nil {
			var dirs int
			for _, e := range entries {
				if e.IsDir() {
					dirs++
				}
			}
			logging.Debug("    %d entries at top level, %d directories", len(entries), dirs)
		}
	}
	logging.Info("  [OK] Source directory: %s", path)
	return nil
}

// ensureWritableDir creates dir if needed and proves a file can be created
// and removed inside it.
func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".write-test-")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		logging.Warn("removing write test file %s: %v", name, err)
	}
	return nil
}

func formatBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%d B", b)
	}
	v := float64(b) / 1024
	suffix := "KMGTPE"
	i := 0
	for v >= 1024 && i < len(suffix)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %ciB", v, suffix[i])
}
