package startup

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"autogallery/internal/cache"
	"autogallery/internal/logging"
)

// Config holds all application configuration. It is built once by
// LoadConfig and handed to every component; nothing changes it afterwards.
type Config struct {
	SourceDir   string `yaml:"source_dir"`
	CacheDir    string `yaml:"cache_dir"`
	DatabaseDir string `yaml:"database_dir"`
	StaticDir   string `yaml:"static_dir"`

	Port           string `yaml:"port"`
	MetricsPort    string `yaml:"metrics_port"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	SweepInterval    time.Duration `yaml:"sweep_interval"`
	SweepWorkers     int           `yaml:"sweep_workers"`
	ProgressFile     string        `yaml:"progress_file"`
	GCSchedule       string        `yaml:"gc_schedule"`
	FailureRetention time.Duration `yaml:"failure_retention"`

	ThumbMaxWidth   int  `yaml:"thumb_max_width"`
	ThumbMaxHeight  int  `yaml:"thumb_max_height"`
	ThumbQuality    int  `yaml:"thumb_quality"`
	UseVips         bool `yaml:"use_vips"`
	ListingGenerate bool `yaml:"listing_generate"`

	RowItemsShort int `yaml:"row_items_short"`
	RowItemsLong  int `yaml:"row_items_long"`

	LogStaticFiles  bool `yaml:"log_static_files"`
	LogHealthChecks bool `yaml:"log_health_checks"`

	// Derived
	DatabasePath    string `yaml:"-"`
	DatabaseEnabled bool   `yaml:"-"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		SourceDir:        "/srv/gallery",
		CacheDir:         "/cache",
		DatabaseDir:      "/database",
		StaticDir:        "./static",
		Port:             "8080",
		MetricsPort:      "9090",
		MetricsEnabled:   true,
		SweepInterval:    600 * time.Second,
		FailureRetention: 30 * 24 * time.Hour,
		ThumbMaxWidth:    178,
		ThumbMaxHeight:   100,
		ThumbQuality:     85,
		RowItemsShort:    3,
		RowItemsLong:     5,
		LogHealthChecks:  true,
	}
}

// LoadConfig loads configuration from the optional CONFIG_FILE and the
// environment, logs it, and prepares the directories. An unusable cache
// root is the only hard error; a missing source directory or an unwritable
// database directory only produce warnings.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()
	return Load(os.Getenv)
}

// Load is LoadConfig without the banner, reading variables through getenv.
func Load(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if path := getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
		logging.Info("  Loaded config file %s", path)
	}
	cfg.applyEnv(getenv)

	if cfg.ProgressFile == "" {
		cfg.ProgressFile = filepath.Join(cfg.CacheDir, ".sweep-progress")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.logSettings()

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.prepareDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays a YAML file. Unknown keys are an error so a typo does
// not silently fall back to a default.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	env := envReader{getenv}

	c.SourceDir = env.str("SOURCE_DIR", c.SourceDir)
	c.CacheDir = env.str("CACHE_DIR", c.CacheDir)
	c.DatabaseDir = env.str("DATABASE_DIR", c.DatabaseDir)
	c.StaticDir = env.str("STATIC_DIR", c.StaticDir)
	c.Port = env.str("PORT", c.Port)
	c.MetricsPort = env.str("METRICS_PORT", c.MetricsPort)
	c.MetricsEnabled = env.bool("METRICS_ENABLED", c.MetricsEnabled)
	c.SweepInterval = env.duration("SWEEP_INTERVAL", c.SweepInterval)
	c.SweepWorkers = env.int("SWEEP_WORKERS", c.SweepWorkers)
	c.ProgressFile = env.str("PROGRESS_FILE", c.ProgressFile)
	c.GCSchedule = env.str("GC_SCHEDULE", c.GCSchedule)
	c.FailureRetention = env.duration("FAILURE_RETENTION", c.FailureRetention)
	c.ThumbMaxWidth = env.int("THUMB_MAX_WIDTH", c.ThumbMaxWidth)
	c.ThumbMaxHeight = env.int("THUMB_MAX_HEIGHT", c.ThumbMaxHeight)
	c.ThumbQuality = env.int("THUMB_QUALITY", c.ThumbQuality)
	c.UseVips = env.bool("USE_VIPS", c.UseVips)
	c.ListingGenerate = env.bool("LISTING_GENERATE", c.ListingGenerate)
	c.RowItemsShort = env.int("ROW_ITEMS_SHORT", c.RowItemsShort)
	c.RowItemsLong = env.int("ROW_ITEMS_LONG", c.RowItemsLong)
	c.LogStaticFiles = env.bool("LOG_STATIC_FILES", c.LogStaticFiles)
	c.LogHealthChecks = env.bool("LOG_HEALTH_CHECKS", c.LogHealthChecks)
}

func (c *Config) validate() error {
	switch {
	case c.SourceDir == "":
		return fmt.Errorf("SOURCE_DIR must not be empty")
	case c.CacheDir == "":
		return fmt.Errorf("CACHE_DIR must not be empty")
	case c.SweepInterval <= 0:
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %v", c.SweepInterval)
	case c.ThumbMaxWidth <= 0 || c.ThumbMaxHeight <= 0:
		return fmt.Errorf("thumbnail box must be positive, got %dx%d", c.ThumbMaxWidth, c.ThumbMaxHeight)
	case c.ThumbQuality < 1 || c.ThumbQuality > 100:
		return fmt.Errorf("THUMB_QUALITY must be 1-100, got %d", c.ThumbQuality)
	case c.RowItemsShort <= 0 || c.RowItemsLong <= 0:
		return fmt.Errorf("row item counts must be positive")
	}
	return nil
}

func (c *Config) logSettings() {
	section("CONFIGURATION")
	logging.Info("  SOURCE_DIR:          %s", c.SourceDir)
	logging.Info("  CACHE_DIR:           %s", c.CacheDir)
	logging.Info("  DATABASE_DIR:        %s", c.DatabaseDir)
	logging.Info("  STATIC_DIR:          %s", c.StaticDir)
	logging.Info("  PORT:                %s", c.Port)
	logging.Info("  METRICS_PORT:        %s", c.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", c.MetricsEnabled)
	logging.Info("  SWEEP_INTERVAL:      %v", c.SweepInterval)
	logging.Info("  PROGRESS_FILE:       %s", c.ProgressFile)
	logging.Info("  GC_SCHEDULE:         %s", valueOr(c.GCSchedule, "(disabled)"))
	logging.Info("  THUMBNAIL BOX:       %dx%d q%d", c.ThumbMaxWidth, c.ThumbMaxHeight, c.ThumbQuality)
	logging.Info("  USE_VIPS:            %v", c.UseVips)
	logging.Info("  LISTING_GENERATE:    %v", c.ListingGenerate)
	logging.Info("  ROW ITEMS:           %d mobile, %d desktop", c.RowItemsShort, c.RowItemsLong)
	logging.Info("  LOG_STATIC_FILES:    %v", c.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", c.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
}

func (c *Config) resolvePaths() error {
	for _, p := range []*string{&c.SourceDir, &c.CacheDir, &c.DatabaseDir, &c.StaticDir, &c.ProgressFile} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", *p, err)
		}
		*p = abs
	}
	c.DatabasePath = filepath.Join(c.DatabaseDir, "autogallery.db")
	return nil
}

func (c *Config) prepareDirectories() error {
	section("DIRECTORY SETUP")

	if err := checkSourceDirectory(c.SourceDir); err != nil {
		logging.Warn("  Source directory issue: %v", err)
	}

	layout, err := cache.NewLayout(c.SourceDir, c.CacheDir)
	if err != nil {
		return err
	}
	if err := layout.EnsureRoot(); err != nil {
		return fmt.Errorf("cache directory %s unusable: %w", c.CacheDir, err)
	}
	logging.Info("  [OK] Cache directory is writable: %s", c.CacheDir)

	c.DatabaseEnabled = false
	if c.DatabaseDir != "" {
		if err := ensureWritableDir(c.DatabaseDir); err != nil {
			logging.Warn("  Database directory unusable: %v", err)
		} else {
			c.DatabaseEnabled = true
			logging.Info("  [OK] Database directory is writable: %s", c.DatabaseDir)
		}
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Failure ledger: %s", enabledString(c.DatabaseEnabled))
	logging.Info("    Orphan GC:      %s", enabledString(c.GCSchedule != ""))
	logging.Info("    Metrics:        %s", enabledString(c.MetricsEnabled))
	return nil
}

// ItemsPerRow returns the gallery row width for a client.
func (c *Config) ItemsPerRow(mobile bool) int {
	if mobile {
		return c.RowItemsShort
	}
	return c.RowItemsLong
}

type envReader struct {
	getenv func(string) string
}

func (e envReader) str(key, def string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return def
}

func (e envReader) bool(key string, def bool) bool {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, v, def)
		return def
	}
	return parsed
}

func (e envReader) int(key string, def int) int {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, v, def)
		return def
	}
	return parsed
}

// duration accepts Go durations ("10m") and bare seconds ("600").
func (e envReader) duration(key string, def time.Duration) time.Duration {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, v, def)
		return def
	}
	return parsed
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
