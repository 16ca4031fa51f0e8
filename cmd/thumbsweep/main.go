package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"autogallery/internal/database"
	"autogallery/internal/logging"
	"autogallery/internal/media"
	"autogallery/internal/startup"
	"autogallery/internal/sweep"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// How often the progress line is redrawn
	refreshInterval = 200 * time.Millisecond
	historyLimit    = 10
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

// run executes one command and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	command := args[0]
	switch command {
	case "sweep", "gc", "status":
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(stderr)
		return 2
	}

	// Configuration logging is noise on a terminal unless asked for.
	if level, ok := logging.ParseLevel(getenv("LOG_LEVEL")); ok {
		logging.SetLevel(level)
	} else {
		logging.SetLevel(logging.LevelWarn)
	}

	cfg, err := startup.Load(getenv)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	db := openDatabase(ctx, cfg, stderr)
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				fmt.Fprintf(stderr, "Warning: failed to close database: %v\n", err)
			}
		}()
	}

	root := sweep.Root{Source: cfg.SourceDir, Cache: cfg.CacheDir, ProgressFile: cfg.ProgressFile}

	switch command {
	case "sweep":
		err = runSweep(ctx, cfg, db, root, stdout)
	case "gc":
		err = runGC(ctx, cfg, db, root, stdout)
	case "status":
		err = showStatus(ctx, cfg, db, stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// sanitizeCommand returns a safe representation of a command string for display.
// Anything but [a-zA-Z0-9_-] becomes '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "AutoGallery thumbnail sweeper")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: thumbsweep <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  sweep   - Generate every missing thumbnail once")
	fmt.Fprintln(w, "  gc      - Remove orphaned thumbnails and prune old failure records")
	fmt.Fprintln(w, "  status  - Show recent sweeps and the failure ledger")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Configuration is read like the server's: SOURCE_DIR, CACHE_DIR,")
	fmt.Fprintln(w, "DATABASE_DIR, CONFIG_FILE and the other documented variables.")
}

// openDatabase returns nil when the ledger is unavailable.
func openDatabase(ctx context.Context, cfg *startup.Config, stderr io.Writer) *database.Database {
	if !cfg.DatabaseEnabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: failure ledger unavailable: %v\n", err)
		return nil
	}
	return db
}

func runSweep(ctx context.Context, cfg *startup.Config, db *database.Database, root sweep.Root, stdout io.Writer) error {
	if cfg.UseVips {
		if err := media.InitVips(); err == nil {
			defer media.ShutdownVips()
		}
	}
	gen := media.NewGenerator(media.Options{
		MaxWidth:  cfg.ThumbMaxWidth,
		MaxHeight: cfg.ThumbMaxHeight,
		Quality:   cfg.ThumbQuality,
		UseVips:   cfg.UseVips && media.IsVipsAvailable(),
	})

	var ledger sweep.Ledger
	if db != nil {
		ledger = db
	}
	sched := sweep.New(sweep.Config{
		Interval:        cfg.SweepInterval,
		Workers:         cfg.SweepWorkers,
		PublishInterval: refreshInterval / 2,
	}, gen, ledger, nil)

	type result struct {
		sum sweep.Summary
		err error
	}
	done := make(chan result, 1)
	go func() {
		sum, err := sched.RunOnce(ctx, root)
		done <- result{sum, err}
	}()

	r := newRenderer(stdout)
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st := sched.Status(root)
			r.update(st.Total, st.Remaining)
		case res := <-done:
			r.finish()
			if res.err != nil {
				return res.err
			}
			printSummary(stdout, res.sum)
			if res.sum.Cancelled {
				return errors.New("sweep interrupted")
			}
			return nil
		}
	}
}

func printSummary(w io.Writer, sum sweep.Summary) {
	fmt.Fprintf(w, "Swept %s in %v\n", sum.Root, sum.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  visited   %d\n", sum.Visited)
	fmt.Fprintf(w, "  generated %d\n", sum.Generated)
	fmt.Fprintf(w, "  skipped   %d\n", sum.Skipped())
	fmt.Fprintf(w, "  failed    %d\n", sum.Failed)
	if sum.Degraded {
		fmt.Fprintln(w, "  cache writes failed; the cache directory may be full or read-only")
	}
}

func runGC(ctx context.Context, cfg *startup.Config, db *database.Database, root sweep.Root, stdout io.Writer) error {
	var pruner sweep.Pruner
	if db != nil {
		pruner = db
	}
	sched := sweep.New(sweep.Config{Interval: cfg.SweepInterval}, media.NewGenerator(media.DefaultOptions()), nil, nil)

	res, err := sweep.NewMaintenance(sched, root, pruner, cfg.FailureRetention).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Removed %d orphaned thumbnails, %d empty directories, %d stale temp files (%d kept)\n",
		res.GC.ArtifactsRemoved, res.GC.DirsRemoved, res.GC.TempsRemoved, res.GC.ArtifactsKept)
	if pruner != nil {
		fmt.Fprintf(stdout, "Pruned %d failure records older than %v\n", res.Pruned, cfg.FailureRetention)
	}
	return nil
}

func showStatus(ctx context.Context, cfg *startup.Config, db *database.Database, stdout io.Writer) error {
	if n, err := sweep.ReadProgressFile(cfg.ProgressFile); err == nil {
		fmt.Fprintf(stdout, "Entries left in current pass: %d\n", n)
	} else if !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stdout, "Progress file unreadable: %v\n", err)
	}

	if db == nil {
		return errors.New("no database available; set DATABASE_DIR to a writable directory")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	failures, err := db.FailureCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Images in failure ledger: %d\n", failures)

	runs, err := db.RecentSweeps(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No sweeps recorded")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tDURATION\tVISITED\tGENERATED\tSKIPPED\tFAILED\tNOTE")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%v\t%d\t%d\t%d\t%d\t%s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Duration().Round(time.Millisecond),
			run.Visited, run.Generated, run.Skipped, run.Failed, runNote(run))
	}
	return tw.Flush()
}

func runNote(run database.SweepRun) string {
	switch {
	case run.Cancelled:
		return "cancelled"
	case run.Degraded:
		return "degraded"
	default:
		return "-"
	}
}

// renderer draws sweep progress: a redrawn bar on a terminal, plain lines
// when output is redirected.
type renderer struct {
	out   io.Writer
	tty   bool
	width int
	last  int64
	drawn bool
}

func newRenderer(out io.Writer) *renderer {
	r := &renderer{out: out, width: 80, last: -1}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			r.width = w
		}
	}
	return r
}

func (r *renderer) update(total, remaining int64) {
	if total <= 0 || remaining == r.last {
		return
	}
	r.last = remaining
	if r.tty {
		fmt.Fprintf(r.out, "\r%s", progressLine(total, remaining, r.width))
		r.drawn = true
		return
	}
	fmt.Fprintf(r.out, "%d/%d entries left\n", remaining, total)
}

func (r *renderer) finish() {
	if r.drawn {
		fmt.Fprintln(r.out)
	}
}

// progressLine renders "[####......]  40/100" padded to width.
func progressLine(total, remaining int64, width int) string {
	done := min(max(total-remaining, 0), total)
	counter := fmt.Sprintf(" %d/%d", done, total)

	barWidth := width - len(counter) - 3
	if barWidth < 10 {
		return strings.TrimSpace(counter)
	}
	filled := int(int64(barWidth) * done / total)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]" + counter
}
