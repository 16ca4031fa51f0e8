package sweep

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"autogallery/internal/cache"
	"autogallery/internal/classify"
	"autogallery/internal/database"
	"autogallery/internal/filesystem"
	"autogallery/internal/logging"
	"autogallery/internal/media"
	"autogallery/internal/metrics"
	"autogallery/internal/mirror"
	"autogallery/internal/workers"
)

var log = logging.For("sweep")

// ErrAlreadyRunning is returned when a pass is requested for a root that
// already has one in flight.
var ErrAlreadyRunning = errors.New("sweep already running")

// ErrStopped is returned by Trigger once the Scheduler has been stopped.
var ErrStopped = errors.New("scheduler stopped")

const (
	// DefaultInterval is the pause between the end of one pass and the
	// start of the next.
	DefaultInterval = 600 * time.Second
	// DefaultPublishInterval bounds how often progress is published.
	DefaultPublishInterval = 50 * time.Millisecond
	// DefaultBusyRetry is how soon the loop tries again when its pass was
	// refused because an orphan collection held the root.
	DefaultBusyRetry = 30 * time.Second
)

// Generator writes one thumbnail. *media.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, source, dest string) (media.Outcome, error)
}

// Ledger remembers failed images and completed passes. *database.Database
// implements it.
type Ledger interface {
	KnownFailure(ctx context.Context, fingerprint string) (bool, error)
	RecordFailure(ctx context.Context, f database.ThumbnailFailure) error
	RecordSweep(ctx context.Context, run database.SweepRun) (int64, error)
}

// Throttle blocks while the process is short of memory. *memory.Monitor
// implements it.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Config tunes a Scheduler. Zero values take defaults.
type Config struct {
	Interval        time.Duration
	PublishInterval time.Duration
	BusyRetry       time.Duration
	Workers         int
}

// Root is a source tree and the cache tree that mirrors it.
type Root struct {
	Source       string
	Cache        string
	ProgressFile string // optional
}

// Summary describes one pass.
type Summary struct {
	Root          string        `json:"root"`
	StartedAt     time.Time     `json:"startedAt"`
	FinishedAt    time.Time     `json:"finishedAt"`
	Duration      time.Duration `json:"duration"`
	Total         int64         `json:"total"`
	Visited       int64         `json:"visited"`
	Generated     int64         `json:"generated"`
	Existing      int64         `json:"existing"`
	Ineligible    int64         `json:"ineligible"`
	KnownFailures int64         `json:"knownFailures"`
	Failed        int64         `json:"failed"`
	WriteSkipped  int64         `json:"writeSkipped"`
	Degraded      bool          `json:"degraded"`
	Cancelled     bool          `json:"cancelled"`
}

// Skipped is everything visited that needed no work.
func (s Summary) Skipped() int64 {
	return s.Existing + s.Ineligible + s.KnownFailures + s.WriteSkipped
}

// Status is a snapshot of one root.
type Status struct {
	Root       string   `json:"root"`
	Running    bool     `json:"running"`
	Collecting bool     `json:"collecting"`
	Scheduled  bool     `json:"scheduled"`
	Total      int64    `json:"total"`
	Remaining  int64    `json:"remaining"`
	Degraded   bool     `json:"degraded"`
	Last       *Summary `json:"last,omitempty"`
}

type rootState struct {
	root     Root
	label    string
	walker   *mirror.Walker
	progress *Progress

	// running guards the root for both passes and orphan collection;
	// collecting tells the two apart.
	running    atomic.Bool
	collecting atomic.Bool
	looping    atomic.Bool
	degraded   atomic.Bool
	trigger    chan struct{}

	mu   sync.Mutex
	last *Summary
}

// Scheduler runs sweeps: a walk of a source tree that generates every
// missing thumbnail into the mirrored cache tree. Each root has at most one
// pass in flight; different roots sweep independently.
type Scheduler struct {
	cfg      Config
	gen      Generator
	ledger   Ledger
	throttle Throttle

	roots sync.Map // absolute source path -> *rootState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Scheduler. ledger and throttle may be nil.
func New(cfg Config, gen Generator, ledger Ledger, throttle Throttle) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = DefaultPublishInterval
	}
	if cfg.BusyRetry <= 0 {
		cfg.BusyRetry = DefaultBusyRetry
	}
	if cfg.BusyRetry > cfg.Interval {
		cfg.BusyRetry = cfg.Interval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = workers.ForMixed(8)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:      cfg,
		gen:      gen,
		ledger:   ledger,
		throttle: throttle,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) state(root Root) *rootState {
	key := absPath(root.Source)
	if v, ok := s.roots.Load(key); ok {
		return v.(*rootState)
	}
	st := &rootState{
		root:     root,
		label:    key,
		walker:   mirror.New(root.Source, root.Cache),
		progress: NewProgress(key, root.ProgressFile, s.cfg.PublishInterval),
		trigger:  make(chan struct{}, 1),
	}
	v, _ := s.roots.LoadOrStore(key, st)
	return v.(*rootState)
}

// RunOnce performs one pass over root and returns its summary. It returns
// ErrAlreadyRunning without doing anything if root is already being swept.
// Cancelling ctx stops handing out work; items already being generated are
// finished.
func (s *Scheduler) RunOnce(ctx context.Context, root Root) (Summary, error) {
	return s.runOnce(ctx, s.state(root))
}

func (s *Scheduler) runOnce(ctx context.Context, st *rootState) (Summary, error) {
	if !st.running.CompareAndSwap(false, true) {
		metrics.SweepSkippedTotal.Inc()
		log.Debug("%s: pass already running, ignoring request", st.label)
		return Summary{}, ErrAlreadyRunning
	}
	defer st.running.Store(false)

	metrics.SweepRunning.WithLabelValues(st.label).Set(1)
	defer metrics.SweepRunning.WithLabelValues(st.label).Set(0)

	sum, err := s.pass(ctx, st)
	s.finish(st, sum, err)
	return sum, err
}

type job struct {
	entry    mirror.Entry
	mirrored string
}

type counters struct {
	visited, generated, existing, ineligible atomic.Int64
	known, failed, writeSkipped              atomic.Int64
}

func (s *Scheduler) pass(ctx context.Context, st *rootState) (Summary, error) {
	sum := Summary{Root: st.label, StartedAt: time.Now()}
	log.Info("%s: sweep started", st.label)

	total, err := st.walker.Count(ctx)
	if err != nil {
		sum.Cancelled = ctx.Err() != nil
		return sum, fmt.Errorf("count %s: %w", st.label, err)
	}
	sum.Total = total
	st.progress.Reset(total)

	var (
		c              counters
		writesDisabled atomic.Bool
		jobs           = make(chan job, s.cfg.Workers*2)
		done           = make(chan struct{})
	)

	go func() {
		defer close(done)
		workers.Run(ctx, s.cfg.Workers, jobs, func(j job) {
			s.process(ctx, st, j, &c, &writesDisabled)
			st.progress.Done()
		})
	}()

	walkErr := st.walker.Walk(ctx, func(e mirror.Entry, mirrored string) error {
		c.visited.Add(1)
		if !e.IsRegular() || !classify.Thumbnailable(e.Name) {
			c.ineligible.Add(1)
			metrics.SweepItemsTotal.WithLabelValues("ineligible").Inc()
			st.progress.Done()
			return nil
		}
		select {
		case jobs <- job{entry: e, mirrored: mirrored}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(jobs)
	<-done
	st.progress.Flush()

	sum.Visited = c.visited.Load()
	sum.Generated = c.generated.Load()
	sum.Existing = c.existing.Load()
	sum.Ineligible = c.ineligible.Load()
	sum.KnownFailures = c.known.Load()
	sum.Failed = c.failed.Load()
	sum.WriteSkipped = c.writeSkipped.Load()
	sum.Degraded = writesDisabled.Load()
	sum.Cancelled = errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded)
	return sum, walkErr
}

// process handles one image. Failures stay with the item.
func (s *Scheduler) process(ctx context.Context, st *rootState, j job, c *counters, writesDisabled *atomic.Bool) {
	if writesDisabled.Load() {
		c.writeSkipped.Add(1)
		metrics.SweepItemsTotal.WithLabelValues("write_disabled").Inc()
		return
	}

	fp, err := cache.FingerprintInfo(j.entry.Path, j.entry.Info)
	if err != nil {
		c.failed.Add(1)
		metrics.SweepItemsTotal.WithLabelValues("failed").Inc()
		log.Warn("%s: %v", j.entry.Path, err)
		return
	}

	if s.ledger != nil {
		known, err := s.ledger.KnownFailure(ctx, fp)
		if err != nil {
			log.Debug("failure ledger lookup for %s: %v", j.entry.Path, err)
		} else if known {
			c.known.Add(1)
			metrics.SweepItemsTotal.WithLabelValues("known_failure").Inc()
			return
		}
	}

	if s.throttle != nil {
		if err := s.throttle.Wait(ctx); err != nil {
			return
		}
	}

	outcome, err := s.gen.Generate(ctx, j.entry.Path, cache.ArtifactBeside(j.mirrored, fp))
	if err != nil {
		s.recordError(ctx, st, j, fp, err, c, writesDisabled)
		return
	}

	switch outcome {
	case media.Written:
		c.generated.Add(1)
		metrics.SweepItemsTotal.WithLabelValues("generated").Inc()
	case media.SkippedExists:
		c.existing.Add(1)
		metrics.SweepItemsTotal.WithLabelValues("exists").Inc()
	default:
		c.ineligible.Add(1)
		metrics.SweepItemsTotal.WithLabelValues("ineligible").Inc()
	}
}

func (s *Scheduler) recordError(ctx context.Context, st *rootState, j job, fp string, err error, c *counters, writesDisabled *atomic.Bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}

	var writeErr *media.CacheWriteError
	if errors.As(err, &writeErr) {
		c.failed.Add(1)
		metrics.SweepItemsTotal.WithLabelValues("failed").Inc()
		if writesDisabled.CompareAndSwap(false, true) {
			log.Error("%s: cache write failed, skipping further writes this pass: %v", st.label, err)
		}
		return
	}

	c.failed.Add(1)
	metrics.SweepItemsTotal.WithLabelValues("failed").Inc()
	log.Warn("%v", err)

	if s.ledger == nil || !ledgerWorthy(err) {
		return
	}
	f := database.ThumbnailFailure{
		Fingerprint: fp,
		Path:        j.entry.Path,
		Error:       err.Error(),
		FailedAt:    time.Now(),
	}
	if err := s.ledger.RecordFailure(context.WithoutCancel(ctx), f); err != nil {
		log.Debug("record failure for %s: %v", j.entry.Path, err)
	}
}

// ledgerWorthy reports whether a generation failure belongs to the image
// itself. Access problems and vanished files can clear up without the
// mtime changing, so they are retried on the next pass instead.
func ledgerWorthy(err error) bool {
	switch {
	case errors.Is(err, fs.ErrPermission), errors.Is(err, filesystem.ErrPermissionDenied):
		return false
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, filesystem.ErrNotFound):
		return false
	}
	return true
}

func (s *Scheduler) finish(st *rootState, sum Summary, err error) {
	sum.FinishedAt = time.Now()
	sum.Duration = sum.FinishedAt.Sub(sum.StartedAt)

	result := "ok"
	switch {
	case sum.Cancelled:
		result = "cancelled"
	case err != nil:
		result = "error"
	case sum.Degraded:
		result = "degraded"
	}
	metrics.SweepRunsTotal.WithLabelValues(result).Inc()

	if err != nil && !sum.Cancelled {
		log.Error("%s: sweep failed: %v", st.label, err)
		return
	}

	st.degraded.Store(sum.Degraded)
	metrics.SweepDegraded.WithLabelValues(st.label).Set(boolGauge(sum.Degraded))
	metrics.SweepLastDuration.WithLabelValues(st.label).Set(sum.Duration.Seconds())
	metrics.SweepLastTimestamp.WithLabelValues(st.label).Set(float64(sum.FinishedAt.Unix()))

	st.mu.Lock()
	last := sum
	st.last = &last
	st.mu.Unlock()

	log.Info("%s: sweep %s in %v: %d visited, %d generated, %d skipped, %d failed",
		st.label, result, sum.Duration.Round(time.Millisecond), sum.Visited, sum.Generated, sum.Skipped(), sum.Failed)

	if s.ledger == nil {
		return
	}
	run := database.SweepRun{
		Root:       st.label,
		StartedAt:  sum.StartedAt,
		FinishedAt: sum.FinishedAt,
		Visited:    sum.Visited,
		Generated:  sum.Generated,
		Skipped:    sum.Skipped(),
		Failed:     sum.Failed,
		Degraded:   sum.Degraded,
		Cancelled:  sum.Cancelled,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.ledger.RecordSweep(ctx, run); err != nil {
		log.Warn("record sweep: %v", err)
	}
}

// Start begins the periodic loop for root: a pass, a pause of the
// configured interval, and again until Stop. Calling it again for the same
// root does nothing.
func (s *Scheduler) Start(root Root) {
	if s.ctx.Err() != nil {
		return
	}
	st := s.state(root)
	if !st.looping.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go s.loop(st)
}

func (s *Scheduler) loop(st *rootState) {
	defer s.wg.Done()
	log.Info("%s: sweeping every %v", st.label, s.cfg.Interval)

	for {
		wait := s.cfg.Interval
		_, err := s.runOnce(s.ctx, st)
		switch {
		case errors.Is(err, ErrAlreadyRunning):
			wait = s.cfg.BusyRetry
			log.Debug("%s: root busy, retrying in %v", st.label, wait)
		case err != nil && s.ctx.Err() == nil:
			log.Warn("%s: %v", st.label, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-st.trigger:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Trigger asks for a pass over root now. The loop is started if it was not
// running; if it is sleeping it wakes up. ErrAlreadyRunning is returned
// when a pass is already in flight and ErrStopped after Stop.
func (s *Scheduler) Trigger(root Root) error {
	if s.ctx.Err() != nil {
		return ErrStopped
	}
	st := s.state(root)
	if st.running.Load() {
		return ErrAlreadyRunning
	}
	if !st.looping.Load() {
		s.Start(root)
		return nil
	}
	select {
	case st.trigger <- struct{}{}:
	default:
	}
	return nil
}

// Stop interrupts sleeping loops at once and asks running passes to stop
// after the items already being generated. It waits for the loops to exit
// or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Workers returns the number of concurrent generations per pass.
func (s *Scheduler) Workers() int {
	return s.cfg.Workers
}

// Status returns a snapshot for root.
func (s *Scheduler) Status(root Root) Status {
	st := s.state(root)
	collecting := st.collecting.Load()
	status := Status{
		Root:       st.label,
		Running:    st.running.Load() && !collecting,
		Collecting: collecting,
		Scheduled:  st.looping.Load(),
		Total:      st.progress.Total(),
		Remaining:  st.progress.Published(),
		Degraded:   st.degraded.Load(),
	}
	st.mu.Lock()
	if st.last != nil {
		last := *st.last
		status.Last = &last
	}
	st.mu.Unlock()
	return status
}

// Remaining returns the last published count of entries left in the
// current pass for root.
func (s *Scheduler) Remaining(root Root) int64 {
	return s.state(root).progress.Published()
}

// RunGC removes orphaned artifacts under root's cache. It shares the
// per-root guard with sweeps, so it returns ErrAlreadyRunning while a pass
// is in flight. A periodic pass refused during collection is retried after
// Config.BusyRetry.
func (s *Scheduler) RunGC(ctx context.Context, root Root) (cache.GCResult, error) {
	st := s.state(root)
	if !st.running.CompareAndSwap(false, true) {
		metrics.SweepSkippedTotal.Inc()
		return cache.GCResult{}, ErrAlreadyRunning
	}
	st.collecting.Store(true)
	defer func() {
		st.collecting.Store(false)
		st.running.Store(false)
	}()

	layout, err := cache.NewLayout(root.Source, root.Cache)
	if err != nil {
		return cache.GCResult{}, err
	}
	return cache.NewCollector(layout).Collect(ctx)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
