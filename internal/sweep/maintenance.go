package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"autogallery/internal/cache"
)

// Pruner forgets old failure records. *database.Database implements it.
type Pruner interface {
	PruneFailures(ctx context.Context, cutoff time.Time) (int64, error)
}

// MaintenanceResult is what one maintenance run did.
type MaintenanceResult struct {
	GC     cache.GCResult
	Pruned int64
}

// Maintenance runs orphan collection and failure-ledger pruning for one
// root on a cron schedule.
type Maintenance struct {
	scheduler *Scheduler
	root      Root
	pruner    Pruner
	retention time.Duration
	timeout   time.Duration

	mu      sync.Mutex
	c       *cron.Cron
	entryID cron.EntryID
}

// NewMaintenance creates a stopped Maintenance. pruner may be nil, and a
// retention of zero keeps failure records forever.
func NewMaintenance(s *Scheduler, root Root, pruner Pruner, retention time.Duration) *Maintenance {
	return &Maintenance{
		scheduler: s,
		root:      root,
		pruner:    pruner,
		retention: retention,
		timeout:   time.Hour,
		c:         cron.New(),
	}
}

// Schedule sets the cron expression, replacing any previous one.
func (m *Maintenance) Schedule(expr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entryID != 0 {
		m.c.Remove(m.entryID)
		m.entryID = 0
	}
	id, err := m.c.AddFunc(expr, m.runScheduled)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	m.entryID = id
	log.Info("maintenance scheduled: %s", expr)
	return nil
}

// Start begins the cron loop.
func (m *Maintenance) Start() {
	m.c.Start()
}

// Stop halts the cron loop and waits for a running job.
func (m *Maintenance) Stop() {
	<-m.c.Stop().Done()
}

// NextRunAt returns the next scheduled time, or nil if nothing is scheduled.
func (m *Maintenance) NextRunAt() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entryID == 0 {
		return nil
	}
	entry := m.c.Entry(m.entryID)
	if entry.ID == 0 || entry.Next.IsZero() {
		return nil
	}
	t := entry.Next
	return &t
}

func (m *Maintenance) runScheduled() {
	ctx, cancel := context.WithTimeout(m.scheduler.ctx, m.timeout)
	defer cancel()

	res, err := m.Run(ctx)
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		log.Info("maintenance skipped: sweep in progress")
	case err != nil:
		log.Warn("maintenance failed: %v", err)
	default:
		log.Info("maintenance done: %d artifacts, %d directories, %d temp files removed; %d failure records pruned",
			res.GC.ArtifactsRemoved, res.GC.DirsRemoved, res.GC.TempsRemoved, res.Pruned)
	}
}

// Run collects orphans now, then prunes failure records older than the
// retention. A sweep in flight makes it return ErrAlreadyRunning before
// anything is touched.
func (m *Maintenance) Run(ctx context.Context) (MaintenanceResult, error) {
	var res MaintenanceResult

	gc, err := m.scheduler.RunGC(ctx, m.root)
	if err != nil {
		return res, err
	}
	res.GC = gc

	if m.pruner != nil && m.retention > 0 {
		n, err := m.pruner.PruneFailures(ctx, time.Now().Add(-m.retention))
		if err != nil {
			return res, fmt.Errorf("prune failures: %w", err)
		}
		res.Pruned = n
	}
	return res, nil
}
