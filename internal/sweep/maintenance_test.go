package sweep

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"autogallery/internal/media"
)

type fakePruner struct {
	mu      sync.Mutex
	calls   int
	cutoff  time.Time
	removed int64
	err     error
}

func (p *fakePruner) PruneFailures(_ context.Context, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.cutoff = cutoff
	return p.removed, p.err
}

func TestMaintenanceRun(t *testing.T) {
	root := newTree(t)
	s := New(Config{Workers: 1}, media.NewGenerator(media.DefaultOptions()), nil, nil)
	ctx := context.Background()
	if _, err := s.RunOnce(ctx, root); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(root.Source, "a.png")
	orphan := artifactFor(t, root, src)
	if err := os.Remove(src); err != nil {
		t.Fatal(err)
	}

	pruner := &fakePruner{removed: 4}
	m := NewMaintenance(s, root, pruner, 48*time.Hour)

	res, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.GC.ArtifactsRemoved != 1 {
		t.Errorf("ArtifactsRemoved = %d, want 1", res.GC.ArtifactsRemoved)
	}
	if res.Pruned != 4 {
		t.Errorf("Pruned = %d, want 4", res.Pruned)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("orphan still present")
	}

	want := time.Now().Add(-48 * time.Hour)
	if d := pruner.cutoff.Sub(want); d > time.Minute || d < -time.Minute {
		t.Errorf("cutoff = %v, want about %v", pruner.cutoff, want)
	}
}

func TestMaintenanceWithoutRetention(t *testing.T) {
	root := newTree(t)
	s := New(Config{Workers: 1}, media.NewGenerator(media.DefaultOptions()), nil, nil)
	pruner := &fakePruner{}

	if _, err := NewMaintenance(s, root, pruner, 0).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if pruner.calls != 0 {
		t.Errorf("pruner called %d times with zero retention", pruner.calls)
	}

	// A nil pruner is fine too.
	if _, err := NewMaintenance(s, root, nil, time.Hour).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestMaintenancePruneError(t *testing.T) {
	root := newTree(t)
	s := New(Config{Workers: 1}, media.NewGenerator(media.DefaultOptions()), nil, nil)
	boom := errors.New("disk full")

	_, err := NewMaintenance(s, root, &fakePruner{err: boom}, time.Hour).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestMaintenanceYieldsToSweep(t *testing.T) {
	root := newTree(t)
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	gen := genFunc(func(ctx context.Context, _, _ string) (media.Outcome, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return media.SkippedExists, nil
	})
	s := New(Config{Workers: 1}, gen, nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunOnce(context.Background(), root)
	}()
	<-started

	pruner := &fakePruner{}
	_, err := NewMaintenance(s, root, pruner, time.Hour).Run(context.Background())
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("err = %v, want ErrAlreadyRunning", err)
	}
	if pruner.calls != 0 {
		t.Error("pruner must not run while a sweep holds the root")
	}

	close(release)
	<-done
}

func TestMaintenanceSchedule(t *testing.T) {
	root := newTree(t)
	s := New(Config{Workers: 1}, media.NewGenerator(media.DefaultOptions()), nil, nil)
	m := NewMaintenance(s, root, nil, 0)

	if err := m.Schedule("not a schedule"); err == nil {
		t.Fatal("expected error for invalid expression")
	}
	if m.NextRunAt() != nil {
		t.Error("nothing scheduled yet")
	}

	if err := m.Schedule("@every 1h"); err != nil {
		t.Fatal(err)
	}
	if err := m.Schedule("@daily"); err != nil {
		t.Fatal(err)
	}
	if n := len(m.c.Entries()); n != 1 {
		t.Errorf("entries = %d, want 1 after rescheduling", n)
	}

	m.Start()
	defer m.Stop()
	waitFor(t, func() bool { return m.NextRunAt() != nil })
	if next := m.NextRunAt(); !next.After(time.Now()) {
		t.Errorf("next run %v is not in the future", next)
	}
}

func TestMaintenanceScheduledRun(t *testing.T) {
	root := newTree(t)
	s := New(Config{Workers: 1}, media.NewGenerator(media.DefaultOptions()), nil, nil)
	pruner := &fakePruner{}
	m := NewMaintenance(s, root, pruner, time.Hour)

	m.runScheduled()

	if pruner.calls != 1 {
		t.Errorf("pruner calls = %d, want 1", pruner.calls)
	}
}
