package sweep

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"autogallery/internal/metrics"
)

// Progress counts down the entries left in a pass and publishes the count
// at a bounded rate: to a gauge, to an in-memory value, and optionally to a
// plain-text file that other processes can poll.
type Progress struct {
	label    string
	file     string
	interval time.Duration

	total       atomic.Int64
	remaining   atomic.Int64
	published   atomic.Int64
	lastPublish atomic.Int64 // unix nanos
	writes      atomic.Int64

	mu sync.Mutex // serialises file writes
}

// NewProgress returns a Progress for the root named label. file may be
// empty to skip the file.
func NewProgress(label, file string, interval time.Duration) *Progress {
	return &Progress{label: label, file: file, interval: interval}
}

// Reset starts a new countdown from n and publishes it immediately.
func (p *Progress) Reset(n int64) {
	p.total.Store(n)
	p.remaining.Store(n)
	p.Flush()
}

// Done marks one entry as handled. The new count is published only if the
// last publish is at least interval old.
func (p *Progress) Done() {
	p.remaining.Add(-1)

	now := time.Now().UnixNano()
	last := p.lastPublish.Load()
	if now-last < int64(p.interval) {
		return
	}
	if p.lastPublish.CompareAndSwap(last, now) {
		p.publish()
	}
}

// Flush publishes the current count regardless of the rate limit.
func (p *Progress) Flush() {
	p.lastPublish.Store(time.Now().UnixNano())
	p.publish()
}

// Remaining returns the live count.
func (p *Progress) Remaining() int64 {
	return max(p.remaining.Load(), 0)
}

// Total returns the count the current pass started from.
func (p *Progress) Total() int64 {
	return p.total.Load()
}

// Published returns the count as last published.
func (p *Progress) Published() int64 {
	return p.published.Load()
}

// Writes returns how many times the count has been published.
func (p *Progress) Writes() int64 {
	return p.writes.Load()
}

func (p *Progress) publish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.Remaining()
	p.published.Store(n)
	p.writes.Add(1)
	metrics.SweepItemsRemaining.WithLabelValues(p.label).Set(float64(n))

	if p.file == "" {
		return
	}
	if err := writeProgressFile(p.file, n); err != nil {
		log.Debug("progress file: %v", err)
	}
}

// writeProgressFile replaces path atomically so readers never see a
// half-written number.
func writeProgressFile(path string, n int64) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(strconv.FormatInt(n, 10) + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadProgressFile returns the count stored in a progress file.
func ReadProgressFile(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return n, nil
}
