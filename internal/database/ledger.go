package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"autogallery/internal/metrics"
)

// ThumbnailFailure is an image that could not be thumbnailed. It is keyed
// by fingerprint, so touching the file gives it another chance.
type ThumbnailFailure struct {
	Fingerprint string    `json:"fingerprint"`
	Path        string    `json:"path"`
	Error       string    `json:"error"`
	FailedAt    time.Time `json:"failedAt"`
}

// SweepRun is the record of one completed (or cancelled) sweep pass.
type SweepRun struct {
	ID         int64     `json:"id"`
	Root       string    `json:"root"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Visited    int64     `json:"visited"`
	Generated  int64     `json:"generated"`
	Skipped    int64     `json:"skipped"`
	Failed     int64     `json:"failed"`
	Degraded   bool      `json:"degraded"`
	Cancelled  bool      `json:"cancelled"`
}

// Duration returns how long the run took.
func (r SweepRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RecordFailure stores or refreshes a failure.
func (d *Database) RecordFailure(ctx context.Context, f ThumbnailFailure) (err error) {
	start := time.Now()
	defer func() { recordQuery("record_failure", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if f.FailedAt.IsZero() {
		f.FailedAt = time.Now()
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO thumbnail_failures (fingerprint, path, error, failed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			path = excluded.path,
			error = excluded.error,
			failed_at = excluded.failed_at
	`, f.Fingerprint, f.Path, f.Error, f.FailedAt.Unix())
	if err != nil {
		return fmt.Errorf("record failure for %s: %w", f.Path, err)
	}
	return nil
}

// KnownFailure reports whether fingerprint already failed.
func (d *Database) KnownFailure(ctx context.Context, fingerprint string) (known bool, err error) {
	start := time.Now()
	defer func() { recordQuery("known_failure", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var one int
	err = d.db.QueryRowContext(ctx,
		`SELECT 1 FROM thumbnail_failures WHERE fingerprint = ?`, fingerprint).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up failure: %w", err)
	}
	return true, nil
}

// Failure returns the failure recorded for fingerprint, or nil.
func (d *Database) Failure(ctx context.Context, fingerprint string) (*ThumbnailFailure, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		f        ThumbnailFailure
		failedAt int64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT fingerprint, path, error, failed_at
		FROM thumbnail_failures WHERE fingerprint = ?
	`, fingerprint).Scan(&f.Fingerprint, &f.Path, &f.Error, &failedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failure: %w", err)
	}
	f.FailedAt = time.Unix(failedAt, 0)
	return &f, nil
}

// FailureCount returns the number of failures in the ledger.
func (d *Database) FailureCount(ctx context.Context) (n int64, err error) {
	start := time.Now()
	defer func() { recordQuery("count_failures", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM thumbnail_failures`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count failures: %w", err)
	}
	metrics.DBFailuresRecorded.Set(float64(n))
	return n, nil
}

// PruneFailures deletes failures recorded before cutoff and returns how
// many went.
func (d *Database) PruneFailures(ctx context.Context, cutoff time.Time) (n int64, err error) {
	start := time.Now()
	defer func() { recordQuery("prune_failures", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `DELETE FROM thumbnail_failures WHERE failed_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune failures: %w", err)
	}
	return res.RowsAffected()
}

// RecordSweep stores a sweep run and returns its id.
func (d *Database) RecordSweep(ctx context.Context, run SweepRun) (id int64, err error) {
	start := time.Now()
	defer func() { recordQuery("record_sweep", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO sweep_runs (root, started_at, finished_at, visited, generated, skipped, failed, degraded, cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.Root, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.Visited, run.Generated, run.Skipped, run.Failed, run.Degraded, run.Cancelled)
	if err != nil {
		return 0, fmt.Errorf("record sweep: %w", err)
	}
	return res.LastInsertId()
}

// RecentSweeps returns up to limit runs, newest first.
func (d *Database) RecentSweeps(ctx context.Context, limit int) (runs []SweepRun, err error) {
	start := time.Now()
	defer func() { recordQuery("recent_sweeps", start, err) }()

	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, root, started_at, finished_at, visited, generated, skipped, failed, degraded, cancelled
		FROM sweep_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sweeps: %w", err)
	}
	defer rows.Close()

	runs = make([]SweepRun, 0, limit)
	for rows.Next() {
		var (
			r                 SweepRun
			started, finished int64
		)
		if err = rows.Scan(&r.ID, &r.Root, &started, &finished,
			&r.Visited, &r.Generated, &r.Skipped, &r.Failed, &r.Degraded, &r.Cancelled); err != nil {
			return nil, fmt.Errorf("scan sweep: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		runs = append(runs, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweeps: %w", err)
	}
	return runs, nil
}
