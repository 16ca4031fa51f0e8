package workers

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync"
)

// Count returns a worker count for a task with the given CPU multiplier,
// capped at limit (0 = no cap). GOMAXPROCS already reflects container CPU
// limits.
//
//   - 1.0 for CPU-bound work (resizing)
//   - 2.0 for I/O-bound work (stat-heavy walks)
//   - 1.5 for mixed work (a sweep: read, decode, resize, write)
//
// SWEEP_WORKERS overrides the computed value.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv("SWEEP_WORKERS"); override != "" {
		if n, err := strconv.Atoi(override); err == nil && n > 0 {
			return capAt(n, limit)
		}
	}
	n := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	return capAt(max(n, 1), limit)
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// ForCPU returns one worker per CPU.
func ForCPU(limit int) int { return Count(1.0, limit) }

// ForIO returns two workers per CPU.
func ForIO(limit int) int { return Count(2.0, limit) }

// ForMixed returns 1.5 workers per CPU.
func ForMixed(limit int) int { return Count(1.5, limit) }

// Run starts n goroutines that call fn for every job received until jobs
// is closed, then waits for them. Once ctx is done, remaining jobs are
// drained without calling fn; a call already in progress runs to the end.
func Run[T any](ctx context.Context, n int, jobs <-chan T, fn func(T)) {
	var wg sync.WaitGroup
	for i := 0; i < max(n, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fn(job)
			}
		}()
	}
	wg.Wait()
}
