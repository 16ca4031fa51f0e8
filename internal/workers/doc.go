/*
Package workers sizes and runs the goroutine pools used by sweeps.

Sizes are derived from runtime.GOMAXPROCS rather than runtime.NumCPU, so a
pod limited to 2 CPUs on a 64-core node gets 2-based counts:

	n := workers.ForMixed(8) // 1.5 per CPU, at most 8

The SWEEP_WORKERS environment variable overrides the computed count (still
capped by the limit):

	env:
	- name: SWEEP_WORKERS
	  value: "4"

Run fans a job channel out to n goroutines and returns when the channel is
closed and every in-flight call has finished:

	jobs := make(chan string)
	go func() {
	    defer close(jobs)
	    for _, p := range paths {
	        jobs <- p
	    }
	}()
	workers.Run(ctx, n, jobs, func(p string) { generate(ctx, p) })

After ctx is cancelled, Run keeps receiving so the producer never blocks,
but discards what it receives.
*/
package workers
