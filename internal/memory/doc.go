// Package memory keeps thumbnail sweeps from pushing the process into an
// OOM kill.
//
// # GOMEMLIMIT
//
// Go does not derive a heap limit from the container's cgroup the way it
// derives GOMAXPROCS, so ConfigureFromEnv sets one:
//
//   - GOMEMLIMIT: used as is when present
//   - MEMORY_LIMIT: container limit in bytes, typically from the Downward API
//   - MEMORY_RATIO: share of MEMORY_LIMIT for the heap (default 0.85); lower
//     it when libvips is enabled, since its allocations are outside the heap
//
// In Kubernetes, MEMORY_LIMIT comes from the container's own limit:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
// # Backpressure
//
// A Monitor samples heap usage. Above the critical watermark it pauses, and
// sweep workers calling Wait block before decoding the next image until
// usage drops below the high watermark.
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	if err := monitor.Wait(ctx); err != nil {
//	    return err
//	}
package memory
