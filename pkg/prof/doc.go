// Package prof writes CPU and heap profiles for a single command run.
//
// The CLI starts a profiler before enumeration and stops it on exit:
//
//	p, err := prof.Start(prof.Config{CPU: "cpu.prof", Heap: "heap.prof"})
//	if err != nil {
//	    return err
//	}
//	defer p.Stop()
//
// Only one CPU profile may be active per process; a second Start with a
// CPU path returns [ErrCPUProfileActive]. Inspect the output with
// go tool pprof.
package prof
