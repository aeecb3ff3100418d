package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/ardnew/typecinfo/pkg"
)

// Profiling errors.
var (
	// ErrCPUProfileActive indicates CPU profiling is already active.
	ErrCPUProfileActive = errors.New("cpu profile already active")

	// ErrStopped indicates Stop was called twice.
	ErrStopped = errors.New("profiler already stopped")
)

// Config names the output files. Empty paths disable that profile.
type Config struct {
	CPU  string
	Heap string
}

// Enabled reports whether any profile is requested.
func (c Config) Enabled() bool { return c.CPU != "" || c.Heap != "" }

var (
	// cpuMutex protects cpuActive.
	cpuMutex  sync.Mutex
	cpuActive bool
)

// Profiler is a running profiling session.
type Profiler struct {
	cfg     Config
	cpuFile *os.File
	stopped bool
}

// Start begins CPU profiling if requested. The heap profile is written
// by Stop.
func Start(cfg Config) (*Profiler, error) {
	p := &Profiler{cfg: cfg}
	if cfg.CPU == "" {
		return p, nil
	}

	cpuMutex.Lock()
	defer cpuMutex.Unlock()
	if cpuActive {
		return nil, ErrCPUProfileActive
	}
	f, err := os.Create(cfg.CPU)
	if err != nil {
		return nil, fmt.Errorf("prof: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("prof: %w", err)
	}
	p.cpuFile = f
	cpuActive = true
	pkg.LogDebug(pkg.ComponentCLI, "cpu profile started", "path", cfg.CPU)
	return p, nil
}

// Stop ends CPU profiling and writes the heap profile.
func (p *Profiler) Stop() error {
	if p.stopped {
		return ErrStopped
	}
	p.stopped = true

	var errs []error
	if p.cpuFile != nil {
		cpuMutex.Lock()
		pprof.StopCPUProfile()
		cpuActive = false
		cpuMutex.Unlock()
		errs = append(errs, p.cpuFile.Close())
		p.cpuFile = nil
	}
	if p.cfg.Heap != "" {
		errs = append(errs, writeHeap(p.cfg.Heap))
	}
	return errors.Join(errs...)
}

// IsCPUActive reports whether CPU profiling is currently active.
func IsCPUActive() bool {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()
	return cpuActive
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("prof: %w", err)
	}
	defer f.Close()

	runtime.GC() // up-to-date statistics
	if err := pprof.Lookup("heap").WriteTo(f, 0); err != nil {
		return fmt.Errorf("prof: write heap: %w", err)
	}
	pkg.LogDebug(pkg.ComponentCLI, "heap profile written", "path", path)
	return nil
}
