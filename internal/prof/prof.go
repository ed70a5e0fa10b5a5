// Package prof bundles the runtime profilers behind one start/stop pair so
// commands can expose profiling flags without juggling file handles.
package prof

import (
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options name the profile outputs. Empty paths leave the corresponding
// profiler off.
type Options struct {
	CPUPath   string // CPU samples, collected while the session runs
	MemPath   string // heap profile, captured at Stop
	TracePath string // runtime trace, collected while the session runs
}

// Session owns the files of the profilers it started.
type Session struct {
	opts      Options
	cpuFile   *os.File
	traceFile *os.File
}

// Start begins every profiler named in opts. When one fails to start, the
// ones already running are shut down before the error returns.
func Start(opts Options) (*Session, error) {
	s := &Session{opts: opts}
	if opts.CPUPath != "" {
		f, err := os.Create(opts.CPUPath)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		s.cpuFile = f
	}
	if opts.TracePath != "" {
		f, err := os.Create(opts.TracePath)
		if err != nil {
			s.shutdown()
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			s.shutdown()
			return nil, err
		}
		s.traceFile = f
	}
	return s, nil
}

// Stop ends the running profilers and captures the heap profile when one
// was requested. Safe on a nil session, so callers can defer it without
// checking how Start went.
func (s *Session) Stop() error {
	if s == nil {
		return nil
	}
	s.shutdown()
	if s.opts.MemPath != "" {
		return writeHeap(s.opts.MemPath)
	}
	return nil
}

func (s *Session) shutdown() {
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		_ = s.cpuFile.Close()
		s.cpuFile = nil
	}
	if s.traceFile != nil {
		trace.Stop()
		_ = s.traceFile.Close()
		s.traceFile = nil
	}
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	runtime.GC() // flush pending frees so the profile shows live heap
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
