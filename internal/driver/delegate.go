package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"weft/internal/delegate"
	"weft/internal/diag"
	"weft/internal/projection"
	"weft/internal/source"
	"weft/internal/workspace"
)

// linterPool spawns at most one process linter per host format and shares
// it across the files of a directory check. Spawn failures are remembered,
// so a broken command costs one attempt rather than one per file.
type linterPool struct {
	cfg *workspace.Config

	// spawn builds the linter for a configured command; tests replace it.
	spawn func(workspace.LinterConfig, string) (delegate.Linter, error)

	mu       sync.Mutex
	linters  map[projection.Format]delegate.Linter
	errs     map[projection.Format]error
	cache    *delegate.Cache
	cacheSet bool
}

func newLinterPool(cfg *workspace.Config) *linterPool {
	return &linterPool{
		cfg: cfg,
		spawn: func(lc workspace.LinterConfig, root string) (delegate.Linter, error) {
			return delegate.NewProcessLinter(delegate.ProcessConfig{
				Command: lc.Command,
				Args:    lc.Args,
				RootDir: root,
			})
		},
		linters: make(map[projection.Format]delegate.Linter),
		errs:    make(map[projection.Format]error),
	}
}

// For returns the linter serving a format, spawning it on first use. A nil
// linter with a nil error means none is configured for the format.
func (p *linterPool) For(format projection.Format) (delegate.Linter, error) {
	if p == nil || p.cfg == nil {
		return nil, nil
	}
	lc, ok := p.cfg.LinterFor(format)
	if !ok {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.linters[format]; ok {
		return l, nil
	}
	if err, ok := p.errs[format]; ok {
		return nil, err
	}

	l, err := p.spawn(lc, p.cfg.Root())
	if err != nil {
		p.errs[format] = err
		return nil, err
	}
	l = delegate.WithCache(l, p.openCache())
	p.linters[format] = l
	return l, nil
}

// openCache runs under mu and opens the result store at most once.
func (p *linterPool) openCache() *delegate.Cache {
	if p.cacheSet {
		return p.cache
	}
	p.cacheSet = true
	dir := p.cfg.CacheDir()
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil
	}
	c, err := delegate.OpenCache(filepath.Join(dir, "delegate.db"))
	if err != nil {
		return nil
	}
	p.cache = c
	return c
}

func (p *linterPool) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, l := range p.linters {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	clear(p.linters)
	clear(p.errs)
	if p.cache != nil {
		if err := p.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.cache = nil
		p.cacheSet = false
	}
	return firstErr
}

// runDelegate lints the cleaned text and merges the mapped findings into the
// bag. Timeouts and linter failures degrade to warnings: the engine's own
// findings are never held hostage by a slow external tool. The returned
// string annotates the timing phase.
func runDelegate(ctx context.Context, pool *linterPool, file *source.File, snap *projection.Snapshot, cfg *workspace.Config, bag *diag.Bag) string {
	linter, err := pool.For(snap.Format)
	if err != nil {
		bag.Add(diag.New(diag.SevWarning, diag.DelegateFailed, source.Span{},
			fmt.Sprintf("linter for %s failed to start: %v", snap.Format, err)))
		return "spawn failed"
	}
	if linter == nil {
		return "no linter"
	}

	budget := delegate.Budget(snap.Format, len(snap.Cleaned))
	if limit := cfg.TimeoutCap(); limit > 0 && budget > limit {
		budget = limit
	}
	lctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	findings, err := linter.Lint(lctx, delegate.Request{
		URI:    delegate.PathToURI(file.Path),
		Text:   snap.Cleaned,
		Format: snap.Format,
	})
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			bag.Add(diag.New(diag.SevWarning, diag.DelegateTimeout, source.Span{},
				fmt.Sprintf("%s timed out after %v", linter.Name(), budget)))
			return "timeout"
		case ctx.Err() != nil:
			return "canceled"
		default:
			bag.Add(diag.New(diag.SevWarning, diag.DelegateFailed, source.Span{},
				fmt.Sprintf("%s failed: %v", linter.Name(), err)))
			return "failed"
		}
	}

	for _, d := range findings {
		bag.Add(snap.MapDiagnostic(d, projection.CleanedToOriginal))
	}
	return fmt.Sprintf("linter=%s findings=%d", linter.Name(), len(findings))
}
