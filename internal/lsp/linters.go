package lsp

import (
	"context"
	"sync"

	"weft/internal/delegate"
	"weft/internal/diag"
	"weft/internal/projection"
	"weft/internal/workspace"
)

// lazyLinter defers spawning its language server until the first document
// of its format is actually linted, so configured-but-unused linters cost
// nothing. A spawn failure sticks; retrying on every keystroke would only
// repeat it.
type lazyLinter struct {
	name string
	lc   workspace.LinterConfig
	root string

	mu     sync.Mutex
	linter delegate.Linter
	err    error
}

func (l *lazyLinter) Name() string { return l.name }

func (l *lazyLinter) Lint(ctx context.Context, req delegate.Request) ([]diag.Diagnostic, error) {
	linter, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return linter.Lint(ctx, req)
}

func (l *lazyLinter) acquire() (delegate.Linter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.linter != nil || l.err != nil {
		return l.linter, l.err
	}
	linter, err := delegate.NewProcessLinter(delegate.ProcessConfig{
		Name:    l.name,
		Command: l.lc.Command,
		Args:    l.lc.Args,
		RootDir: l.root,
	})
	if err != nil {
		l.err = err
		return nil, err
	}
	l.linter = linter
	return linter, nil
}

func (l *lazyLinter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.linter == nil {
		return nil
	}
	err := l.linter.Close()
	l.linter = nil
	return err
}

// buildLinters maps each configured lint format to a lazy linter for the
// session. The config keys the table by format name, so aliases like yml
// resolve through the projection package.
func buildLinters(cfg *workspace.Config, logf func(string, ...any)) map[projection.Format]delegate.Linter {
	if cfg == nil {
		return nil
	}
	var linters map[projection.Format]delegate.Linter
	for name, lc := range cfg.Lint.Linters {
		if lc.Command == "" {
			continue
		}
		format, ok := projection.KnownFormat(name)
		if !ok {
			logf("config: unknown lint format %q", name)
			continue
		}
		if linters == nil {
			linters = make(map[projection.Format]delegate.Linter)
		}
		linters[format] = &lazyLinter{name: lc.Command, lc: lc, root: cfg.Root()}
	}
	return linters
}
