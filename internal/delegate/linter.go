// Package delegate runs host-format linters against the cleaned view of a
// document. Findings come back in cleaned-text coordinates; the session layer
// maps them onto the original template before publishing.
package delegate

import (
	"context"

	"weft/internal/diag"
	"weft/internal/projection"
)

// Request is one lint job for a single document version.
type Request struct {
	URI     string
	Text    string // cleaned text, never the raw template
	Format  projection.Format
	Version int32
}

// Linter checks cleaned text for one or more host formats. Implementations
// must be safe for concurrent use; the session layer lints open documents in
// parallel.
type Linter interface {
	// Name tags findings and cache entries.
	Name() string

	// Lint returns findings with spans in byte offsets of req.Text.
	Lint(ctx context.Context, req Request) ([]diag.Diagnostic, error)

	Close() error
}

// FuncLinter adapts a function into a Linter, mainly for tests.
type FuncLinter struct {
	LinterName string
	Fn         func(ctx context.Context, req Request) ([]diag.Diagnostic, error)
}

func (f FuncLinter) Name() string { return f.LinterName }

func (f FuncLinter) Lint(ctx context.Context, req Request) ([]diag.Diagnostic, error) {
	if f.Fn == nil {
		return nil, nil
	}
	return f.Fn(ctx, req)
}

func (f FuncLinter) Close() error { return nil }
