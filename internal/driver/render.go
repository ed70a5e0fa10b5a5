package driver

import (
	"context"
	"io"
	"path/filepath"

	"weft/internal/diag"
	"weft/internal/eval"
	"weft/internal/workspace"
)

// RenderOptions configures Render on top of the check pipeline.
type RenderOptions struct {
	Options

	// Data is the decoded host data the template is evaluated against.
	Data map[string]any

	// MaxDepth caps include nesting; zero keeps the eval default.
	MaxDepth int
}

// Render checks path and, when the check finds no errors, evaluates the
// document against the data and writes the output to w. Schema violations
// found while rendering join the result's bag; the first hard fault stops
// the render and comes back as the error, usually an *eval.Error carrying
// the template position. A result with errors in its bag skips evaluation,
// and the caller decides how to report it.
func Render(ctx context.Context, w io.Writer, path string, opts RenderOptions) (*CheckResult, error) {
	res, err := Check(ctx, path, opts.Options)
	if err != nil {
		return nil, err
	}
	if res.Doc == nil || res.Bag.HasErrors() {
		return res, nil
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = workspace.Default(filepath.Dir(path))
	}
	renderErr := eval.Render(w, res.Doc, opts.Data, eval.Options{
		Schema:   res.Schema,
		Resolver: newFileResolver(filepath.Dir(res.File.Path), delimitersFor(cfg, res.Bag)),
		Reporter: &diag.BagReporter{Bag: res.Bag},
		MaxDepth: opts.MaxDepth,
	})
	res.Bag.Sort()
	return res, renderErr
}
