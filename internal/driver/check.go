// Package driver runs the analysis pipeline end to end: load, tokenize,
// parse, typecheck, and optionally project and delegate. The cmd and lsp
// layers build on it instead of wiring the stages themselves.
package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"weft/internal/ast"
	"weft/internal/diag"
	"weft/internal/lexer"
	"weft/internal/observ"
	"weft/internal/parser"
	"weft/internal/projection"
	"weft/internal/schema"
	"weft/internal/sema"
	"weft/internal/source"
	"weft/internal/token"
	"weft/internal/workspace"
)

// DefaultMaxDiagnostics caps a bag when the caller does not choose a limit.
const DefaultMaxDiagnostics = 100

// Options configures one pipeline run.
type Options struct {
	// Config supplies workspace settings: delimiters, schema bindings,
	// linter commands. Nil falls back to defaults rooted at the document's
	// directory.
	Config *workspace.Config

	// MaxDiagnostics caps the bag; 0 means DefaultMaxDiagnostics.
	MaxDiagnostics int

	// SchemaPath forces a schema file, overriding the inline directive,
	// the workspace binding and any sidecar.
	SchemaPath string

	// Format pins the host format for projection instead of detecting it.
	Format string

	// Delegate projects the document and runs the configured host-format
	// linter over the cleaned text.
	Delegate bool

	// Project builds the cleaned-text snapshot without delegating, for
	// callers that run their own linting over it.
	Project bool

	IgnoreWarnings   bool
	WarningsAsErrors bool
	EnableTimings    bool
}

func (o Options) maxDiagnostics() int {
	if o.MaxDiagnostics <= 0 {
		return DefaultMaxDiagnostics
	}
	return o.MaxDiagnostics
}

// TokenizeResult carries the lexer stage's output.
type TokenizeResult struct {
	FileSet *source.FileSet
	File    *source.File
	Tokens  []token.Token
	Bag     *diag.Bag
}

// Tokenize loads one document and splits it into regions.
func Tokenize(path string, opts Options) (*TokenizeResult, error) {
	fs := source.NewFileSet()
	fileID, err := fs.Load(path)
	if err != nil {
		return nil, err
	}
	return tokenizeFile(fs, fs.Get(fileID), opts), nil
}

// TokenizeText tokenizes in-memory text under a virtual file name.
func TokenizeText(name string, text []byte, opts Options) *TokenizeResult {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual(name, text)
	return tokenizeFile(fs, fs.Get(fileID), opts)
}

func tokenizeFile(fs *source.FileSet, file *source.File, opts Options) *TokenizeResult {
	bag := diag.NewBag(opts.maxDiagnostics())
	toks := lexer.Tokenize(file, lexer.Options{
		Config:   delimitersFor(opts.Config, bag),
		Reporter: &diag.BagReporter{Bag: bag},
	})
	bag.Sort()
	return &TokenizeResult{FileSet: fs, File: file, Tokens: toks, Bag: bag}
}

// delimitersFor resolves the workspace delimiter set. A broken [delimiters]
// section is reported and the defaults take over, so analysis still runs.
func delimitersFor(cfg *workspace.Config, bag *diag.Bag) token.DelimiterConfig {
	if cfg == nil {
		return token.Default()
	}
	delims, err := cfg.DelimiterConfig()
	if err != nil {
		code := diag.ConfInvalid
		var ce *workspace.ConfigError
		if errors.As(err, &ce) {
			code = ce.Code
		}
		bag.Add(diag.New(diag.SevError, code, source.Span{}, err.Error()))
		return token.Default()
	}
	return delims
}

// ParseResult carries the parser stage's output.
type ParseResult struct {
	FileSet *source.FileSet
	File    *source.File
	Tokens  []token.Token
	Doc     *ast.Document
	Bag     *diag.Bag
}

// Parse loads and parses one document. Doc is nil when nothing could be
// recovered from the text.
func Parse(path string, opts Options) (*ParseResult, error) {
	tok, err := Tokenize(path, opts)
	if err != nil {
		return nil, err
	}
	doc := parseTokens(tok.Tokens, tok.Bag)
	tok.Bag.Sort()
	return &ParseResult{
		FileSet: tok.FileSet,
		File:    tok.File,
		Tokens:  tok.Tokens,
		Doc:     doc,
		Bag:     tok.Bag,
	}, nil
}

func parseTokens(toks []token.Token, bag *diag.Bag) *ast.Document {
	return parser.Parse(toks, parser.Options{
		MaxErrors: uint(bag.Cap()),
		Reporter:  &diag.BagReporter{Bag: bag},
	})
}

// CheckResult carries everything the pipeline produced for one document.
type CheckResult struct {
	FileSet *source.FileSet
	File    *source.File
	Tokens  []token.Token
	Doc     *ast.Document
	Schema  *schema.Schema

	// Snapshot is set when the delegate stage ran.
	Snapshot *projection.Snapshot
	Bag      *diag.Bag

	// Timings is nil unless EnableTimings was set.
	Timings *observ.Report
}

// Check runs the full pipeline over one document.
func Check(ctx context.Context, path string, opts Options) (*CheckResult, error) {
	var timer *observ.Timer
	if opts.EnableTimings {
		timer = observ.NewTimer()
	}
	begin := func(name string) int {
		if timer == nil {
			return -1
		}
		return timer.Begin(name)
	}
	end := func(idx int, note string) {
		if timer == nil || idx < 0 {
			return
		}
		timer.End(idx, note)
	}

	loadIdx := begin("load_file")
	fs := source.NewFileSet()
	fileID, err := fs.Load(path)
	end(loadIdx, "")
	if err != nil {
		return nil, err
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = workspace.Default(filepath.Dir(path))
	}

	var pool *linterPool
	if opts.Delegate {
		pool = newLinterPool(cfg)
		defer pool.Close()
	}

	return checkLoaded(ctx, fs, fs.Get(fileID), cfg, opts, timer, pool, newSchemaCache(cfg)), nil
}

// CheckText runs the full pipeline over in-memory text under a virtual file
// name. Editor overlays go through here so unsaved edits are what gets
// checked.
func CheckText(ctx context.Context, name string, text []byte, opts Options) *CheckResult {
	var timer *observ.Timer
	if opts.EnableTimings {
		timer = observ.NewTimer()
	}

	fs := source.NewFileSet()
	fileID := fs.AddVirtual(name, text)

	cfg := opts.Config
	if cfg == nil {
		cfg = workspace.Default(filepath.Dir(name))
	}

	var pool *linterPool
	if opts.Delegate {
		pool = newLinterPool(cfg)
		defer pool.Close()
	}

	return checkLoaded(ctx, fs, fs.Get(fileID), cfg, opts, timer, pool, newSchemaCache(cfg))
}

// checkLoaded runs every stage after the file is in the set. CheckDir calls
// it from worker goroutines, so it only reads the shared set; included
// templates load through the resolver's private one.
func checkLoaded(ctx context.Context, fs *source.FileSet, file *source.File, cfg *workspace.Config, opts Options, timer *observ.Timer, pool *linterPool, schemas *schema.Cache) (res *CheckResult) {
	begin := func(name string) int {
		if timer == nil {
			return -1
		}
		return timer.Begin(name)
	}
	end := func(idx int, note string) {
		if timer == nil || idx < 0 {
			return
		}
		timer.End(idx, note)
	}

	bag := diag.NewBag(opts.maxDiagnostics())
	rep := &diag.BagReporter{Bag: bag}

	// A panic in any stage degrades to a single internal-error diagnostic,
	// so a broken document reports instead of taking the caller down.
	defer func() {
		if r := recover(); r != nil {
			bag.Add(diag.New(diag.SevError, diag.InternalError,
				source.Span{File: file.ID},
				fmt.Sprintf("internal error: %v", r)))
			bag.Sort()
			res = &CheckResult{FileSet: fs, File: file, Bag: bag}
			if timer != nil {
				report := timer.Report()
				res.Timings = &report
			}
		}
	}()

	delims := delimitersFor(cfg, bag)

	tokenIdx := begin("tokenize")
	toks := lexer.Tokenize(file, lexer.Options{Config: delims, Reporter: rep})
	tokenNote := ""
	if timer != nil {
		tokenNote = fmt.Sprintf("tokens=%d", len(toks))
	}
	end(tokenIdx, tokenNote)

	parseIdx := begin("parse")
	doc := parseTokens(toks, bag)
	parseNote := ""
	if timer != nil {
		parseNote = fmt.Sprintf("diags=%d", bag.Len())
	}
	end(parseIdx, parseNote)

	typeIdx := begin("typecheck")
	sch := resolveSchema(file, toks, cfg, opts, schemas, rep)
	sups := collectSuppressions(file, toks, doc, rep)
	sema.Check(doc, sema.Options{
		Reporter: rep,
		Schema:   sch,
		Resolver: newFileResolver(filepath.Dir(file.Path), delims),
		DocName:  filepath.Base(file.Path),
	})
	typeNote := ""
	if timer != nil && sch != nil {
		typeNote = "schema=" + sch.Origin.String()
	}
	end(typeIdx, typeNote)

	var snap *projection.Snapshot
	if opts.Delegate || opts.Project {
		projIdx := begin("project")
		snap = projection.Project(string(file.Content), delims, projection.Options{
			Filename: file.Path,
			File:     file.ID,
			Format:   pinnedFormat(opts.Format, bag),
		})
		projNote := ""
		if timer != nil {
			projNote = "format=" + string(snap.Format)
		}
		end(projIdx, projNote)
	}
	if opts.Delegate {
		delIdx := begin("delegate")
		delNote := runDelegate(ctx, pool, file, snap, cfg, bag)
		end(delIdx, delNote)
	}

	bag.Dedup()
	bag.Suppress(sups)

	if opts.IgnoreWarnings {
		bag.Filter(func(d *diag.Diagnostic) bool {
			return d.Severity != diag.SevWarning && d.Severity != diag.SevInfo
		})
	}
	if opts.WarningsAsErrors {
		bag.Transform(func(d *diag.Diagnostic) *diag.Diagnostic {
			if d.Severity == diag.SevWarning {
				d.Severity = diag.SevError
			}
			return d
		})
	}
	bag.Sort()

	res = &CheckResult{
		FileSet:  fs,
		File:     file,
		Tokens:   toks,
		Doc:      doc,
		Schema:   sch,
		Snapshot: snap,
		Bag:      bag,
	}
	if timer != nil {
		report := timer.Report()
		res.Timings = &report
	}
	return res
}

// ProjectResult carries a cleaned view and its mapping table.
type ProjectResult struct {
	FileSet  *source.FileSet
	File     *source.File
	Snapshot *projection.Snapshot
	Bag      *diag.Bag
}

// Project builds the cleaned view of one document without checking it.
func Project(path string, opts Options) (*ProjectResult, error) {
	fs := source.NewFileSet()
	fileID, err := fs.Load(path)
	if err != nil {
		return nil, err
	}
	return projectFile(fs, fs.Get(fileID), opts), nil
}

// ProjectText projects in-memory text under a virtual file name.
func ProjectText(name string, text []byte, opts Options) *ProjectResult {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual(name, text)
	return projectFile(fs, fs.Get(fileID), opts)
}

func projectFile(fs *source.FileSet, file *source.File, opts Options) *ProjectResult {
	bag := diag.NewBag(opts.maxDiagnostics())
	snap := projection.Project(string(file.Content), delimitersFor(opts.Config, bag), projection.Options{
		Filename: file.Path,
		File:     file.ID,
		Format:   pinnedFormat(opts.Format, bag),
		Reporter: &diag.BagReporter{Bag: bag},
	})
	bag.Sort()
	return &ProjectResult{FileSet: fs, File: file, Snapshot: snap, Bag: bag}
}

// pinnedFormat validates a requested host format. Unknown names earn a
// diagnostic and detection takes over, matching how other bad options
// degrade instead of aborting.
func pinnedFormat(name string, bag *diag.Bag) projection.Format {
	if name == "" {
		return ""
	}
	f, ok := projection.KnownFormat(name)
	if !ok {
		bag.Add(diag.New(diag.SevError, diag.ProjUnknownFormat, source.Span{},
			fmt.Sprintf("unknown projection format %q", name)))
		return ""
	}
	return f
}
