package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"weft/internal/ast"
	"weft/internal/diag"
	"weft/internal/lexer"
	"weft/internal/parser"
	"weft/internal/schema"
	"weft/internal/source"
	"weft/internal/token"
	"weft/internal/workspace"
)

// resolveSchema finds the schema governing one document. An explicit path
// wins, then an inline @schema comment, then the workspace binding, then a
// sidecar file next to the document. Load failures become diagnostics, not
// pipeline errors: checking proceeds structurally without a schema.
func resolveSchema(file *source.File, toks []token.Token, cfg *workspace.Config, opts Options, schemas *schema.Cache, rep diag.Reporter) *schema.Schema {
	if opts.SchemaPath != "" {
		return loadSchemaAt(opts.SchemaPath, source.Span{}, schemas, rep)
	}

	for _, t := range toks {
		if t.Kind != token.Comment {
			continue
		}
		s, ok, err := schema.FromComment(t.Raw)
		if !ok {
			continue
		}
		if err != nil {
			// The marker was present, so the author asked for this schema;
			// falling through to another source would check against the
			// wrong one.
			diag.ReportError(rep, diag.SchemaInvalid, t.Inner, err.Error()).Emit()
			return nil
		}
		return s
	}

	if cfg != nil {
		if path, ok := cfg.SchemaFor(file.Path); ok {
			return loadSchemaAt(path, source.Span{}, schemas, rep)
		}
	}

	if path, ok := schema.SidecarFor(file.Path); ok {
		return loadSchemaAt(path, source.Span{}, schemas, rep)
	}
	return nil
}

func loadSchemaAt(path string, at source.Span, schemas *schema.Cache, rep diag.Reporter) *schema.Schema {
	var s *schema.Schema
	var err error
	if schemas != nil {
		s, err = schemas.Load(path)
	} else {
		s, err = schema.Load(path)
	}
	if err == nil {
		return s
	}

	code := diag.SchemaInvalid
	var refErr *schema.RefError
	switch {
	case errors.Is(err, os.ErrNotExist):
		code = diag.IOLoadFileError
	case errors.As(err, &refErr):
		code = diag.SchemaUnresolvedRef
	}
	diag.ReportError(rep, code, at, err.Error()).Emit()
	return nil
}

// newSchemaCache builds the memoizing cache one pipeline (or one directory
// walk) shares, backed by the workspace cache directory when configured.
func newSchemaCache(cfg *workspace.Config) *schema.Cache {
	var disk *schema.DiskCache
	if cfg != nil {
		if dir := cfg.CacheDir(); dir != "" {
			disk = schema.OpenDiskCacheAt(filepath.Join(dir, "schema"))
		}
	}
	return schema.NewCache(disk)
}

// fileResolver serves include targets by loading sibling templates from
// disk. It keeps a private file set: positions inside included documents
// never reach a diagnostic, and sharing the caller's set would race during
// directory checks.
type fileResolver struct {
	dir    string
	delims token.DelimiterConfig
	fs     *source.FileSet
	docs   map[string]*ast.Document
}

func newFileResolver(dir string, delims token.DelimiterConfig) *fileResolver {
	return &fileResolver{
		dir:    dir,
		delims: delims,
		fs:     source.NewFileSet(),
		docs:   make(map[string]*ast.Document),
	}
}

// Resolve loads and parses the named template. Parse problems inside the
// target do not surface here: each file earns its own diagnostics when it
// is checked directly.
func (r *fileResolver) Resolve(name string) (*ast.Document, bool) {
	if doc, seen := r.docs[name]; seen {
		return doc, doc != nil
	}
	doc := r.load(name)
	r.docs[name] = doc
	return doc, doc != nil
}

func (r *fileResolver) load(name string) *ast.Document {
	candidates := []string{name}
	if !strings.HasSuffix(name, ".weft") {
		candidates = append(candidates, name+".weft")
	}
	for _, c := range candidates {
		path := filepath.FromSlash(c)
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.dir, path)
		}
		id, err := r.fs.Load(path)
		if err != nil {
			continue
		}
		toks := lexer.Tokenize(r.fs.Get(id), lexer.Options{Config: r.delims, Reporter: diag.NopReporter{}})
		return parser.Parse(toks, parser.Options{Reporter: diag.NopReporter{}})
	}
	return nil
}

// collectSuppressions gathers weft-ignore directives. A directive covers its
// own line and the next one; when a block statement opens in that window the
// cover stretches to the block's end, so one directive can blanket a loop.
func collectSuppressions(file *source.File, toks []token.Token, doc *ast.Document, rep diag.Reporter) []diag.Suppression {
	var sups []diag.Suppression
	for _, t := range toks {
		if t.Kind != token.Comment {
			continue
		}
		id, ok := diag.ParseSuppression(t.Raw)
		if !ok {
			continue
		}
		if !diag.KnownID(id) {
			diag.ReportWarning(rep, diag.SynUnknownSuppression, t.Span,
				fmt.Sprintf("unknown diagnostic id %q in suppression", id)).Emit()
			continue
		}
		line := file.Lines.PosAt(t.Span.Start).Line
		start, _ := file.Lines.LineSpan(line)
		window, _ := file.Lines.LineSpan(line + 2)
		sups = append(sups, diag.Suppression{
			ID:   id,
			Span: source.Span{File: file.ID, Start: start, End: widenToBlock(doc, start, window)},
		})
	}
	return sups
}

// widenToBlock stretches the cover to enclose any block statement opening
// inside the original two-line window.
func widenToBlock(doc *ast.Document, start, window uint32) uint32 {
	end := window
	if doc == nil {
		return end
	}
	ast.Walk(doc, func(n ast.Node) bool {
		var loc source.Span
		switch b := n.(type) {
		case *ast.If:
			loc = b.Loc
		case *ast.For:
			loc = b.Loc
		default:
			return true
		}
		if loc.Start >= start && loc.Start < window && loc.End > end {
			end = loc.End
		}
		return true
	})
	return end
}
