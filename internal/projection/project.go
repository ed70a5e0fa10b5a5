// Package projection builds the cleaned host-format view of a template.
//
// Cleaning strips every tag from the document while keeping the surrounding
// text in place: statements and comments vanish, expressions become
// format-neutral placeholders of the same width. A delegated linter for the
// host format can then run against the cleaned text, and the segment table
// carries each of its findings back onto the original document.
package projection

import (
	"strings"

	"weft/internal/diag"
	"weft/internal/lexer"
	"weft/internal/source"
	"weft/internal/token"
)

// Options configures one projection run.
type Options struct {
	// Filename steers format detection and names the private lexing file.
	Filename string

	// File is stamped on every span the snapshot produces, so mapped
	// diagnostics merge cleanly with ones computed on the caller's file set.
	File source.FileID

	// Policies overrides or extends the built-in per-format placeholder
	// policies.
	Policies []Policy

	// Format pins the host format, skipping detection.
	Format Format

	// Reporter receives tokenizer findings. May be nil; projection itself
	// proceeds regardless, since an unterminated tag folds back into text.
	Reporter diag.Reporter
}

// Project cleans text and returns the snapshot for this document version.
func Project(text string, cfg token.DelimiterConfig, opts Options) *Snapshot {
	fs := source.NewFileSet()
	name := opts.Filename
	if name == "" {
		name = "document"
	}
	file := fs.Get(fs.AddVirtual(name, []byte(text)))

	var rep diag.Reporter
	if opts.Reporter != nil {
		rep = restampReporter{next: opts.Reporter, file: opts.File}
	}
	toks := lexer.Tokenize(file, lexer.Options{Config: cfg, Reporter: rep})

	// Placeholders are width-preserving no matter the policy, so the segment
	// table from the first pass stays valid if format detection picks a
	// different placeholder and the text is assembled again.
	cleaned, segs := assemble(text, toks, opts.File, nil)
	format := opts.Format
	if format == "" {
		format = DetectFormat(opts.Filename, cleaned)
	}
	if pol := policyFor(format, opts.Policies); pol != nil {
		cleaned, segs = assemble(text, toks, opts.File, pol)
	}

	spans := make([]source.Span, 0, len(toks))
	for _, t := range toks {
		if !t.IsTag() {
			continue
		}
		spans = append(spans, source.Span{File: opts.File, Start: t.Span.Start, End: t.Span.End})
	}

	return &Snapshot{
		Original:   text,
		Cleaned:    cleaned,
		Format:     format,
		Segments:   segs,
		TokenSpans: spans,
		file:       opts.File,
		origIdx:    file.Lines,
		cleanIdx:   source.NewLineIndex([]byte(cleaned)),
	}
}

// assemble runs the cleaning pass over the token stream. Trim marks take the
// same bytes off adjacent text that rendering takes, and the removed
// whitespace joins the neighbouring tag's segment so positions inside it
// resolve to that tag rather than to an arbitrary point.
func assemble(text string, toks []token.Token, fileID source.FileID, pol Policy) (string, []Segment) {
	var b strings.Builder
	b.Grow(len(text))
	segs := make([]Segment, 0, len(toks))
	cleanPos := uint32(0)

	// Trailing whitespace a trim-marked opener claims from the text before
	// it; the tag's segment starts that many bytes early.
	fold := uint32(0)

	for i, t := range toks {
		if t.Kind == token.Text {
			pre, suf := 0, 0
			if i > 0 && toks[i-1].IsTag() && toks[i-1].TrimRight {
				pre = token.TrimmedPrefixLen(t.Raw)
			}
			if i+1 < len(toks) && toks[i+1].IsTag() && toks[i+1].TrimLeft {
				suf = token.TrimmedSuffixLen(t.Raw[pre:])
			}
			if pre > 0 && len(segs) > 0 {
				segs[len(segs)-1].Original.End += uint32(pre)
			}
			middle := t.Raw[pre : len(t.Raw)-suf]
			if middle != "" {
				b.WriteString(middle)
				width := uint32(len(middle))
				start := t.Span.Start + uint32(pre)
				segs = append(segs, Segment{
					Cleaned:  source.Span{File: fileID, Start: cleanPos, End: cleanPos + width},
					Original: source.Span{File: fileID, Start: start, End: start + width},
				})
				cleanPos += width
			}
			fold = uint32(suf)
			continue
		}

		seg := Segment{
			Cleaned:  source.Span{File: fileID, Start: cleanPos, End: cleanPos},
			Original: source.Span{File: fileID, Start: t.Span.Start - fold, End: t.Span.End},
			Elided:   true,
		}
		fold = 0
		if t.Kind == token.Expression {
			ph := placeholderFor(pol, int(t.Span.End-t.Span.Start))
			b.WriteString(ph)
			cleanPos += uint32(len(ph))
			seg.Cleaned.End = cleanPos
		}
		segs = append(segs, seg)
	}
	return b.String(), segs
}

// restampReporter rewrites spans from the private lexing file onto the
// document's public FileID before forwarding.
type restampReporter struct {
	next diag.Reporter
	file source.FileID
}

func (r restampReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note, fixes []diag.Fix) {
	primary.File = r.file
	for i := range notes {
		notes[i].Span.File = r.file
	}
	for i := range fixes {
		for j := range fixes[i].Edits {
			fixes[i].Edits[j].Span.File = r.file
		}
	}
	r.next.Report(code, sev, primary, msg, notes, fixes)
}
