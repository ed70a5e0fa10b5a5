package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"weft/internal/diag"
	"weft/internal/source"
)

const gutterWidth = 4

var (
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleHint    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Pretty renders diagnostics for humans, one block per item:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//	   N | <source line>
//	     |       ^~~~~~~
//
// followed by notes and fixes when enabled. Positions are 1-based. The bag
// is expected to be sorted already.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts)
	}
}

func prettyOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	sev := d.Severity.String()
	if opts.Color {
		sev = severityStyle(d.Severity).Render(sev)
	}

	loc, ok := locate(fs, d.Primary, opts.PathMode)
	if !ok {
		fmt.Fprintf(w, "%s %s: %s\n", sev, d.Code.ID(), d.Message)
		return
	}

	fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n",
		loc.path, loc.start.Line+1, loc.start.Col+1, sev, d.Code.ID(), d.Message)

	printContext(w, loc, d, opts)

	if opts.ShowNotes {
		for _, note := range d.Notes {
			nloc, nok := locate(fs, note.Span, opts.PathMode)
			if !nok {
				fmt.Fprintf(w, "  note: %s\n", note.Msg)
				continue
			}
			fmt.Fprintf(w, "  note: %s:%d:%d: %s\n",
				nloc.path, nloc.start.Line+1, nloc.start.Col+1, note.Msg)
		}
	}
	if opts.ShowFixes {
		for _, fix := range d.Fixes {
			fmt.Fprintf(w, "  fix: %s\n", fix.Title)
			if !opts.ShowPreview {
				continue
			}
			for _, edit := range fix.Edits {
				preview, err := buildEditPreview(fs, edit)
				if err != nil {
					continue
				}
				fmt.Fprintln(w, "    preview:")
				for _, line := range preview.before {
					fmt.Fprintf(w, "    - %s\n", line)
				}
				for _, line := range preview.after {
					fmt.Fprintf(w, "    + %s\n", line)
				}
			}
		}
	}
}

// printContext writes the source lines around the primary span with an
// underline row below the span's first line.
func printContext(w io.Writer, loc location, d diag.Diagnostic, opts PrettyOpts) {
	line := loc.start.Line

	ctx := uint32(0)
	if opts.Context > 0 {
		ctx = uint32(opts.Context)
	}
	first := uint32(0)
	if line > ctx {
		first = line - ctx
	}
	last := line + ctx
	if maxLine := loc.file.Lines.LineCount() - 1; last > maxLine {
		last = maxLine
	}

	for n := first; n <= last; n++ {
		text := expandTabs(loc.file.GetLine(n))
		if opts.Width > 0 {
			text = truncateWidth(text, int(opts.Width))
		}
		fmt.Fprintf(w, "%*d | %s\n", gutterWidth, n+1, text)
		if n == line {
			printUnderline(w, loc, d, opts)
		}
	}
}

// printUnderline marks the span's extent on its first line. Multi-line spans
// underline to the end of that line only.
func printUnderline(w io.Writer, loc location, d diag.Diagnostic, opts PrettyOpts) {
	lineText := loc.file.GetLine(loc.start.Line)
	col := int(loc.start.Col)
	if col > len(lineText) {
		col = len(lineText)
	}

	_, lineEnd := loc.file.Lines.LineSpan(loc.start.Line)
	seg := 0
	if end := min(d.Primary.End, lineEnd); end > d.Primary.Start {
		seg = int(end - d.Primary.Start)
	}
	if col+seg > len(lineText) {
		seg = len(lineText) - col
	}

	pad := runewidth.StringWidth(expandTabs(lineText[:col]))
	width := runewidth.StringWidth(expandTabs(lineText[col : col+seg]))
	width = max(width, 1)

	row := strings.Repeat(" ", pad) + "^" + strings.Repeat("~", width-1)
	if opts.Width > 0 {
		row = truncateWidth(row, int(opts.Width))
	}
	if opts.Color {
		row = severityStyle(d.Severity).Render(row)
	}
	fmt.Fprintf(w, "%s | %s\n", strings.Repeat(" ", gutterWidth), row)
}

func severityStyle(sev diag.Severity) lipgloss.Style {
	switch sev {
	case diag.SevError:
		return styleError
	case diag.SevWarning:
		return styleWarning
	case diag.SevInfo:
		return styleInfo
	default:
		return styleHint
	}
}

// location is a resolved span ready for display.
type location struct {
	file  *source.File
	path  string
	start source.LineCol
	end   source.LineCol
}

// locate resolves a span defensively: a diagnostic can outlive the FileSet
// it was minted against, and a dangling FileID must not take down rendering.
func locate(fs *source.FileSet, span source.Span, mode PathMode) (loc location, ok bool) {
	defer func() {
		if recover() != nil {
			loc = location{}
			ok = false
		}
	}()

	file := fs.Get(span.File)
	start, end := fs.Resolve(span)
	return location{
		file:  file,
		path:  file.FormatPath(mode.Mode(), fs.BaseDir()),
		start: start,
		end:   end,
	}, true
}

// expandTabs widens tabs for display so caret columns stay aligned with the
// printed line.
func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

// truncateWidth trims s to at most limit display columns, ending with an
// ellipsis when anything was cut.
func truncateWidth(s string, limit int) string {
	if limit <= 0 || runewidth.StringWidth(s) <= limit {
		return s
	}
	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > limit-1 {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	return b.String() + "…"
}
