package projection

import (
	"sort"

	"weft/internal/diag"
	"weft/internal/source"
)

// Segment is one correspondence between a cleaned range and an original
// range. Non-elided segments carry text verbatim, so positions inside them
// shift by a constant delta. Elided segments stand for removed or replaced
// tag content; any position inside one resolves to the start of its original
// range.
type Segment struct {
	Cleaned  source.Span
	Original source.Span
	Elided   bool
}

// Snapshot is the cleaned view of one document version together with the
// mapping table back to the original text. A snapshot is immutable once
// built; an edit produces a fresh snapshot rather than patching this one.
type Snapshot struct {
	Original string
	Cleaned  string
	Format   Format

	// Segments is ordered and covers both texts completely, with no gaps on
	// either side.
	Segments []Segment

	// TokenSpans lists every tag region of the original text in order.
	TokenSpans []source.Span

	file     source.FileID
	origIdx  *source.LineIndex
	cleanIdx *source.LineIndex
}

// Direction selects which way a mapping query runs.
type Direction uint8

const (
	// CleanedToOriginal remaps delegated-linter findings onto the document.
	CleanedToOriginal Direction = iota
	// OriginalToCleaned carries document positions into the cleaned view.
	OriginalToCleaned
)

// File returns the document identity stamped on mapped spans.
func (s *Snapshot) File() source.FileID { return s.file }

// OriginalIndex returns the line table for the original text.
func (s *Snapshot) OriginalIndex() *source.LineIndex { return s.origIdx }

// CleanedIndex returns the line table for the cleaned text.
func (s *Snapshot) CleanedIndex() *source.LineIndex { return s.cleanIdx }

// ToOriginal maps a byte offset in the cleaned text onto the original text.
func (s *Snapshot) ToOriginal(off uint32) uint32 {
	return s.mapOff(off, CleanedToOriginal)
}

// ToCleaned maps a byte offset in the original text onto the cleaned text.
func (s *Snapshot) ToCleaned(off uint32) uint32 {
	return s.mapOff(off, OriginalToCleaned)
}

// MapSpan remaps both ends of a span. The result never inverts: an end that
// lands before its start collapses onto the start.
func (s *Snapshot) MapSpan(sp source.Span, dir Direction) source.Span {
	start := s.mapOff(sp.Start, dir)
	end := s.mapOff(sp.End, dir)
	if end < start {
		end = start
	}
	return source.Span{File: s.file, Start: start, End: end}
}

// MapDiagnostic remaps the primary span and every note and fix span of d.
// The input diagnostic is left untouched.
func (s *Snapshot) MapDiagnostic(d diag.Diagnostic, dir Direction) diag.Diagnostic {
	d.Primary = s.MapSpan(d.Primary, dir)
	if len(d.Notes) > 0 {
		notes := make([]diag.Note, len(d.Notes))
		copy(notes, d.Notes)
		for i := range notes {
			notes[i].Span = s.MapSpan(notes[i].Span, dir)
		}
		d.Notes = notes
	}
	if len(d.Fixes) > 0 {
		fixes := make([]diag.Fix, len(d.Fixes))
		copy(fixes, d.Fixes)
		for i := range fixes {
			edits := make([]diag.FixEdit, len(fixes[i].Edits))
			copy(edits, fixes[i].Edits)
			for j := range edits {
				edits[j].Span = s.MapSpan(edits[j].Span, dir)
			}
			fixes[i].Edits = edits
		}
		d.Fixes = fixes
	}
	return d
}

// side returns the query span and the answer span of g for one direction.
func (g Segment) side(dir Direction) (from, to source.Span) {
	if dir == CleanedToOriginal {
		return g.Cleaned, g.Original
	}
	return g.Original, g.Cleaned
}

func (s *Snapshot) mapOff(off uint32, dir Direction) uint32 {
	segs := s.Segments
	if len(segs) == 0 {
		return 0
	}

	// The last segment whose query span starts at or before off is the one
	// that holds it; empty spans hold nothing, so ties resolve forward.
	i := sort.Search(len(segs), func(i int) bool {
		from, _ := segs[i].side(dir)
		return from.Start > off
	})
	if i == 0 {
		_, to := segs[0].side(dir)
		return to.Start
	}

	from, to := segs[i-1].side(dir)
	if segs[i-1].Elided {
		return to.Start
	}
	if off >= from.End {
		return to.End
	}
	return to.Start + (off - from.Start)
}
