// Package fix applies the suggested edits attached to diagnostics back to
// the files that produced them.
//
// Edits are expressed in original byte offsets. Accepted edits for a file
// are spliced from the highest offset down, so earlier offsets never shift
// and no delta bookkeeping is needed. Fixes whose edits would overlap an
// already accepted edit are skipped, never merged.
package fix

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"weft/internal/diag"
	"weft/internal/source"
)

// Options control how Apply treats the filesystem.
type Options struct {
	// DryRun computes the rewritten contents without writing anything.
	DryRun bool
	// Backup writes the previous content to path.bak before rewriting.
	Backup bool
}

// Applied records one fix that made it into a file.
type Applied struct {
	Path  string
	Title string
	Edits int
}

// Skipped records one fix that was passed over and why.
type Skipped struct {
	Path   string
	Title  string
	Reason string
}

// Change is the full rewritten content of one file.
type Change struct {
	Path    string
	Content []byte
	Edits   int
}

// Result summarizes an Apply run.
type Result struct {
	Applied []Applied
	Skipped []Skipped
	Changes []Change
}

// ErrNoFixes reports that none of the diagnostics carried a fix.
var ErrNoFixes = errors.New("no applicable fixes")

type candidate struct {
	fix   diag.Fix
	path  string
	start uint32
	end   uint32
}

// Apply gathers every fix in diags, orders them deterministically, skips
// the ones that conflict, and rewrites the affected files. Spans must
// refer to files registered in fileSet by the run that produced the
// diagnostics. With Options.DryRun the rewritten contents come back in
// Result.Changes and the filesystem is left alone.
func Apply(fileSet *source.FileSet, diags []diag.Diagnostic, opts Options) (*Result, error) {
	res := &Result{}

	cands := gather(fileSet, diags)
	if len(cands) == 0 {
		return res, ErrNoFixes
	}

	accepted := make(map[source.FileID][]diag.FixEdit)
	for _, cand := range cands {
		if reason := admissible(fileSet, cand.fix, accepted); reason != "" {
			res.Skipped = append(res.Skipped, Skipped{Path: cand.path, Title: cand.fix.Title, Reason: reason})
			continue
		}
		for _, e := range cand.fix.Edits {
			accepted[e.Span.File] = append(accepted[e.Span.File], e)
		}
		res.Applied = append(res.Applied, Applied{Path: cand.path, Title: cand.fix.Title, Edits: len(cand.fix.Edits)})
	}
	if len(accepted) == 0 {
		return res, nil // every fix was skipped; the reasons tell the story
	}

	ids := make([]source.FileID, 0, len(accepted))
	for id := range accepted {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return fileSet.Get(ids[i]).Path < fileSet.Get(ids[j]).Path
	})

	for _, id := range ids {
		f := fileSet.Get(id)
		edits := accepted[id]
		content := splice(f.Content, edits)
		res.Changes = append(res.Changes, Change{Path: f.Path, Content: content, Edits: len(edits)})

		if opts.DryRun {
			continue
		}
		if opts.Backup {
			if err := os.WriteFile(f.Path+".bak", f.Content, 0o644); err != nil {
				return res, fmt.Errorf("backup %s: %w", f.Path, err)
			}
		}
		if err := os.WriteFile(f.Path, content, 0o644); err != nil {
			return res, fmt.Errorf("write %s: %w", f.Path, err)
		}
	}
	return res, nil
}

// gather flattens diagnostics into an ordered list of fix candidates.
// Order decides who wins a conflict: by file, then position, then title,
// so reruns over the same diagnostics pick the same winners.
func gather(fileSet *source.FileSet, diags []diag.Diagnostic) []candidate {
	var cands []candidate
	for _, d := range diags {
		for _, f := range d.Fixes {
			if len(f.Edits) == 0 {
				continue
			}
			c := candidate{fix: f}
			c.start, c.end = f.Edits[0].Span.Start, f.Edits[0].Span.End
			for _, e := range f.Edits {
				if e.Span.Start < c.start {
					c.start = e.Span.Start
				}
				if e.Span.End > c.end {
					c.end = e.Span.End
				}
			}
			if file := fileFor(fileSet, f.Edits[0].Span.File); file != nil {
				c.path = file.Path
			}
			cands = append(cands, c)
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.path != b.path {
			return a.path < b.path
		}
		if a.start != b.start {
			return a.start < b.start
		}
		if a.end != b.end {
			return a.end < b.end
		}
		return a.fix.Title < b.fix.Title
	})
	return cands
}

// admissible validates every edit of one fix against the file set and the
// edits accepted so far. An empty reason means the fix can apply.
func admissible(fileSet *source.FileSet, f diag.Fix, accepted map[source.FileID][]diag.FixEdit) string {
	for i, e := range f.Edits {
		file := fileFor(fileSet, e.Span.File)
		switch {
		case file == nil:
			return "unknown source file"
		case file.Flags&source.FileVirtual != 0:
			return "virtual file"
		case e.Span.End < e.Span.Start || int(e.Span.End) > len(file.Content):
			return "edit out of bounds"
		}
		for _, prev := range accepted[e.Span.File] {
			if prev.Span == e.Span && prev.NewText == e.NewText {
				return "duplicate of an earlier fix"
			}
			if spansConflict(prev.Span, e.Span) {
				return "conflicts with an earlier fix"
			}
		}
		for _, other := range f.Edits[i+1:] {
			if spansConflict(e.Span, other.Span) {
				return "fix edits overlap"
			}
		}
	}
	return ""
}

// spansConflict reports whether two edits cannot coexist. Two insertions
// at the same point count as a conflict: their order would be arbitrary.
func spansConflict(a, b source.Span) bool {
	if a.File != b.File {
		return false
	}
	if a.Start < b.End && b.Start < a.End {
		return true
	}
	return a.Start == b.Start && a.Start == a.End && b.Start == b.End
}

// splice applies edits to a copy of content, highest offset first. When an
// insertion shares its start with a wider edit the wider one goes first,
// keeping the insertion in front of the replacement text.
func splice(content []byte, edits []diag.FixEdit) []byte {
	ordered := append([]diag.FixEdit(nil), edits...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Span.Start != ordered[j].Span.Start {
			return ordered[i].Span.Start > ordered[j].Span.Start
		}
		return ordered[i].Span.End > ordered[j].Span.End
	})
	out := append([]byte(nil), content...)
	for _, e := range ordered {
		rest := append([]byte(e.NewText), out[e.Span.End:]...)
		out = append(out[:e.Span.Start], rest...)
	}
	return out
}

// fileFor is a panic-safe FileSet.Get: spans from a stale or foreign run
// resolve to nil instead of an index panic.
func fileFor(fileSet *source.FileSet, id source.FileID) (f *source.File) {
	defer func() {
		if recover() != nil {
			f = nil
		}
	}()
	return fileSet.Get(id)
}
