package diagfmt

import (
	"fmt"
	"strings"

	"weft/internal/diag"
	"weft/internal/source"
)

type editPreview struct {
	before []string
	after  []string
}

// buildEditPreview renders the lines touched by an edit before and after it
// is applied. The block covers whole lines, from the start of the edit's
// first line through the end of its last line including the trailing
// newline, so the splice can delete across line boundaries.
func buildEditPreview(fs *source.FileSet, edit diag.FixEdit) (p editPreview, err error) {
	defer func() {
		if recover() != nil {
			p = editPreview{}
			err = fmt.Errorf("edit span outside file bounds")
		}
	}()

	file := fs.Get(edit.Span.File)
	start, end := fs.Resolve(edit.Span)

	blockStart, _ := file.Lines.LineSpan(start.Line)
	_, blockEnd := file.Lines.LineSpan(end.Line)
	if blockEnd < uint32(len(file.Content)) {
		blockEnd++ // the newline belongs to the block
	}
	if blockEnd < blockStart {
		blockEnd = blockStart
	}

	if edit.Span.Start < blockStart || edit.Span.End > blockEnd || edit.Span.End < edit.Span.Start {
		return editPreview{}, fmt.Errorf("edit span %s outside its line block", edit.Span)
	}

	original := string(file.Content[blockStart:blockEnd])
	relStart := edit.Span.Start - blockStart
	relEnd := edit.Span.End - blockStart
	patched := original[:relStart] + edit.NewText + original[relEnd:]

	return editPreview{
		before: previewLines(original),
		after:  previewLines(patched),
	}, nil
}

func previewLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(text, "\n"), "\n")
}
