package lexer

import (
	"bytes"
	"fmt"

	"fortio.org/safecast"

	"weft/internal/diag"
	"weft/internal/source"
	"weft/internal/token"
)

// Options configures one tokenize run.
type Options struct {
	Config   token.DelimiterConfig
	Reporter diag.Reporter // may be nil; findings are then dropped but scanning continues
}

// Tokenize splits the file into text and tag regions in a single pass.
// The result always partitions the content exactly: no gaps, no overlaps,
// and delimiter-free input (including empty input) yields one Text token
// spanning the whole file.
//
// An unterminated tag produces one UNCLOSED_BLOCK diagnostic anchored at the
// opening marker; the marker folds back into the surrounding text and
// scanning resumes right after it, so later tags still match.
func Tokenize(file *source.File, opts Options) []token.Token {
	content := file.Content
	size, err := safecast.Conv[uint32](len(content))
	if err != nil {
		panic(fmt.Errorf("file content overflow: %w", err))
	}

	if err := opts.Config.Validate(); err != nil {
		report(opts.Reporter, diag.LexInvalidDelimiters, source.Span{File: file.ID, Start: 0, End: 0},
			fmt.Sprintf("delimiter configuration rejected: %v", err))
		return []token.Token{textToken(file, 0, size)}
	}
	m := compiledMatcher(opts.Config)

	toks := make([]token.Token, 0, 8)
	textStart := uint32(0)
	pos := uint32(0)

	for pos < size {
		if !m.first[content[pos]] {
			pos++
			continue
		}
		o, ok := m.matchAt(content, pos)
		if !ok {
			pos++
			continue
		}

		tagStart := pos
		innerStart := tagStart + uint32(len(o.open))
		trimLeft := false
		if innerStart < size && content[innerStart] == m.trim {
			trimLeft = true
			innerStart++
		}

		closeIdx, found := find(content, innerStart, o.close)
		if !found {
			report(opts.Reporter, diag.LexUnclosedBlock,
				source.Span{File: file.ID, Start: tagStart, End: innerStart},
				fmt.Sprintf("%s tag is never closed; expected %q before end of file", o.kind, o.close))
			pos = innerStart
			continue
		}

		if tagStart > textStart {
			toks = append(toks, textToken(file, textStart, tagStart))
		}

		innerEnd := closeIdx
		trimRight := false
		if innerEnd > innerStart && content[innerEnd-1] == m.trim {
			trimRight = true
			innerEnd--
		}
		tagEnd := closeIdx + uint32(len(o.close))
		toks = append(toks, token.Token{
			Kind:      o.kind,
			Span:      source.Span{File: file.ID, Start: tagStart, End: tagEnd},
			Inner:     source.Span{File: file.ID, Start: innerStart, End: innerEnd},
			Raw:       string(content[innerStart:innerEnd]),
			TrimLeft:  trimLeft,
			TrimRight: trimRight,
		})
		pos = tagEnd
		textStart = tagEnd
	}

	if textStart < size || len(toks) == 0 {
		toks = append(toks, textToken(file, textStart, size))
	}
	return toks
}

func textToken(file *source.File, start, end uint32) token.Token {
	sp := source.Span{File: file.ID, Start: start, End: end}
	return token.Token{
		Kind:  token.Text,
		Span:  sp,
		Inner: sp,
		Raw:   string(file.Content[start:end]),
	}
}

// find locates needle in content at or after from.
func find(content []byte, from uint32, needle string) (uint32, bool) {
	if int(from) >= len(content) {
		return 0, false
	}
	idx := bytes.Index(content[from:], []byte(needle))
	if idx < 0 {
		return 0, false
	}
	return from + uint32(idx), true
}

func report(r diag.Reporter, code diag.Code, sp source.Span, msg string) {
	if r != nil {
		r.Report(code, diag.SevError, sp, msg, nil, nil)
	}
}
