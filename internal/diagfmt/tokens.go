package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"

	"weft/internal/source"
	"weft/internal/token"
)

// TokenOutput is one region token in JSON form. Inner is the span of the
// content between the delimiters; for text regions it equals Span.
type TokenOutput struct {
	Kind      string      `json:"kind"`
	Raw       string      `json:"raw"`
	Span      source.Span `json:"span"`
	Inner     source.Span `json:"inner"`
	TrimLeft  bool        `json:"trim_left,omitempty"`
	TrimRight bool        `json:"trim_right,omitempty"`
}

// FormatTokensPretty lists region tokens one per line with 1-based
// positions. Long raw text is clipped.
func FormatTokensPretty(w io.Writer, tokens []token.Token, fs *source.FileSet) error {
	for i, tok := range tokens {
		start, end := fs.Resolve(tok.Span)

		fmt.Fprintf(w, "%3d: %-10s %q at %d:%d-%d:%d",
			i+1, tok.Kind.String(), clipRaw(tok.Raw, 48),
			start.Line+1, start.Col+1, end.Line+1, end.Col+1)

		switch {
		case tok.TrimLeft && tok.TrimRight:
			io.WriteString(w, " (trim both)")
		case tok.TrimLeft:
			io.WriteString(w, " (trim left)")
		case tok.TrimRight:
			io.WriteString(w, " (trim right)")
		}
		fmt.Fprintln(w)
	}
	return nil
}

// FormatTokensJSON writes region tokens as an indented JSON array.
func FormatTokensJSON(w io.Writer, tokens []token.Token) error {
	out := make([]TokenOutput, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, TokenOutput{
			Kind:      tok.Kind.String(),
			Raw:       tok.Raw,
			Span:      tok.Span,
			Inner:     tok.Inner,
			TrimLeft:  tok.TrimLeft,
			TrimRight: tok.TrimRight,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func clipRaw(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
