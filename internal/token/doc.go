// Package token defines the lexical vocabulary of weft templates.
// Invariants:
//   - Region tokens partition the document exactly: no gaps, no overlaps,
//     and their spans concatenate back to the original text.
//   - Token.Raw is the inner content of a delimited region, without the
//     delimiters and without trim markers; Token.Inner is its absolute span.
//     For Text regions Raw is the text itself and Inner equals Span.
//   - Tag tokens exist only inside Statement and Expression regions; their
//     spans are absolute document offsets, not tag-relative ones.
//   - DelimiterConfig is a value type and compares with ==; caches key on it.
package token
