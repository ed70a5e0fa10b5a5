// Package parser builds the typed template tree from the region token
// stream.
//
// Statement and Expression regions are scanned into tag tokens exactly once;
// conditions, loop headers, and filter chains are built from those tokens
// directly, never by re-matching the raw tag text. `elif` and the two-token
// `else if` form produce identical structure.
//
// Recovery is local. A malformed tag is reported with its exact range and
// the parser resynchronizes at the next region boundary, so independent
// errors later in the document still surface in one pass. A block whose
// header fails to parse still owns its body (with a nil condition), which
// keeps diagnostics inside the body reachable. A block left open at end of
// input reports one UNCLOSED_BLOCK at its opening tag and the open subtree
// is dropped.
package parser
