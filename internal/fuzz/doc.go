// Package fuzztests houses the fuzz harnesses for the early weft pipeline:
// raw bytes through the tokenizer, the parser, and the projection builder.
// The harnesses smoke test robustness, so no panic, no hang, and the
// segment table invariant that delegated linting depends on.
//
// Corpus generation, file writing, and CLI execution stay out of scope.
package fuzztests
