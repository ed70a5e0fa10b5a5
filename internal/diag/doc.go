// Package diag defines the canonical diagnostic model shared by all pipeline
// phases.
//
// # Purpose
//
//   - Provide deterministic, serialisable data structures that capture
//     findings produced by the tokenizer, parser, type checker, projection
//     layer, and delegated linters.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to concrete storage or formatting layers.
//   - Model fix suggestions as structured edits the CLI or an editor can
//     materialise.
//
// # Scope
//
// Package diag performs no formatting, IO, or CLI integration. Rendering
// lives in internal/diagfmt; orchestration lives in the driver and session
// layers.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – four-level enum (Hint, Info, Warning, Error).
//   - Code – compact numeric identifier with a stable canonical name
//     (see codes.go); the name is what suppression directives and external
//     tools match on.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary span – the canonical source.Span pointing at the issue. Once a
//     diagnostic crosses the projection boundary its span is always in
//     original template coordinates.
//   - Source – producer tag; empty or "weft" marks the engine itself,
//     anything else names a delegated linter.
//   - Notes – optional secondary spans/messages for additional context.
//   - Fixes – optional Fix records describing how to address the problem.
//
// Notes should be used sparingly: each note must add new context (e.g.
// "declared here") rather than repeating the diagnostic message.
//
// # Emitting diagnostics
//
// Phases use a diag.Reporter to decouple emission from storage. Producers
// either call Reporter.Report directly or chain a ReportBuilder via
// ReportError/ReportWarning/ReportInfo with WithNote/WithFix before Emit.
// BagReporter aggregates into a Bag, which supports sorting, merging,
// deduplication, and suppression filtering.
package diag
