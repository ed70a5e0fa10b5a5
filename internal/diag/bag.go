package diag

import (
	"sort"

	"weft/internal/source"
)

type Bag struct {
	items []Diagnostic
	max   uint16
}

func NewBag(max int) *Bag {
	return &Bag{
		items: make([]Diagnostic, 0, max),
		max:   uint16(max),
	}
}

// Add appends a diagnostic unless the bag limit is reached.
// Returns false when the diagnostic was dropped.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= int(b.max) {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() uint16 {
	return b.max
}

// HasErrors reports whether at least one diagnostic has Severity >= Error.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether at least one diagnostic has Severity >= Warning.
func (b *Bag) HasWarnings() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevWarning {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the diagnostics backed by the bag's own array.
// Callers must not modify the returned slice.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends diagnostics from another bag, growing the limit when needed.
func (b *Bag) Merge(other *Bag) {
	newTotal := len(b.items) + len(other.items)
	if uint16(newTotal) > b.max {
		b.max = uint16(newTotal)
	}
	b.items = append(b.items, other.items...)
}

// Sort orders diagnostics by file, start, end, severity (desc), code, source
// for a stable and deterministic output order.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Source < dj.Source
	})
}

// Filter keeps only the diagnostics for which keep returns true.
func (b *Bag) Filter(keep func(*Diagnostic) bool) {
	out := b.items[:0]
	for i := range b.items {
		if keep(&b.items[i]) {
			out = append(out, b.items[i])
		}
	}
	b.items = out
}

// Transform replaces each diagnostic with fn's result. Returning nil drops
// the entry. Callers that change ordering fields should re-Sort afterwards.
func (b *Bag) Transform(fn func(*Diagnostic) *Diagnostic) {
	out := b.items[:0]
	for i := range b.items {
		if d := fn(&b.items[i]); d != nil {
			out = append(out, *d)
		}
	}
	b.items = out
}

// Suppress drops diagnostics covered by the given suppression directives.
func (b *Bag) Suppress(sups []Suppression) {
	b.items = ApplySuppressions(b.items, sups)
}

// Dedup collapses duplicates. Exact duplicates (source, code, span, message)
// fold to one entry. When an engine diagnostic and a delegated one agree on
// span and message, the engine entry wins regardless of order.
func (b *Bag) Dedup() {
	type exactKey struct {
		src  string
		code Code
		span source.Span
		msg  string
	}
	type locKey struct {
		span source.Span
		msg  string
	}

	engineAt := make(map[locKey]bool)
	for _, d := range b.items {
		if d.IsEngine() {
			engineAt[locKey{d.Primary, d.Message}] = true
		}
	}

	seen := make(map[exactKey]bool, len(b.items))
	out := make([]Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		key := exactKey{d.Source, d.Code, d.Primary, d.Message}
		if seen[key] {
			continue
		}
		seen[key] = true
		if !d.IsEngine() && engineAt[locKey{d.Primary, d.Message}] {
			continue
		}
		out = append(out, d)
	}
	b.items = out
}
