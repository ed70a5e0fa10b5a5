// Package schema models the value shapes weft documents are checked
// against. A schema is loaded from a JSON or YAML document (or an inline
// @schema comment), compiled once into a Type tree plus a definitions
// table, and cached by path. Reloading happens only through explicit
// invalidation, normally driven by a filesystem watcher on the schema
// file itself; edits to the templated document never invalidate.
package schema

import "fmt"

// Origin records where a schema came from, in resolution order: an inline
// directive beats the workspace binding beats a sidecar file.
type Origin uint8

const (
	OriginUnknown Origin = iota
	OriginInline
	OriginWorkspace
	OriginSidecar
)

var originNames = [...]string{
	OriginUnknown:   "unknown",
	OriginInline:    "inline",
	OriginWorkspace: "workspace",
	OriginSidecar:   "sidecar",
}

func (o Origin) String() string {
	if int(o) < len(originNames) {
		return originNames[o]
	}
	return "unknown"
}

// Schema is a compiled schema document.
type Schema struct {
	Root *Type
	Refs map[string]*Type // definitions table, keyed by bare name

	// Fingerprint is the hex sha256 of the source document and keys the
	// disk cache.
	Fingerprint string
	Origin      Origin
	Path        string // source file path; empty for inline schemas
}

// RefError reports a reference that cannot be chased to a concrete type,
// either because the name is unknown or because the chain loops.
type RefError struct {
	Ref   string
	Cycle bool
}

func (e *RefError) Error() string {
	if e.Cycle {
		return fmt.Sprintf("reference cycle through %q", e.Ref)
	}
	return fmt.Sprintf("unresolved reference %q", e.Ref)
}

// Resolve chases a Reference to its concrete type. Unknown names and
// reference cycles fail with a RefError; any other type resolves to itself.
func (s *Schema) Resolve(t *Type) (*Type, error) {
	if t == nil || t.Kind != Reference {
		return t, nil
	}
	seen := make(map[string]bool)
	for t != nil && t.Kind == Reference {
		if seen[t.Ref] {
			return nil, &RefError{Ref: t.Ref, Cycle: true}
		}
		seen[t.Ref] = true
		next, ok := s.Refs[t.Ref]
		if !ok {
			return nil, &RefError{Ref: t.Ref}
		}
		t = next
	}
	return t, nil
}
