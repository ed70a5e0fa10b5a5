package schema

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	s, err := Parse([]byte(invoiceJSON), FormatJSON, OriginSidecar, "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	good := map[string]any{
		"id":    "INV-7",
		"total": 12.5,
		"paid":  true,
		"lines": []any{
			map[string]any{"sku": "ABC-1", "qty": float64(2)},
		},
		"status": "open",
	}
	if err := s.Validate(good, s.Root); err != nil {
		t.Fatalf("valid value rejected: %v", err)
	}

	cases := []struct {
		name  string
		value any
		frag  string
	}{
		{"wrong kind", []any{}, "expected object, got array"},
		{"pattern", map[string]any{"id": "nope"}, `does not match pattern`},
		{"enum", map[string]any{"status": "limbo"}, "allowed values"},
		{"nested", map[string]any{"lines": []any{map[string]any{"sku": "AB"}}}, "shorter than the minimum length"},
		{"element kind", map[string]any{"lines": []any{"oops"}}, "element 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Validate(tc.value, s.Root)
			if err == nil {
				t.Fatalf("expected violation containing %q", tc.frag)
			}
			if !strings.Contains(err.Error(), tc.frag) {
				t.Fatalf("error = %q, want fragment %q", err, tc.frag)
			}
		})
	}

	// Absent fields are not violations; presence belongs to the host format.
	if err := s.Validate(map[string]any{}, s.Root); err != nil {
		t.Fatalf("empty object rejected: %v", err)
	}
}

func TestValidate_UnionAndTuple(t *testing.T) {
	src := `{
	  "type": "object",
	  "properties": {
	    "pair": {"type": "array", "prefixItems": [{"type": "string"}, {"type": "number"}]},
	    "note": {"anyOf": [{"type": "string"}, {"type": "null"}]}
	  }
	}`
	s, err := Parse([]byte(src), FormatJSON, OriginInline, "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	ok := map[string]any{"pair": []any{"a", 1.0}, "note": nil}
	if err := s.Validate(ok, s.Root); err != nil {
		t.Fatalf("valid value rejected: %v", err)
	}

	if err := s.Validate(map[string]any{"pair": []any{"a"}}, s.Root); err == nil || !strings.Contains(err.Error(), "expected 2 elements") {
		t.Fatalf("tuple arity error = %v", err)
	}
	if err := s.Validate(map[string]any{"note": 7}, s.Root); err == nil || !strings.Contains(err.Error(), "does not admit") {
		t.Fatalf("union error = %v", err)
	}
}

func TestValidate_IntegersCountAsNumbers(t *testing.T) {
	s, err := Parse([]byte(`{"type": "number", "enum": [1, 2]}`), FormatJSON, OriginInline, "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := s.Validate(2, s.Root); err != nil {
		t.Fatalf("int value rejected: %v", err)
	}
	if err := s.Validate(3, s.Root); err == nil {
		t.Fatalf("out-of-enum int accepted")
	}
}

func TestValidate_NilType(t *testing.T) {
	s := &Schema{}
	if err := s.Validate("anything", nil); err != nil {
		t.Fatalf("nil type must accept everything: %v", err)
	}
}
