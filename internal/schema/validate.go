package schema

import (
	"fmt"
	"unicode/utf8"
)

// Validate checks a decoded host value (the map/slice/scalar shapes
// encoding/json produces) against a type. The first violation is returned
// as an error; nil types accept everything. Object fields absent from the
// value are not violations, and neither are undeclared extras; presence
// requirements belong to the host format, not the overlay.
func (s *Schema) Validate(v any, t *Type) error {
	if t == nil {
		return nil
	}
	t, err := s.Resolve(t)
	if err != nil {
		return err
	}

	switch t.Kind {
	case String:
		str, ok := v.(string)
		if !ok {
			return kindError(t, v)
		}
		if c := &t.Constraints; !c.Empty() {
			if n := utf8.RuneCountInString(str); c.MinLen != nil && n < *c.MinLen {
				return fmt.Errorf("%q is shorter than the minimum length %d", str, *c.MinLen)
			} else if c.MaxLen != nil && n > *c.MaxLen {
				return fmt.Errorf("%q is longer than the maximum length %d", str, *c.MaxLen)
			}
			if !c.Matches(str) {
				return fmt.Errorf("%q does not match pattern %q", str, c.Pattern)
			}
		}
		return enumCheck(t, v)
	case Number:
		if _, ok := normalizeValue(v).(float64); !ok {
			return kindError(t, v)
		}
		return enumCheck(t, v)
	case Boolean:
		if _, ok := v.(bool); !ok {
			return kindError(t, v)
		}
		return nil
	case Null:
		if v != nil {
			return kindError(t, v)
		}
		return nil
	case Array:
		items, ok := v.([]any)
		if !ok {
			return kindError(t, v)
		}
		for i, item := range items {
			if err := s.Validate(item, t.Elem); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	case Tuple:
		items, ok := v.([]any)
		if !ok {
			return kindError(t, v)
		}
		if len(items) != len(t.Items) {
			return fmt.Errorf("expected %d elements, got %d", len(t.Items), len(items))
		}
		for i, item := range items {
			if err := s.Validate(item, t.Items[i]); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	case Object:
		obj, ok := v.(map[string]any)
		if !ok {
			return kindError(t, v)
		}
		for _, name := range t.Fields.Names() {
			fv, present := obj[name]
			if !present {
				continue
			}
			ft, _ := t.Fields.Get(name)
			if err := s.Validate(fv, ft); err != nil {
				return fmt.Errorf("field %q: %w", name, err)
			}
		}
		return nil
	case Union:
		for _, alt := range t.Alts {
			if s.Validate(v, alt) == nil {
				return nil
			}
		}
		return fmt.Errorf("%s does not admit %s", t, describeValue(v))
	}
	return nil
}

func enumCheck(t *Type, v any) error {
	enum := t.Constraints.Enum
	if len(enum) == 0 {
		return nil
	}
	nv := normalizeValue(v)
	for _, allowed := range enum {
		if nv == allowed {
			return nil
		}
	}
	return fmt.Errorf("%v is not among the allowed values %v", v, enum)
}

func kindError(t *Type, v any) error {
	return fmt.Errorf("expected %s, got %s", t, describeValue(v))
}

func describeValue(v any) string {
	switch normalizeValue(v).(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
