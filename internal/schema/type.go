package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Kind is the shape class of a schema type.
type Kind uint8

const (
	Invalid Kind = iota
	String
	Number
	Boolean
	Null
	Array
	Object
	Tuple
	Union
	Reference
)

var kindNames = [...]string{
	Invalid:   "invalid",
	String:    "string",
	Number:    "number",
	Boolean:   "boolean",
	Null:      "null",
	Array:     "array",
	Object:    "object",
	Tuple:     "tuple",
	Union:     "union",
	Reference: "reference",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Constraints restrict the values a type admits beyond its kind. The zero
// value constrains nothing.
type Constraints struct {
	MinLen  *int
	MaxLen  *int
	Pattern string
	Enum    []any

	// compiled form of Pattern; rebuilt after a disk-cache round trip
	re *regexp.Regexp
}

// Empty reports whether no constraint is set.
func (c *Constraints) Empty() bool {
	return c.MinLen == nil && c.MaxLen == nil && c.Pattern == "" && len(c.Enum) == 0
}

// Matches reports whether s satisfies the pattern. No pattern matches all.
func (c *Constraints) Matches(s string) bool {
	if c.re == nil {
		return true
	}
	return c.re.MatchString(s)
}

func (c *Constraints) compile() error {
	if c.Pattern == "" {
		c.re = nil
		return nil
	}
	re, err := regexp.Compile(c.Pattern)
	if err != nil {
		return fmt.Errorf("pattern %q: %w", c.Pattern, err)
	}
	c.re = re
	return nil
}

// Type is one node of a schema. The graph is a tree: references stay
// symbolic (a name into the definitions table) and are chased through
// Schema.Resolve, never inlined at load time.
type Type struct {
	Kind        Kind
	Elem        *Type   // Array element; nil means unchecked elements
	Fields      *Fields // Object members; nil means an open object
	Items       []*Type // Tuple members, in order
	Alts        []*Type // Union alternatives, in order
	Ref         string  // Reference target name in the definitions table
	Constraints Constraints
}

// String renders a compact human description for diagnostics.
func (t *Type) String() string {
	if t == nil {
		return "unknown"
	}
	switch t.Kind {
	case Array:
		if t.Elem == nil {
			return "array"
		}
		return "array<" + t.Elem.String() + ">"
	case Tuple:
		parts := make([]string, len(t.Items))
		for i, it := range t.Items {
			parts[i] = it.String()
		}
		return "tuple[" + strings.Join(parts, ", ") + "]"
	case Union:
		parts := make([]string, len(t.Alts))
		for i, a := range t.Alts {
			parts[i] = a.String()
		}
		return strings.Join(parts, " | ")
	case Reference:
		return "$" + t.Ref
	default:
		return t.Kind.String()
	}
}

// walk applies fn to t and every type beneath it. References are not
// chased, so the traversal stays within one definition and cannot cycle.
func (t *Type) walk(fn func(*Type) error) error {
	if t == nil {
		return nil
	}
	if err := fn(t); err != nil {
		return err
	}
	if err := t.Elem.walk(fn); err != nil {
		return err
	}
	for _, name := range t.Fields.Names() {
		ft, _ := t.Fields.Get(name)
		if err := ft.walk(fn); err != nil {
			return err
		}
	}
	for _, it := range t.Items {
		if err := it.walk(fn); err != nil {
			return err
		}
	}
	for _, alt := range t.Alts {
		if err := alt.walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Fields is an ordered name→type map; iteration follows document order so
// diagnostics stay deterministic.
type Fields struct {
	names []string
	types map[string]*Type
}

func NewFields() *Fields {
	return &Fields{types: make(map[string]*Type)}
}

// Set appends the field or replaces it in place, keeping its position.
func (f *Fields) Set(name string, t *Type) {
	if f.types == nil {
		f.types = make(map[string]*Type)
	}
	if _, ok := f.types[name]; !ok {
		f.names = append(f.names, name)
	}
	f.types[name] = t
}

func (f *Fields) Get(name string) (*Type, bool) {
	if f == nil {
		return nil, false
	}
	t, ok := f.types[name]
	return t, ok
}

func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}

// Names returns the field names in document order. The slice is shared;
// callers must not mutate it.
func (f *Fields) Names() []string {
	if f == nil {
		return nil
	}
	return f.names
}

// EncodeMsgpack keeps field order across the disk-cache round trip; a plain
// map would shuffle it.
func (f *Fields) EncodeMsgpack(enc *msgpack.Encoder) error {
	if f == nil {
		return enc.EncodeNil()
	}
	if err := enc.EncodeMapLen(len(f.names)); err != nil {
		return err
	}
	for _, name := range f.names {
		if err := enc.EncodeString(name); err != nil {
			return err
		}
		if err := enc.Encode(f.types[name]); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (f *Fields) DecodeMsgpack(dec *msgpack.Decoder) error {
	code, err := dec.PeekCode()
	if err != nil {
		return err
	}
	if code == msgpcode.Nil {
		return dec.DecodeNil()
	}
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		name, err := dec.DecodeString()
		if err != nil {
			return err
		}
		var t Type
		if err := dec.Decode(&t); err != nil {
			return err
		}
		f.Set(name, &t)
	}
	return nil
}

var (
	_ msgpack.CustomEncoder = (*Fields)(nil)
	_ msgpack.CustomDecoder = (*Fields)(nil)
)
