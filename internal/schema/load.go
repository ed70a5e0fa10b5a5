package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the concrete syntax of a schema document.
type Format uint8

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatForPath picks the format from the file extension. Anything that is
// not .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

const refPrefix = "#/definitions/"

// rawType mirrors the schema document before compilation. The same struct
// serves both decoders.
type rawType struct {
	Type        string              `json:"type" yaml:"type"`
	Properties  *rawProps           `json:"properties" yaml:"properties"`
	Items       *rawType            `json:"items" yaml:"items"`
	PrefixItems []*rawType          `json:"prefixItems" yaml:"prefixItems"`
	AnyOf       []*rawType          `json:"anyOf" yaml:"anyOf"`
	Ref         string              `json:"$ref" yaml:"$ref"`
	Definitions map[string]*rawType `json:"definitions" yaml:"definitions"`
	MinLength   *int                `json:"minLength" yaml:"minLength"`
	MaxLength   *int                `json:"maxLength" yaml:"maxLength"`
	Pattern     string              `json:"pattern" yaml:"pattern"`
	Enum        []any               `json:"enum" yaml:"enum"`
}

// rawProps preserves property order, which the default map decoding of both
// codecs would lose.
type rawProps struct {
	names []string
	types map[string]*rawType
}

func (p *rawProps) add(name string, t *rawType) {
	if p.types == nil {
		p.types = make(map[string]*rawType)
	}
	if _, ok := p.types[name]; !ok {
		p.names = append(p.names, name)
	}
	p.types[name] = t
}

func (p *rawProps) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("properties must be an object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("property name must be a string, got %v", keyTok)
		}
		var rt rawType
		if err := dec.Decode(&rt); err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
		p.add(key, &rt)
	}
	_, err = dec.Token() // closing brace
	return err
}

func (p *rawProps) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("properties must be a mapping, got %s", yamlKindName(node.Kind))
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var rt rawType
		if err := node.Content[i+1].Decode(&rt); err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
		p.add(key, &rt)
	}
	return nil
}

func yamlKindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}

// Load reads and compiles a schema document from disk, dispatching on the
// file extension.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return Parse(data, FormatForPath(path), originForPath(path), path)
}

func originForPath(path string) Origin {
	for _, ext := range []string{".schema.json", ".schema.yaml", ".schema.yml"} {
		if strings.HasSuffix(path, ext) {
			return OriginSidecar
		}
	}
	return OriginWorkspace
}

// Parse compiles a schema document already in memory.
func Parse(data []byte, format Format, origin Origin, path string) (*Schema, error) {
	var raw rawType
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, loadError(path, err)
	}

	s := &Schema{
		Refs:        make(map[string]*Type),
		Fingerprint: Fingerprint(data),
		Origin:      origin,
		Path:        path,
	}
	for name, def := range raw.Definitions {
		t, err := compileType(def, "definitions."+name)
		if err != nil {
			return nil, loadError(path, err)
		}
		s.Refs[name] = t
	}
	root, err := compileType(&raw, "root")
	if err != nil {
		return nil, loadError(path, err)
	}
	s.Root = root

	if err := checkRefs(s); err != nil {
		return nil, loadError(path, err)
	}
	return s, nil
}

func loadError(path string, err error) error {
	if path == "" {
		return fmt.Errorf("schema: %w", err)
	}
	return fmt.Errorf("schema %s: %w", path, err)
}

// compileType lowers one raw node. where names the node for error messages,
// as a dotted path from the root.
func compileType(raw *rawType, where string) (*Type, error) {
	if raw == nil {
		return nil, fmt.Errorf("%s: empty type", where)
	}
	if raw.Ref != "" {
		name, ok := strings.CutPrefix(raw.Ref, refPrefix)
		if !ok || name == "" {
			return nil, fmt.Errorf("%s: $ref must look like %q, got %q", where, refPrefix+"name", raw.Ref)
		}
		return &Type{Kind: Reference, Ref: name}, nil
	}
	if len(raw.AnyOf) > 0 {
		t := &Type{Kind: Union, Alts: make([]*Type, len(raw.AnyOf))}
		for i, alt := range raw.AnyOf {
			at, err := compileType(alt, fmt.Sprintf("%s.anyOf[%d]", where, i))
			if err != nil {
				return nil, err
			}
			t.Alts[i] = at
		}
		return t, nil
	}

	kind, err := kindFor(raw, where)
	if err != nil {
		return nil, err
	}
	t := &Type{Kind: kind}
	switch kind {
	case Object:
		if raw.Properties != nil {
			t.Fields = NewFields()
			for _, name := range raw.Properties.names {
				ft, err := compileType(raw.Properties.types[name], where+"."+name)
				if err != nil {
					return nil, err
				}
				t.Fields.Set(name, ft)
			}
		}
	case Tuple:
		t.Items = make([]*Type, len(raw.PrefixItems))
		for i, it := range raw.PrefixItems {
			et, err := compileType(it, fmt.Sprintf("%s[%d]", where, i))
			if err != nil {
				return nil, err
			}
			t.Items[i] = et
		}
	case Array:
		if raw.Items != nil {
			et, err := compileType(raw.Items, where+".items")
			if err != nil {
				return nil, err
			}
			t.Elem = et
		}
	}

	t.Constraints = Constraints{
		MinLen:  raw.MinLength,
		MaxLen:  raw.MaxLength,
		Pattern: raw.Pattern,
		Enum:    normalizeEnum(raw.Enum),
	}
	if err := t.Constraints.compile(); err != nil {
		return nil, fmt.Errorf("%s: %w", where, err)
	}
	return t, nil
}

func kindFor(raw *rawType, where string) (Kind, error) {
	switch raw.Type {
	case "string":
		return String, nil
	case "number", "integer":
		return Number, nil
	case "boolean":
		return Boolean, nil
	case "null":
		return Null, nil
	case "object":
		return Object, nil
	case "array":
		if len(raw.PrefixItems) > 0 {
			return Tuple, nil
		}
		return Array, nil
	case "":
		// Infer from structure so terse documents stay legal.
		switch {
		case raw.Properties != nil:
			return Object, nil
		case len(raw.PrefixItems) > 0:
			return Tuple, nil
		case raw.Items != nil:
			return Array, nil
		case len(raw.Enum) > 0:
			return enumKind(raw.Enum), nil
		}
		return Invalid, fmt.Errorf("%s: type is missing", where)
	}
	return Invalid, fmt.Errorf("%s: unknown type %q", where, raw.Type)
}

// enumKind picks the kind of a bare enum from its first value.
func enumKind(enum []any) Kind {
	switch normalizeValue(enum[0]).(type) {
	case string:
		return String
	case float64:
		return Number
	case bool:
		return Boolean
	default:
		return Null
	}
}

// checkRefs verifies every Reference in the schema resolves without cycling.
func checkRefs(s *Schema) error {
	check := func(t *Type) error {
		if t.Kind != Reference {
			return nil
		}
		_, err := s.Resolve(t)
		return err
	}
	if err := s.Root.walk(check); err != nil {
		return err
	}
	for _, def := range s.Refs {
		if err := def.walk(check); err != nil {
			return err
		}
	}
	return nil
}

func normalizeEnum(enum []any) []any {
	if len(enum) == 0 {
		return nil
	}
	out := make([]any, len(enum))
	for i, v := range enum {
		out[i] = normalizeValue(v)
	}
	return out
}

// normalizeValue folds the numeric types the codecs produce into float64 so
// enum comparison does not depend on which decoder ran.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return n.String()
		}
		return f
	default:
		return v
	}
}

// Fingerprint is the hex sha256 of a schema document's bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// InlinePrefix marks a comment region that carries the document's own
// schema, as in {# @schema {"type":"object", ...} #}.
const InlinePrefix = "@schema"

// FromComment compiles the inline schema carried by a comment body. The
// second result is false when the body does not start with the marker.
func FromComment(body string) (*Schema, bool, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(body), InlinePrefix)
	if !ok {
		return nil, false, nil
	}
	s, err := Parse([]byte(rest), FormatJSON, OriginInline, "")
	return s, true, err
}

// SidecarFor returns the schema file sitting next to a document, if one
// exists. For pages/invoice.json.weft the candidates are
// pages/invoice.json.schema.json and .schema.yaml, in that order.
func SidecarFor(docPath string) (string, bool) {
	host := strings.TrimSuffix(docPath, ".weft")
	for _, ext := range []string{".schema.json", ".schema.yaml", ".schema.yml"} {
		candidate := host + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
