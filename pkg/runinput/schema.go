package runinput

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// FieldKind is the declared JSON kind of a schema field.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindInteger FieldKind = "integer"
	KindNumber  FieldKind = "number"
	KindBoolean FieldKind = "boolean"
	KindArray   FieldKind = "array"
	KindObject  FieldKind = "object"
	KindAny     FieldKind = "any"
)

// Validate checks if the FieldKind is a known enum value.
func (k FieldKind) Validate() error {
	switch k {
	case KindString, KindInteger, KindNumber, KindBoolean, KindArray, KindObject, KindAny:
		return nil
	default:
		return fmt.Errorf("unknown field kind: %q", k)
	}
}

// Field declares one member of a run input schema. A field with a default is
// never required. A Nullable field accepts null even when required.
type Field struct {
	Name       string
	Kind       FieldKind
	Required   bool
	Nullable   bool
	Default    any
	HasDefault bool
}

// Schema is an immutable, closed record descriptor: payloads may only carry
// declared fields.
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from explicit field declarations.
func NewSchema(name string, fields ...Field) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("schema name cannot be empty")
	}

	s := &Schema{
		name:   name,
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema '%s': field name cannot be empty", name)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("schema '%s': duplicate field '%s'", name, f.Name)
		}
		if f.Kind == "" {
			f.Kind = KindAny
		}
		if err := f.Kind.Validate(); err != nil {
			return nil, fmt.Errorf("schema '%s': field '%s': %w", name, f.Name, err)
		}
		if f.HasDefault {
			normalized, err := normalizeDefault(f)
			if err != nil {
				return nil, fmt.Errorf("schema '%s': %w", name, err)
			}
			f.Default = normalized
			f.Required = false
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}

	return s, nil
}

// Name returns the declared type name.
func (s *Schema) Name() string {
	return s.name
}

// Fields returns a copy of the field declarations in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// WithDefaults derives a new schema with the same name and fields whose
// defaults are overridden by the given values. Used to pre-seed forms.
func (s *Schema) WithDefaults(defaults map[string]any) (*Schema, error) {
	fields := s.Fields()
	for name, value := range defaults {
		i, ok := s.index[name]
		if !ok {
			return nil, &ValidationError{Schema: s.name, Problems: []FieldError{{Field: name, Message: "extra fields not permitted"}}}
		}
		fields[i].Default = value
		fields[i].HasDefault = true
	}
	return NewSchema(s.name, fields...)
}

// Document renders the schema as a JSON-schema shaped object. This is what
// gets stored under a keyset's schema key.
func (s *Schema) Document() map[string]any {
	properties := make(map[string]any, len(s.fields))
	required := []string{}
	order := make([]string, 0, len(s.fields))

	for _, f := range s.fields {
		prop := map[string]any{"title": fieldTitle(f.Name)}
		if f.Kind != KindAny {
			prop["type"] = string(f.Kind)
		}
		if f.HasDefault {
			prop["default"] = f.Default
		}
		if f.Nullable {
			prop["nullable"] = true
		}
		properties[f.Name] = prop
		order = append(order, f.Name)
		if f.Required {
			required = append(required, f.Name)
		}
	}

	return map[string]any{
		"title":                s.name,
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
		"x-field-order":        order,
	}
}

// MarshalJSON encodes the schema document.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Document())
}

type schemaDocument struct {
	Title      string                    `json:"title"`
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required"`
	Order      []string                  `json:"x-field-order"`
}

type schemaProperty struct {
	Type     string          `json:"type"`
	Nullable bool            `json:"nullable"`
	Default  json.RawMessage `json:"default"`
}

// ParseSchemaDocument reconstructs a schema from a stored document.
// Field order follows x-field-order when present, otherwise field names sorted.
func ParseSchemaDocument(data []byte) (*Schema, error) {
	var doc schemaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema document: %w", err)
	}

	required := make(map[string]bool, len(doc.Required))
	for _, name := range doc.Required {
		required[name] = true
	}

	order := doc.Order
	if len(order) != len(doc.Properties) {
		order = make([]string, 0, len(doc.Properties))
		for name := range doc.Properties {
			order = append(order, name)
		}
		sort.Strings(order)
	}

	fields := make([]Field, 0, len(order))
	for _, name := range order {
		prop, ok := doc.Properties[name]
		if !ok {
			return nil, fmt.Errorf("schema document lists unknown field '%s'", name)
		}
		f := Field{Name: name, Kind: FieldKind(prop.Type), Required: required[name], Nullable: prop.Nullable}
		if prop.Type == "" {
			f.Kind = KindAny
		}
		if len(prop.Default) > 0 {
			v, err := decodeJSON(prop.Default)
			if err != nil {
				return nil, fmt.Errorf("field '%s': invalid default: %w", name, err)
			}
			f.Default = v
			f.HasDefault = true
		}
		fields = append(fields, f)
	}

	return NewSchema(doc.Title, fields...)
}

// Validate checks a raw JSON payload against the schema and returns the
// payload as a map with defaults applied. Undeclared fields, missing required
// fields and kind mismatches are all reported in one *ValidationError.
func (s *Schema) Validate(raw []byte) (map[string]any, error) {
	decoded, err := decodeJSON(raw)
	if err != nil {
		return nil, &ValidationError{Schema: s.name, Problems: []FieldError{{Message: fmt.Sprintf("malformed JSON: %v", err)}}}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, &ValidationError{Schema: s.name, Problems: []FieldError{{Message: "expected a JSON object"}}}
	}

	var problems []FieldError

	extra := make([]string, 0)
	for name := range obj {
		if _, declared := s.index[name]; !declared {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		problems = append(problems, FieldError{Field: name, Message: "extra fields not permitted"})
	}

	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		v, present := obj[f.Name]
		switch {
		case !present && f.HasDefault:
			out[f.Name] = f.Default
		case !present && f.Required:
			problems = append(problems, FieldError{Field: f.Name, Message: "field required"})
		case !present:
		case v == nil && f.Required && !f.Nullable:
			problems = append(problems, FieldError{Field: f.Name, Message: "must not be null"})
		case v == nil:
			out[f.Name] = nil
		default:
			if msg := checkKind(f.Kind, v); msg != "" {
				problems = append(problems, FieldError{Field: f.Name, Message: msg})
				continue
			}
			out[f.Name] = v
		}
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Schema: s.name, Problems: problems}
	}
	return out, nil
}

func checkKind(kind FieldKind, v any) string {
	switch kind {
	case KindString:
		if _, ok := v.(string); !ok {
			return "expected string"
		}
	case KindInteger:
		n, ok := v.(json.Number)
		if !ok {
			return "expected integer"
		}
		if _, err := n.Int64(); err != nil {
			f, ferr := n.Float64()
			if ferr != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
				return "expected integer"
			}
		}
	case KindNumber:
		if _, ok := v.(json.Number); !ok {
			return "expected number"
		}
	case KindBoolean:
		if _, ok := v.(bool); !ok {
			return "expected boolean"
		}
	case KindArray:
		if _, ok := v.([]any); !ok {
			return "expected array"
		}
	case KindObject:
		if _, ok := v.(map[string]any); !ok {
			return "expected object"
		}
	}
	return ""
}

// normalizeDefault round-trips a default through JSON so Go literals (ints,
// structs, slices) compare and validate like decoded payload values.
func normalizeDefault(f Field) (any, error) {
	if f.Default == nil {
		return nil, nil
	}
	data, err := json.Marshal(f.Default)
	if err != nil {
		return nil, fmt.Errorf("field '%s': default is not JSON encodable: %w", f.Name, err)
	}
	v, err := decodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("field '%s': %w", f.Name, err)
	}
	if msg := checkKind(f.Kind, v); msg != "" {
		return nil, fmt.Errorf("field '%s': default: %s", f.Name, msg)
	}
	return v, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

func fieldTitle(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// SchemaOf builds a schema from the exported fields of struct type T using
// their json tags. Pointer fields and fields tagged omitempty are optional.
// Slice and map fields are nullable, since encoding/json writes nil as null.
func SchemaOf[T any](name string) (*Schema, error) {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema '%s': %s is not a struct; declare fields with NewSchema", name, t)
	}

	fields, err := structFields(t)
	if err != nil {
		return nil, fmt.Errorf("schema '%s': %w", name, err)
	}
	return NewSchema(name, fields...)
}

func structFields(t reflect.Type) ([]Field, error) {
	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		jsonName, opts, _ := strings.Cut(tag, ",")

		// Embedded structs without a json name are flattened, as encoding/json does
		if sf.Anonymous && jsonName == "" {
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				inner, err := structFields(et)
				if err != nil {
					return nil, err
				}
				fields = append(fields, inner...)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		if jsonName == "" {
			jsonName = sf.Name
		}
		optional := strings.Contains(opts, "omitempty") || strings.Contains(opts, "omitzero")

		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			optional = true
			ft = ft.Elem()
		}

		fields = append(fields, Field{
			Name:     jsonName,
			Kind:     kindOf(ft),
			Required: !optional,
			Nullable: ft.Kind() == reflect.Slice || ft.Kind() == reflect.Map || ft.Kind() == reflect.Interface,
		})
	}
	return fields, nil
}

func kindOf(t reflect.Type) FieldKind {
	if t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType) {
		return KindString
	}
	switch t.Kind() {
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInteger
	case reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindString
		}
		return KindArray
	case reflect.Array:
		return KindArray
	case reflect.Map, reflect.Struct:
		return KindObject
	default:
		return KindAny
	}
}
