package gptcommands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Describer marks a struct type as schema-describable. Only marked structs may
// appear in command signatures; the returned text becomes the object schema's
// description. Unmarked structs fail registration with ErrUnsupportedType.
type Describer interface {
	SchemaDescription() string
}

// Kind enumerates the variants of a TypeSchema.
type Kind int

const (
	KindBoolean Kind = iota
	KindInteger
	KindNumber
	KindString
	KindArray
	KindMap
	KindObject
)

// String returns the JSON Schema type name for the kind.
func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindMap, KindObject:
		return "object"
	}
	return "unknown"
}

// TypeSchema is the structural schema of one Go type within the supported
// grammar: primitives, slices, string-keyed maps, pointers (nullable), and
// Describer structs. Schemas are acyclic; the mapper rejects recursive types.
type TypeSchema struct {
	Kind        Kind
	Nullable    bool          // set for pointer types; rendered as "type": [T, "null"]
	Elem        *TypeSchema   // Array items / Map values
	Fields      []ObjectField // Object fields, declaration order
	Required    []string      // Object fields that are not nullable
	Description string        // Describer text, or description struct tag
	Enum        []string      // enum struct tag values
}

// ObjectField is one named field of an Object schema.
type ObjectField struct {
	Name   string
	Schema *TypeSchema
}

var describerType = reflect.TypeOf((*Describer)(nil)).Elem()

// schemaForType maps a Go type into a TypeSchema. Pure and deterministic:
// the same type always yields a structurally equal schema. Types outside the
// supported grammar fail with ErrUnsupportedType (or ErrUnsupportedMapKey).
func schemaForType(t reflect.Type) (*TypeSchema, error) {
	return schemaFor(t, nil)
}

func schemaFor(t reflect.Type, seen []reflect.Type) (*TypeSchema, error) {
	switch t.Kind() {
	case reflect.Pointer:
		s, err := schemaFor(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		s.Nullable = true
		return s, nil
	case reflect.Bool:
		return &TypeSchema{Kind: KindBoolean}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &TypeSchema{Kind: KindInteger}, nil
	case reflect.Float32, reflect.Float64:
		return &TypeSchema{Kind: KindNumber}, nil
	case reflect.String:
		return &TypeSchema{Kind: KindString}, nil
	case reflect.Slice, reflect.Array:
		elem, err := schemaFor(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		return &TypeSchema{Kind: KindArray, Elem: elem}, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: %s (only string keys are supported)", ErrUnsupportedMapKey, t.Key())
		}
		elem, err := schemaFor(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		return &TypeSchema{Kind: KindMap, Elem: elem}, nil
	case reflect.Struct:
		return structSchema(t, seen)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

func structSchema(t reflect.Type, seen []reflect.Type) (*TypeSchema, error) {
	if !t.Implements(describerType) && !reflect.PointerTo(t).Implements(describerType) {
		return nil, fmt.Errorf("%w: %s (struct types must implement Describer)", ErrUnsupportedType, t)
	}
	for _, s := range seen {
		if s == t {
			return nil, fmt.Errorf("%w: %s (recursive types are not supported)", ErrUnsupportedType, t)
		}
	}
	seen = append(seen, t)

	out := &TypeSchema{Kind: KindObject, Description: describe(t)}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		fs, err := schemaFor(field.Type, seen)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if desc := field.Tag.Get("description"); desc != "" {
			fs.Description = desc
		}
		if enumStr := field.Tag.Get("enum"); enumStr != "" {
			parts := strings.Split(enumStr, ",")
			enum := make([]string, len(parts))
			for i, p := range parts {
				enum[i] = strings.TrimSpace(p)
			}
			fs.Enum = enum
		}
		out.Fields = append(out.Fields, ObjectField{Name: name, Schema: fs})
		if !fs.Nullable {
			out.Required = append(out.Required, name)
		}
	}
	return out, nil
}

// describe reads the Describer text off a zero value of t. Works for both
// value and pointer receivers.
func describe(t reflect.Type) string {
	v := reflect.New(t)
	if d, ok := v.Elem().Interface().(Describer); ok {
		return d.SchemaDescription()
	}
	if d, ok := v.Interface().(Describer); ok {
		return d.SchemaDescription()
	}
	return ""
}

// jsonMap renders the schema fragment in the wire shape expected by the chat
// API's tool-declaration protocol.
func (s *TypeSchema) jsonMap() map[string]any {
	m := map[string]any{"type": s.jsonType()}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		m["enum"] = append([]string(nil), s.Enum...)
	}
	switch s.Kind {
	case KindArray:
		m["items"] = s.Elem.jsonMap()
	case KindMap:
		m["additionalProperties"] = s.Elem.jsonMap()
	case KindObject:
		props := make(map[string]any, len(s.Fields))
		for _, f := range s.Fields {
			props[f.Name] = f.Schema.jsonMap()
		}
		m["properties"] = props
		m["required"] = append([]string{}, s.Required...)
	}
	return m
}

func (s *TypeSchema) jsonType() any {
	if s.Nullable {
		return []string{s.Kind.String(), "null"}
	}
	return s.Kind.String()
}

// compileSchema compiles a raw JSON Schema map into a validator. The map is
// not mutated; it is round-tripped through JSON so the compiler sees the same
// document the model is shown.
func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("command.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("command.json")
}

// validateAgainstSchema runs schema validation on a raw argument object.
// Failures become ClientError so the message can go back to the model.
func validateAgainstSchema(sch *jsonschema.Schema, argsJSON []byte) error {
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(argsJSON))
	if err != nil {
		return wrapJSONParseError(err)
	}
	if err := sch.Validate(v); err != nil {
		return &ClientError{Reason: err.Error(), Err: ErrValidation}
	}
	return nil
}
