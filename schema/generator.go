package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Generator derives a JSONSchema from a Go type using reflection.
type Generator struct {
	// visited tracks struct types on the current walk to break recursion
	visited map[reflect.Type]bool
}

// NewGenerator creates a new Generator instance.
func NewGenerator() *Generator {
	return &Generator{
		visited: make(map[reflect.Type]bool),
	}
}

// Generate builds a JSON Schema from a Go type. It supports structs, slices,
// maps, pointers and primitive types. Struct fields use the "json" tag for
// field names and the "jsonschema" tag for validation constraints.
//
// Supported jsonschema tag options:
//   - required: mark the field as required
//   - enum=a,b,c: allowed values
//   - minimum=0 / maximum=100: numeric bounds
//   - minLength=1 / maxLength=100: string length bounds
//   - pattern=^[a-z]+$: string regex pattern
//   - format=email: string format (email, uri, uuid, date-time)
//   - minItems=1 / maxItems=10: array size bounds
//   - description=...: field description
//   - default=...: default value
func (g *Generator) Generate(t reflect.Type) (*JSONSchema, error) {
	g.visited = make(map[reflect.Type]bool)
	return g.generate(t)
}

// GenerateFor builds a JSON Schema from a value's type.
func (g *Generator) GenerateFor(v any) (*JSONSchema, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot generate schema from nil value")
	}
	return g.Generate(reflect.TypeOf(v))
}

func (g *Generator) generate(t reflect.Type) (*JSONSchema, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot generate schema for nil type")
	}

	if t.Kind() == reflect.Ptr {
		return g.generate(t.Elem())
	}

	if g.visited[t] {
		// placeholder for recursive types
		return &JSONSchema{Type: TypeObject}, nil
	}

	switch t.Kind() {
	case reflect.String:
		return NewStringSchema(), nil

	case reflect.Bool:
		return NewBooleanSchema(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NewIntegerSchema(), nil

	case reflect.Float32, reflect.Float64:
		return NewNumberSchema(), nil

	case reflect.Slice, reflect.Array:
		elem, err := g.generate(t.Elem())
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for array element: %w", err)
		}
		return NewArraySchema(elem), nil

	case reflect.Map:
		value, err := g.generate(t.Elem())
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for map value: %w", err)
		}
		s := NewObjectSchema()
		s.AdditionalProperties = &AdditionalProperties{Allowed: true, Schema: value}
		return s, nil

	case reflect.Struct:
		return g.generateStruct(t)

	case reflect.Interface:
		// any type
		return &JSONSchema{}, nil

	default:
		return nil, fmt.Errorf("unsupported type: %s", t.Kind())
	}
}

func (g *Generator) generateStruct(t reflect.Type) (*JSONSchema, error) {
	g.visited[t] = true
	defer func() { g.visited[t] = false }()

	s := NewObjectSchema()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := jsonFieldName(field)
		if name == "-" {
			continue
		}

		fieldSchema, err := g.generate(field.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for field %s: %w", field.Name, err)
		}

		opts := parseTagOptions(field.Tag.Get("jsonschema"))
		applyTagOptions(fieldSchema, opts, field.Type)

		if _, required := opts["required"]; required {
			s.Required = append(s.Required, name)
		}

		s.Properties[name] = fieldSchema
	}

	return s, nil
}

// jsonFieldName extracts the field name from the json tag, falling back to
// the struct field name.
func jsonFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}
	name := strings.Split(tag, ",")[0]
	if name == "" {
		return field.Name
	}
	return name
}

// applyTagOptions applies jsonschema tag constraints to a field schema.
func applyTagOptions(s *JSONSchema, opts map[string]string, fieldType reflect.Type) {
	if desc, ok := opts["description"]; ok {
		s.Description = desc
	}
	if def, ok := opts["default"]; ok {
		s.Default = coerceDefault(def, fieldType)
	}
	if enumStr, ok := opts["enum"]; ok {
		values := strings.Split(enumStr, ",")
		s.Enum = make([]any, len(values))
		for i, v := range values {
			s.Enum[i] = strings.TrimSpace(v)
		}
	}
	if v, ok := atoiOpt(opts, "minLength"); ok {
		s.MinLength = v
	}
	if v, ok := atoiOpt(opts, "maxLength"); ok {
		s.MaxLength = v
	}
	if pattern, ok := opts["pattern"]; ok {
		s.Pattern = pattern
	}
	if format, ok := opts["format"]; ok {
		s.Format = StringFormat(format)
	}
	if min, ok := opts["minimum"]; ok {
		if v, err := strconv.ParseFloat(min, 64); err == nil {
			s.Minimum = &v
		}
	}
	if max, ok := opts["maximum"]; ok {
		if v, err := strconv.ParseFloat(max, 64); err == nil {
			s.Maximum = &v
		}
	}
	if v, ok := atoiOpt(opts, "minItems"); ok {
		s.MinItems = v
	}
	if v, ok := atoiOpt(opts, "maxItems"); ok {
		s.MaxItems = v
	}
}

func atoiOpt(opts map[string]string, key string) (*int, bool) {
	raw, ok := opts[key]
	if !ok {
		return nil, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// parseTagOptions splits a jsonschema tag into an option map. Commas inside
// an option value (enum lists) stay with that value: a comma only starts a
// new option when the following segment is a bare "required" or looks like a
// fresh key=value pair.
func parseTagOptions(tag string) map[string]string {
	options := make(map[string]string)
	if tag == "" {
		return options
	}

	for _, part := range splitTagParts(tag) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.Index(part, "="); idx > 0 {
			options[part[:idx]] = part[idx+1:]
		} else {
			options[part] = ""
		}
	}

	return options
}

func splitTagParts(tag string) []string {
	var parts []string
	var current strings.Builder
	inValue := false

	for i := 0; i < len(tag); i++ {
		ch := tag[i]
		switch {
		case ch == '=':
			inValue = true
			current.WriteByte(ch)
		case ch == ',' && !inValue:
			parts = append(parts, current.String())
			current.Reset()
		case ch == ',' && inValue:
			if startsNewOption(tag[i+1:]) {
				parts = append(parts, current.String())
				current.Reset()
				inValue = false
			} else {
				current.WriteByte(ch)
			}
		default:
			current.WriteByte(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// startsNewOption reports whether the remainder of the tag begins a new
// option rather than continuing a comma-separated value.
func startsNewOption(rest string) bool {
	segment := rest
	if idx := strings.Index(rest, ","); idx >= 0 {
		segment = rest[:idx]
	}
	segment = strings.TrimSpace(segment)

	if segment == "required" {
		return true
	}

	eq := strings.Index(segment, "=")
	if eq <= 0 {
		return false
	}
	for _, c := range segment[:eq] {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// coerceDefault converts a default value string to the field's native type.
func coerceDefault(value string, t reflect.Type) any {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return value
	case reflect.Bool:
		return value == "true"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			return v
		}
	case reflect.Float32, reflect.Float64:
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return value
}
