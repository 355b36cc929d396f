package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Validator validates JSON data against a JSONSchema.
type Validator interface {
	Validate(data []byte, schema *JSONSchema) error
}

// FieldError represents a single validation violation with its field path.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors aggregates every violation found in one validation pass.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var msgs []string
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// DefaultValidator is the default implementation of Validator. It walks the
// whole value and accumulates every violation instead of stopping at the
// first one.
type DefaultValidator struct {
	formatValidators map[StringFormat]func(string) bool
}

// NewValidator creates a new DefaultValidator with built-in format validators.
func NewValidator() *DefaultValidator {
	return &DefaultValidator{
		formatValidators: map[StringFormat]func(string) bool{
			FormatEmail: regexpValidator(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`),
			FormatURI:   regexpValidator(`^[a-zA-Z][a-zA-Z0-9+.-]*://`),
			FormatUUID:  regexpValidator(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`),
			FormatDateTime: regexpValidator(
				`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(.\d+)?(Z|[+-]\d{2}:\d{2})?$`),
		},
	}
}

func regexpValidator(pattern string) func(string) bool {
	re := regexp.MustCompile(pattern)
	return re.MatchString
}

// RegisterFormat registers a custom format validator.
func (v *DefaultValidator) RegisterFormat(format StringFormat, validator func(string) bool) {
	v.formatValidators[format] = validator
}

// Validate validates JSON data against a schema. The returned error, when
// non-nil, is always a *ValidationErrors carrying every violation found.
func (v *DefaultValidator) Validate(data []byte, schema *JSONSchema) error {
	if schema == nil {
		return nil
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &ValidationErrors{
			Errors: []FieldError{{Path: "", Message: fmt.Sprintf("invalid JSON: %v", err)}},
		}
	}

	var errs []FieldError
	v.validateValue(value, schema, "", &errs)

	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

func (v *DefaultValidator) validateValue(value any, schema *JSONSchema, path string, errs *[]FieldError) {
	if schema == nil {
		return
	}

	if len(schema.Enum) > 0 {
		found := false
		for _, enumVal := range schema.Enum {
			if v.equalValues(value, enumVal) {
				found = true
				break
			}
		}
		if !found {
			*errs = append(*errs, FieldError{
				Path:    path,
				Message: fmt.Sprintf("value must be one of: %v", schema.Enum),
			})
		}
	}

	switch schema.Type {
	case TypeString:
		v.validateString(value, schema, path, errs)
	case TypeNumber:
		v.validateNumber(value, schema, path, errs)
	case TypeInteger:
		v.validateInteger(value, schema, path, errs)
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected boolean, got %T", value)})
		}
	case TypeNull:
		if value != nil {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected null, got %T", value)})
		}
	case TypeObject:
		v.validateObject(value, schema, path, errs)
	case TypeArray:
		v.validateArray(value, schema, path, errs)
	}
}

func (v *DefaultValidator) validateString(value any, schema *JSONSchema, path string, errs *[]FieldError) {
	str, ok := value.(string)
	if !ok {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("expected string, got %T", value),
		})
		return
	}

	if schema.MinLength != nil && len(str) < *schema.MinLength {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("string length %d is less than minimum %d", len(str), *schema.MinLength),
		})
	}
	if schema.MaxLength != nil && len(str) > *schema.MaxLength {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("string length %d exceeds maximum %d", len(str), *schema.MaxLength),
		})
	}
	if schema.Pattern != "" {
		matched, err := regexp.MatchString(schema.Pattern, str)
		if err != nil {
			*errs = append(*errs, FieldError{
				Path:    path,
				Message: fmt.Sprintf("invalid pattern %q: %v", schema.Pattern, err),
			})
		} else if !matched {
			*errs = append(*errs, FieldError{
				Path:    path,
				Message: fmt.Sprintf("string does not match pattern %q", schema.Pattern),
			})
		}
	}
	if schema.Format != "" {
		if validator, ok := v.formatValidators[schema.Format]; ok && !validator(str) {
			*errs = append(*errs, FieldError{
				Path:    path,
				Message: fmt.Sprintf("string does not match format %q", schema.Format),
			})
		}
	}
}

func (v *DefaultValidator) validateNumber(value any, schema *JSONSchema, path string, errs *[]FieldError) {
	num, ok := toFloat64(value)
	if !ok {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("expected number, got %T", value),
		})
		return
	}
	v.validateNumericBounds(num, schema, path, errs)
}

func (v *DefaultValidator) validateInteger(value any, schema *JSONSchema, path string, errs *[]FieldError) {
	num, ok := toFloat64(value)
	if !ok {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("expected integer, got %T", value),
		})
		return
	}
	if num != math.Trunc(num) {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("expected integer, got %v", num),
		})
		return
	}
	v.validateNumericBounds(num, schema, path, errs)
}

func (v *DefaultValidator) validateNumericBounds(num float64, schema *JSONSchema, path string, errs *[]FieldError) {
	if schema.Minimum != nil && num < *schema.Minimum {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("value %v is less than minimum %v", num, *schema.Minimum),
		})
	}
	if schema.Maximum != nil && num > *schema.Maximum {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("value %v exceeds maximum %v", num, *schema.Maximum),
		})
	}
}

func (v *DefaultValidator) validateObject(value any, schema *JSONSchema, path string, errs *[]FieldError) {
	obj, ok := value.(map[string]any)
	if !ok {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("expected object, got %T", value),
		})
		return
	}

	for _, req := range schema.Required {
		val, exists := obj[req]
		if !exists {
			*errs = append(*errs, FieldError{
				Path:    joinPath(path, req),
				Message: "required field is missing",
			})
		} else if val == nil {
			*errs = append(*errs, FieldError{
				Path:    joinPath(path, req),
				Message: "required field must not be null",
			})
		}
	}

	for propName, propValue := range obj {
		propPath := joinPath(path, propName)

		if propSchema, ok := schema.Properties[propName]; ok {
			v.validateValue(propValue, propSchema, propPath, errs)
			continue
		}
		if ap := schema.AdditionalProperties; ap != nil {
			if !ap.Allowed && ap.Schema == nil {
				*errs = append(*errs, FieldError{
					Path:    propPath,
					Message: "additional property not allowed",
				})
			} else if ap.Schema != nil {
				v.validateValue(propValue, ap.Schema, propPath, errs)
			}
		}
	}
}

func (v *DefaultValidator) validateArray(value any, schema *JSONSchema, path string, errs *[]FieldError) {
	arr, ok := value.([]any)
	if !ok {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("expected array, got %T", value),
		})
		return
	}

	if schema.MinItems != nil && len(arr) < *schema.MinItems {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("array has %d items, minimum is %d", len(arr), *schema.MinItems),
		})
	}
	if schema.MaxItems != nil && len(arr) > *schema.MaxItems {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("array has %d items, maximum is %d", len(arr), *schema.MaxItems),
		})
	}

	if schema.Items != nil {
		for i, item := range arr {
			v.validateValue(item, schema.Items, fmt.Sprintf("%s[%d]", path, i), errs)
		}
	}
}

func toFloat64(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func (v *DefaultValidator) equalValues(a, b any) bool {
	aNum, aIsNum := toFloat64(a)
	bNum, bIsNum := toFloat64(b)
	if aIsNum && bIsNum {
		return aNum == bNum
	}

	aStr, aIsStr := a.(string)
	bStr, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return aStr == bStr
	}

	aBool, aIsBool := a.(bool)
	bBool, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		return aBool == bBool
	}

	if a == nil && b == nil {
		return true
	}

	aJSON, _ := json.Marshal(a)
	bJSON, _ := json.Marshal(b)
	return string(aJSON) == string(bJSON)
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}
