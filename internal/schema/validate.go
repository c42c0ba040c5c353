package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopforge/commerce-api/internal/apperror"
)

// ParseSchema decodes a JSON schema document and validates it.
func ParseSchema(data []byte) (Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var candidate interface{}
	if err := dec.Decode(&candidate); err != nil {
		return Schema{}, apperror.New(apperror.KindSchemaInvalid, "", "schema must be valid JSON: %v", err)
	}
	return ValidateSchema(candidate)
}

// ValidateSchema checks a candidate schema and returns its typed form.
// The candidate is either decoded JSON (map[string]interface{}) or a Schema.
// Validation stops at the first violation.
func ValidateSchema(candidate interface{}) (Schema, error) {
	switch c := candidate.(type) {
	case Schema:
		return c, c.Validate()
	case *Schema:
		if c == nil {
			return Schema{}, schemaError("", "schema must be a valid object")
		}
		return *c, c.Validate()
	case map[string]interface{}:
		return validateRaw(c)
	default:
		return Schema{}, schemaError("", "schema must be a valid object")
	}
}

// Validate checks the invariants of an already typed schema.
func (s Schema) Validate() error {
	if s.Fields == nil {
		return schemaError("", "schema must contain a fields array")
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for i, f := range s.Fields {
		if err := checkField(i, f, seen); err != nil {
			return err
		}
	}
	return nil
}

func validateRaw(m map[string]interface{}) (Schema, error) {
	rawFields, ok := m["fields"].([]interface{})
	if !ok {
		return Schema{}, schemaError("", "schema must contain a fields array")
	}

	s := Schema{Fields: make([]FieldDefinition, 0, len(rawFields))}
	seen := make(map[string]struct{}, len(rawFields))

	for i, raw := range rawFields {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return Schema{}, schemaError(fieldRef(i, ""), "field %d must be an object", i+1)
		}

		f, shapeErr := decodeField(i, obj)
		if err := checkField(i, f, seen); err != nil {
			return Schema{}, err
		}
		if shapeErr != nil {
			return Schema{}, shapeErr
		}
		s.Fields = append(s.Fields, f)
	}

	return s, nil
}

// decodeField converts a generic field object. Wrongly typed key, label, type
// and options are left zero so checkField reports them in its own order;
// other shape problems are returned separately.
func decodeField(i int, obj map[string]interface{}) (FieldDefinition, error) {
	var f FieldDefinition
	f.Key, _ = obj["key"].(string)
	f.Label, _ = obj["label"].(string)
	if t, ok := obj["type"].(string); ok {
		f.Type = FieldType(t)
	}
	f.Unit, _ = obj["unit"].(string)

	var shapeErr error
	setShapeErr := func(format string, args ...interface{}) {
		if shapeErr == nil {
			shapeErr = schemaError(fieldRef(i, f.Key), format, args...)
		}
	}

	if v, ok := obj["required"]; ok && v != nil {
		b, isBool := v.(bool)
		if !isBool {
			setShapeErr("field '%s': required must be a boolean", f.Label)
		}
		f.Required = b
	}

	for _, bound := range []struct {
		name string
		dst  **float64
	}{{"min", &f.Min}, {"max", &f.Max}} {
		v, ok := obj[bound.name]
		if !ok || v == nil {
			continue
		}
		n, isNum := jsonNumber(v)
		if !isNum {
			setShapeErr("field '%s': %s must be a number", f.Label, bound.name)
			continue
		}
		*bound.dst = &n
	}

	if opts, ok := obj["options"].([]interface{}); ok {
		f.Options = make([]string, 0, len(opts))
		for _, o := range opts {
			s, isStr := o.(string)
			if !isStr {
				setShapeErr("field '%s': options must be strings", f.Label)
				continue
			}
			f.Options = append(f.Options, s)
		}
	}

	return f, shapeErr
}

func checkField(i int, f FieldDefinition, seen map[string]struct{}) error {
	ref := fieldRef(i, f.Key)

	if f.Key == "" {
		return schemaError(ref, "each field must have a valid key (field %d)", i+1)
	}
	if f.Label == "" {
		return schemaError(ref, "field '%s' must have a valid label", f.Key)
	}
	if f.Type == "" {
		return schemaError(ref, "field '%s' must have a valid type", f.Key)
	}
	if !f.Type.Valid() {
		return schemaError(ref, "invalid field type: %s. Must be one of: %s", f.Type, typeList())
	}
	if f.Type == TypeEnum && len(f.Options) == 0 {
		return schemaError(ref, "enum field '%s' must have a non-empty options array", f.Key)
	}
	if _, dup := seen[f.Key]; dup {
		return schemaError(ref, "duplicate field key '%s'", f.Key)
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return schemaError(ref, "field '%s': min must not exceed max", f.Key)
	}

	seen[f.Key] = struct{}{}
	return nil
}

func schemaError(field, format string, args ...interface{}) error {
	return apperror.New(apperror.KindSchemaInvalid, field, format, args...)
}

func fieldRef(i int, key string) string {
	if key != "" {
		return key
	}
	return fmt.Sprintf("fields[%d]", i)
}

func typeList() string {
	names := make([]string, len(FieldTypes))
	for i, t := range FieldTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func jsonNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
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
	default:
		return 0, false
	}
}
