// Package schema validates product-type field schemas and the attribute
// payloads of products that belong to a type.
package schema

// FieldType is the declared shape of a custom product attribute.
type FieldType string

const (
	TypeString      FieldType = "string"
	TypeNumber      FieldType = "number"
	TypeBoolean     FieldType = "boolean"
	TypeEnum        FieldType = "enum"
	TypeDate        FieldType = "date"
	TypeFile        FieldType = "file"
	TypeMeasurement FieldType = "measurement"
)

// FieldTypes lists the supported types in documentation order.
var FieldTypes = []FieldType{
	TypeString,
	TypeNumber,
	TypeBoolean,
	TypeEnum,
	TypeDate,
	TypeFile,
	TypeMeasurement,
}

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	for _, ft := range FieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// FieldDefinition describes one custom attribute of a product type.
type FieldDefinition struct {
	Key      string    `json:"key" yaml:"key"`
	Label    string    `json:"label" yaml:"label"`
	Type     FieldType `json:"type" yaml:"type"`
	Required bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Min      *float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max      *float64  `json:"max,omitempty" yaml:"max,omitempty"`
	Options  []string  `json:"options,omitempty" yaml:"options,omitempty"`
	Unit     string    `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Schema is the ordered field list of a product type.
type Schema struct {
	Fields []FieldDefinition `json:"fields" yaml:"fields"`
}

// Field returns the definition with the given key.
func (s Schema) Field(key string) (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDefinition{}, false
}
