package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Value is a validated attribute value. The set of implementations is closed:
// one per FieldType.
type Value interface {
	Type() FieldType
	// Interface returns the JSON-compatible form of the value.
	Interface() interface{}
	sealed()
}

type (
	StringValue string
	NumberValue float64
	BoolValue   bool
	EnumValue   string
	FileValue   string
	DateValue   time.Time
)

// MeasurementValue is a numeric quantity with a unit, e.g. {"value": 12.5, "unit": "cm"}.
type MeasurementValue struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

func (StringValue) Type() FieldType      { return TypeString }
func (NumberValue) Type() FieldType      { return TypeNumber }
func (BoolValue) Type() FieldType        { return TypeBoolean }
func (EnumValue) Type() FieldType        { return TypeEnum }
func (FileValue) Type() FieldType        { return TypeFile }
func (DateValue) Type() FieldType        { return TypeDate }
func (MeasurementValue) Type() FieldType { return TypeMeasurement }

func (v StringValue) Interface() interface{} { return string(v) }
func (v NumberValue) Interface() interface{} { return float64(v) }
func (v BoolValue) Interface() interface{}   { return bool(v) }
func (v EnumValue) Interface() interface{}   { return string(v) }
func (v FileValue) Interface() interface{}   { return string(v) }
func (v DateValue) Interface() interface{} {
	return time.Time(v).UTC().Format(time.RFC3339Nano)
}
func (v MeasurementValue) Interface() interface{} {
	return map[string]interface{}{"value": v.Value, "unit": v.Unit}
}

func (StringValue) sealed()      {}
func (NumberValue) sealed()      {}
func (BoolValue) sealed()        {}
func (EnumValue) sealed()        {}
func (FileValue) sealed()        {}
func (DateValue) sealed()        {}
func (MeasurementValue) sealed() {}

// Attributes maps field keys to validated values.
type Attributes map[string]Value

var _ json.Marshaler = Attributes(nil)

// MarshalJSON writes the attributes as a plain JSON object, the format kept
// in the products table.
func (a Attributes) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(a))
	for k, v := range a {
		if v == nil {
			continue
		}
		out[k] = v.Interface()
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a stored attribute object. Without the owning schema the
// concrete type is inferred from the JSON shape, so enum, file and date values
// come back as StringValue.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	out := make(Attributes, len(raw))
	for k, v := range raw {
		val, ok := inferValue(v)
		if !ok {
			return fmt.Errorf("attribute %q has unsupported JSON shape", k)
		}
		out[k] = val
	}
	*a = out
	return nil
}

// Raw returns the attributes as a generic map, the inverse of what
// ValidateAttributes accepts.
func (a Attributes) Raw() map[string]interface{} {
	out := make(map[string]interface{}, len(a))
	for k, v := range a {
		out[k] = v.Interface()
	}
	return out
}

func decodeObject(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func inferValue(v interface{}) (Value, bool) {
	switch t := v.(type) {
	case string:
		return StringValue(t), true
	case bool:
		return BoolValue(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, false
		}
		return NumberValue(f), true
	case float64:
		return NumberValue(t), true
	case map[string]interface{}:
		m, err := toMeasurement(t)
		if err != nil {
			return nil, false
		}
		return m, true
	default:
		return nil, false
	}
}
