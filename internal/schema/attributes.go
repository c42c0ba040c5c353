package schema

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopforge/commerce-api/internal/apperror"
)

// dateLayouts are tried in order when a date attribute is a string.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DecodeAttributes decodes a JSON attribute object and validates it against s.
func DecodeAttributes(s Schema, data []byte) (Attributes, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, apperror.New(apperror.KindAttributeValidationFailed, "", "attributes must be a JSON object: %v", err)
	}
	return ValidateAttributes(s, raw)
}

// ValidateAttributes checks raw against s and returns the typed attributes.
//
// Checks run in three passes: required fields, unknown keys (sorted), then
// per-field type rules in schema declaration order. The first failure is
// returned. Empty values of optional fields are dropped.
func ValidateAttributes(s Schema, raw map[string]interface{}) (Attributes, error) {
	for _, f := range s.Fields {
		if !f.Required {
			continue
		}
		if v, ok := raw[f.Key]; !ok || isEmpty(v) {
			return nil, attrError(f.Key, "required field '%s' is missing", f.Label)
		}
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := s.Field(k); !ok {
			return nil, attrError(k, "unknown attribute: %s", k)
		}
	}

	out := make(Attributes, len(raw))
	for _, f := range s.Fields {
		v, ok := raw[f.Key]
		if !ok || isEmpty(v) {
			continue
		}
		val, err := convert(f, v)
		if err != nil {
			return nil, err
		}
		out[f.Key] = val
	}

	return out, nil
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func convert(f FieldDefinition, v interface{}) (Value, error) {
	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, attrError(f.Key, "field '%s' must be a string", f.Label)
		}
		n := float64(utf8.RuneCountInString(s))
		if f.Min != nil && n < *f.Min {
			return nil, attrError(f.Key, "field '%s' must be at least %s characters", f.Label, formatBound(*f.Min))
		}
		if f.Max != nil && n > *f.Max {
			return nil, attrError(f.Key, "field '%s' must not exceed %s characters", f.Label, formatBound(*f.Max))
		}
		return StringValue(s), nil

	case TypeNumber:
		n, ok := coerceNumber(v)
		if !ok {
			return nil, attrError(f.Key, "field '%s' must be a number", f.Label)
		}
		if f.Min != nil && n < *f.Min {
			return nil, attrError(f.Key, "field '%s' must be at least %s", f.Label, formatBound(*f.Min))
		}
		if f.Max != nil && n > *f.Max {
			return nil, attrError(f.Key, "field '%s' must not exceed %s", f.Label, formatBound(*f.Max))
		}
		return NumberValue(n), nil

	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, attrError(f.Key, "field '%s' must be a boolean", f.Label)
		}
		return BoolValue(b), nil

	case TypeEnum:
		s, ok := v.(string)
		if ok {
			for _, opt := range f.Options {
				if opt == s {
					return EnumValue(s), nil
				}
			}
		}
		return nil, attrError(f.Key, "field '%s' must be one of: %s", f.Label, strings.Join(f.Options, ", "))

	case TypeDate:
		t, ok := parseDate(v)
		if !ok {
			return nil, attrError(f.Key, "field '%s' must be a valid date", f.Label)
		}
		return DateValue(t), nil

	case TypeFile:
		s, ok := v.(string)
		if !ok {
			return nil, attrError(f.Key, "field '%s' must be a file path/URL", f.Label)
		}
		return FileValue(s), nil

	case TypeMeasurement:
		obj, ok := v.(map[string]interface{})
		if !ok {
			return nil, attrError(f.Key, "field '%s' must be a measurement object", f.Label)
		}
		m, err := toMeasurement(obj)
		if err != nil {
			return nil, attrError(f.Key, "field '%s': %v", f.Label, err)
		}
		return m, nil
	}

	return nil, attrError(f.Key, "field '%s' has unsupported type %s", f.Label, f.Type)
}

type measurementError string

func (e measurementError) Error() string { return string(e) }

func toMeasurement(obj map[string]interface{}) (MeasurementValue, error) {
	n, ok := jsonNumber(obj["value"])
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return MeasurementValue{}, measurementError("measurement value must be a number")
	}
	unit, ok := obj["unit"].(string)
	if !ok || unit == "" {
		return MeasurementValue{}, measurementError("measurement must have a unit")
	}
	return MeasurementValue{Value: n, Unit: unit}, nil
}

// coerceNumber accepts JSON numbers and numeric strings. The result must be finite.
func coerceNumber(v interface{}) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		parsed, ok := jsonNumber(v)
		if !ok {
			return 0, false
		}
		n = parsed
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func parseDate(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	default:
		// epoch milliseconds
		n, ok := jsonNumber(v)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(n)).UTC(), true
	}
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func attrError(field, format string, args ...interface{}) error {
	return apperror.New(apperror.KindAttributeValidationFailed, field, format, args...)
}
