package extract

import (
	"encoding/json"
	"fmt"
)

// FieldValue holds one descriptive metadata field: absent, a single
// scalar, or an ordered list when the container declares the element
// more than once.
type FieldValue struct {
	values []string
}

// Scalar builds a single-valued field.
func Scalar(value string) FieldValue {
	return FieldValue{values: []string{value}}
}

// Field builds a field from declared values: empty means absent, one
// value is a scalar, more stay an ordered list.
func Field(values []string) FieldValue {
	if len(values) == 0 {
		return FieldValue{}
	}
	return FieldValue{values: append([]string(nil), values...)}
}

// IsAbsent reports whether the container declared no value.
func (f FieldValue) IsAbsent() bool { return len(f.values) == 0 }

// First returns the first declared value.
func (f FieldValue) First() (string, bool) {
	if len(f.values) == 0 {
		return "", false
	}
	return f.values[0], true
}

// Values returns all declared values in order.
func (f FieldValue) Values() []string {
	return append([]string(nil), f.values...)
}

// MarshalJSON encodes absent as null, one value as a string, several
// as an array.
func (f FieldValue) MarshalJSON() ([]byte, error) {
	switch len(f.values) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(f.values[0])
	default:
		return json.Marshal(f.values)
	}
}

// UnmarshalJSON accepts the same three shapes.
func (f *FieldValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		f.values = nil
	case string:
		f.values = []string{v}
	case []any:
		values := make([]string, 0, len(v))
		for _, entry := range v {
			s, ok := entry.(string)
			if !ok {
				return fmt.Errorf("metadata field entries must be strings, got %T", entry)
			}
			values = append(values, s)
		}
		f.values = values
	default:
		return fmt.Errorf("metadata field must be null, string, or array, got %T", raw)
	}
	return nil
}
