package schema

import "fmt"

// FieldType enumerates the value types a collection field can declare.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeLong      FieldType = "long"
	TypeDouble    FieldType = "double"
	TypeBoolean   FieldType = "boolean"
	TypeTimestamp FieldType = "timestamp"
)

// Field is one declared column of a collection schema.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Record holds the property values of one event, ordered by its schema.
// Values[i] corresponds to Fields[i]; a nil value means the field is unset.
type Record struct {
	Fields []Field
	Values []any
}

// NewRecord creates an empty record for the given schema.
func NewRecord(fields []Field) *Record {
	return &Record{
		Fields: fields,
		Values: make([]any, len(fields)),
	}
}

// Set assigns a value to the named field after checking it against the
// declared type. Unknown fields and type mismatches are rejected.
func (r *Record) Set(name string, value any) error {
	for i, f := range r.Fields {
		if f.Name != name {
			continue
		}
		if value == nil {
			r.Values[i] = nil
			return nil
		}
		coerced, err := Coerce(f.Type, value)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		r.Values[i] = coerced
		return nil
	}
	return fmt.Errorf("field %q is not declared in the schema", name)
}

// Get returns the value of the named field, or nil when unset or unknown.
func (r *Record) Get(name string) any {
	for i, f := range r.Fields {
		if f.Name == name {
			return r.Values[i]
		}
	}
	return nil
}

// Coerce converts a dynamically typed value (e.g. decoded JSON) into the
// canonical Go representation for the declared field type.
func Coerce(t FieldType, value any) (any, error) {
	switch t {
	case TypeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case TypeLong, TypeTimestamp:
		switch v := value.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case float64:
			// JSON numbers decode as float64; accept integral values only.
			if v == float64(int64(v)) {
				return int64(v), nil
			}
		}
	case TypeDouble:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case int:
			return float64(v), nil
		}
	case TypeBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	default:
		return nil, fmt.Errorf("unknown field type %q", t)
	}
	return nil, fmt.Errorf("value %v (%T) does not conform to declared type %q", value, value, t)
}
