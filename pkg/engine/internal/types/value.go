package types

import "fmt"

const (
	typeInvalid = "invalid"
)

// Type is the scalar type of a value carried by a plan symbol.
type Type uint32

const (
	Invalid Type = iota // zero-value is an invalid type

	Bigint    // Signed 64bit integer value
	Double    // 64bit floating point value
	Varchar   // String value
	Boolean   // Boolean value
	Timestamp // Signed 64bit integer value (nanosecond timestamp)
)

// String returns the SQL name of the type.
func (t Type) String() string {
	switch t {
	case Bigint:
		return "bigint"
	case Double:
		return "double"
	case Varchar:
		return "varchar"
	case Boolean:
		return "boolean"
	case Timestamp:
		return "timestamp"
	default:
		return typeInvalid
	}
}

// FromString parses the SQL name of a type. It is the inverse of
// [Type.String].
func FromString(s string) (Type, error) {
	for _, t := range []Type{Bigint, Double, Varchar, Boolean, Timestamp} {
		if t.String() == s {
			return t, nil
		}
	}
	return Invalid, fmt.Errorf("unknown type %q", s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Type) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
