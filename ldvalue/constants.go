package ldvalue

const nullAsJSON = "null"

// ValueType indicates which JSON type is contained in a Value. Defined here as a type;
// the actual ValueType methods live in value_base.go.
type ValueType int

const (
	// NullType describes a null value. The zero value of ValueType is NullType, so the zero
	// value of Value is a null value.
	NullType ValueType = iota
	// BoolType describes a boolean value.
	BoolType
	// NumberType describes a numeric value. JSON has no separate int/float types; a Value can
	// be converted to either.
	NumberType
	// StringType describes a string value.
	StringType
	// ArrayType describes an array value.
	ArrayType
	// ObjectType describes an object (map) value.
	ObjectType
	// RawType describes a json.RawMessage value that is not parsed or interpreted as any other
	// data type and can only be read back out via AsRaw().
	RawType
)
