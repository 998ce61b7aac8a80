// Package ldvalue provides the Value type, a tagged-variant representation of any JSON-like
// value (null, boolean, number, string, array, or object) used for flag variations and for
// user attribute values.
package ldvalue

import (
	"encoding/json"
)

// Value represents any of the data types supported by JSON, all of which can be used for a
// feature flag variation or a custom user attribute.
//
// Value instances cannot be compared with ==, because the struct may contain a slice or map; use
// the Equal method (or reflect.DeepEqual) instead.
//
// Value instances are immutable when used by code outside of this package.
type Value struct {
	valueType             ValueType
	boolValue             bool
	numberValue           float64
	stringValue           string
	immutableArrayValue   []Value
	immutableObjectValue  map[string]Value
}

// String returns the name of the value type.
func (t ValueType) String() string {
	switch t {
	case NullType:
		return nullAsJSON
	case BoolType:
		return "bool"
	case NumberType:
		return "number"
	case StringType:
		return "string"
	case ArrayType:
		return "array"
	case ObjectType:
		return "object"
	case RawType:
		return "raw"
	default:
		return "unknown"
	}
}

// Null creates a null Value.
func Null() Value {
	return Value{valueType: NullType}
}

// Bool creates a boolean Value.
func Bool(value bool) Value {
	return Value{valueType: BoolType, boolValue: value}
}

// Int creates a numeric Value from an integer.
//
// All numbers are represented internally as float64, so Int(2) is exactly equal to Float64(2).
func Int(value int) Value {
	return Float64(float64(value))
}

// Float64 creates a numeric Value from a float64.
func Float64(value float64) Value {
	return Value{valueType: NumberType, numberValue: value}
}

// String creates a string Value.
func String(value string) Value {
	return Value{valueType: StringType, stringValue: value}
}

// Raw creates an unparsed JSON Value.
func Raw(value json.RawMessage) Value {
	return Value{valueType: RawType, stringValue: string(value)}
}

// CopyArbitraryValue creates a Value from an arbitrary interface{} of any type.
//
// nil, bool, any integer or floating-point type, and string all become the corresponding
// primitive Value. A []interface{} or []Value becomes a deep-copied array. A
// map[string]interface{} or map[string]Value becomes a deep-copied object. Anything else is
// marshaled to JSON and reparsed (or becomes Null() if marshaling fails).
func CopyArbitraryValue(valueAsInterface interface{}) Value { //nolint:funlen
	if valueAsInterface == nil {
		return Null()
	}
	switch o := valueAsInterface.(type) {
	case Value:
		return o
	case bool:
		return Bool(o)
	case int8:
		return Float64(float64(o))
	case uint8:
		return Float64(float64(o))
	case int16:
		return Float64(float64(o))
	case uint16:
		return Float64(float64(o))
	case int:
		return Float64(float64(o))
	case uint:
		return Float64(float64(o))
	case int32:
		return Float64(float64(o))
	case uint32:
		return Float64(float64(o))
	case int64:
		return Float64(float64(o))
	case float32:
		return Float64(float64(o))
	case float64:
		return Float64(o)
	case string:
		return String(o)
	case []interface{}:
		a := make([]Value, len(o))
		for i, v := range o {
			a[i] = CopyArbitraryValue(v)
		}
		return Value{valueType: ArrayType, immutableArrayValue: a}
	case []Value:
		return ArrayOf(o...)
	case map[string]interface{}:
		m := make(map[string]Value, len(o))
		for k, v := range o {
			m[k] = CopyArbitraryValue(v)
		}
		return Value{valueType: ObjectType, immutableObjectValue: m}
	case map[string]Value:
		return CopyObject(o)
	case json.RawMessage:
		return Raw(o)
	default:
		jsonBytes, err := json.Marshal(valueAsInterface)
		if err == nil {
			var ret Value
			if err = json.Unmarshal(jsonBytes, &ret); err == nil {
				return ret
			}
		}
		return Null()
	}
}

// Type returns the ValueType of the Value.
func (v Value) Type() ValueType {
	return v.valueType
}

// IsNull returns true if the Value is null.
func (v Value) IsNull() bool {
	return v.valueType == NullType
}

// IsNumber returns true if the Value is numeric.
func (v Value) IsNumber() bool {
	return v.valueType == NumberType
}

// IsInt returns true if the Value is numeric and has no fractional component, so both Int(2)
// and Float64(2.0) report IsInt() true.
func (v Value) IsInt() bool {
	if v.valueType == NumberType {
		return v.numberValue == float64(int(v.numberValue))
	}
	return false
}

// BoolValue returns the Value as a boolean, or false if it is not a boolean.
func (v Value) BoolValue() bool {
	return v.valueType == BoolType && v.boolValue
}

// IntValue returns the Value as an int, truncating any fractional component, or zero if it is
// not numeric.
func (v Value) IntValue() int {
	if v.valueType == NumberType {
		return int(v.numberValue)
	}
	return 0
}

// Float64Value returns the Value as a float64, or zero if it is not numeric.
func (v Value) Float64Value() float64 {
	if v.valueType == NumberType {
		return v.numberValue
	}
	return 0
}

// StringValue returns the Value's string content, or "" if it is not a string.
//
// This differs from String(), which returns a JSON representation of any value type.
func (v Value) StringValue() string {
	if v.valueType == StringType {
		return v.stringValue
	}
	return ""
}

// AsOptionalString converts the Value to OptionalString, which holds either a string or nothing
// if the Value was not a string.
func (v Value) AsOptionalString() OptionalString {
	if v.valueType == StringType {
		return NewOptionalString(v.stringValue)
	}
	return OptionalString{}
}

// AsRaw returns the Value as a json.RawMessage.
//
// If the Value was created from a RawMessage, that same content is returned; otherwise, the
// value is marshaled to JSON.
func (v Value) AsRaw() json.RawMessage {
	if v.valueType == RawType {
		return json.RawMessage(v.stringValue)
	}
	bytes, err := json.Marshal(v)
	if err == nil {
		return json.RawMessage(bytes)
	}
	return nil
}

// AsArbitraryValue returns the Value in its simplest Go representation, typed as interface{}.
//
// This is nil for a null value; bool, float64, or string for primitives (all numbers become
// float64). Arrays and objects are deep-copied into []interface{} and map[string]interface{}.
// To examine array/object contents without copying, use Count, Keys, GetByIndex, GetByKey.
func (v Value) AsArbitraryValue() interface{} {
	switch v.valueType {
	case NullType:
		return nil
	case BoolType:
		return v.boolValue
	case NumberType:
		return v.numberValue
	case StringType:
		return v.stringValue
	case ArrayType:
		ret := make([]interface{}, len(v.immutableArrayValue))
		for i, element := range v.immutableArrayValue {
			ret[i] = element.AsArbitraryValue()
		}
		return ret
	case ObjectType:
		ret := make(map[string]interface{}, len(v.immutableObjectValue))
		for key, element := range v.immutableObjectValue {
			ret[key] = element.AsArbitraryValue()
		}
		return ret
	case RawType:
		return v.AsRaw()
	}
	return nil
}

// String converts the Value to its JSON string representation; equivalent to JSONString().
//
// This differs from StringValue, which returns the raw string content for a string value (or ""
// for anything else): Int(2).String() is "2" but Int(2).StringValue() is "".
func (v Value) String() string {
	return v.JSONString()
}

// Equal tests whether this Value equals another, in both type and value. For arrays and
// objects this is a deep comparison.
func (v Value) Equal(other Value) bool {
	if v.valueType == other.valueType {
		switch v.valueType {
		case NullType:
			return true
		case BoolType:
			return v.boolValue == other.boolValue
		case NumberType:
			return v.numberValue == other.numberValue
		case StringType, RawType:
			return v.stringValue == other.stringValue
		case ArrayType:
			n := v.Count()
			if n != other.Count() {
				return false
			}
			for i := 0; i < n; i++ {
				if !v.GetByIndex(i).Equal(other.GetByIndex(i)) {
					return false
				}
			}
			return true
		case ObjectType:
			keys := v.Keys()
			if len(keys) != other.Count() {
				return false
			}
			for _, key := range keys {
				v0 := v.GetByKey(key)
				if v1, found := other.TryGetByKey(key); !found || !v0.Equal(v1) {
					return false
				}
			}
			return true
		}
	}
	return false
}

// AsPointer returns a pointer to a copy of this Value, or nil if it is null.
//
// This is useful when serializing a struct field that should be completely omitted (not output
// as null) when the Value is null, since "omitempty" only works on pointers:
//
//	type MyJSONStruct struct {
//	    AnOptionalField *Value `json:"anOptionalField,omitempty"`
//	}
func (v Value) AsPointer() *Value {
	if v.IsNull() {
		return nil
	}
	return &v
}
