package ldvalue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// JSONString returns the JSON representation of the value.
func (v Value) JSONString() string {
	switch v.valueType {
	case NullType:
		return nullAsJSON
	case BoolType:
		if v.boolValue {
			return "true"
		}
		return "false"
	case NumberType:
		if v.IsInt() {
			return strconv.Itoa(int(v.numberValue))
		}
		return strconv.FormatFloat(v.numberValue, 'f', -1, 64)
	}
	bytes, _ := json.Marshal(v)
	return string(bytes)
}

// MarshalJSON converts the Value to its JSON representation.
//
// Note that "omitempty" on a struct field does not cause an empty Value to be omitted; it is
// output as null. To omit the field entirely when there is no value, use a *Value via
// AsPointer().
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.valueType {
	case NullType:
		return []byte(nullAsJSON), nil
	case BoolType:
		if v.boolValue {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case NumberType:
		if v.IsInt() {
			return []byte(strconv.Itoa(int(v.numberValue))), nil
		}
		return []byte(strconv.FormatFloat(v.numberValue, 'f', -1, 64)), nil
	case StringType:
		return json.Marshal(v.stringValue)
	case ArrayType:
		if v.immutableArrayValue == nil {
			return json.Marshal([]Value{})
		}
		return json.Marshal(v.immutableArrayValue)
	case ObjectType:
		if v.immutableObjectValue == nil {
			return json.Marshal(map[string]Value{})
		}
		return json.Marshal(v.immutableObjectValue)
	case RawType:
		return []byte(v.stringValue), nil
	}
	return nil, errors.New("unknown data type")
}

// UnmarshalJSON parses a Value from JSON.
func (v *Value) UnmarshalJSON(data []byte) error { //nolint:funlen
	if len(data) == 0 {
		return errors.New("cannot parse empty data")
	}
	switch data[0] {
	case 'n':
		if string(data) == "null" {
			*v = Null()
			return nil
		}
	case 't':
		if string(data) == "true" {
			*v = Bool(true)
			return nil
		}
	case 'f':
		if string(data) == "false" {
			*v = Bool(false)
			return nil
		}
	case '"':
		var s string
		e := json.Unmarshal(data, &s)
		if e == nil {
			*v = String(s)
		}
		return e
	case '[':
		var a []Value
		e := json.Unmarshal(data, &a)
		if e == nil {
			if len(a) == 0 {
				a = nil
			}
			*v = Value{valueType: ArrayType, immutableArrayValue: a}
		}
		return e
	case '{':
		var o map[string]Value
		e := json.Unmarshal(data, &o)
		if e == nil {
			if len(o) == 0 {
				o = nil
			}
			*v = Value{valueType: ObjectType, immutableObjectValue: o}
		}
		return e
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n float64
		e := json.Unmarshal(data, &n)
		if e == nil {
			*v = Value{valueType: NumberType, numberValue: n}
		}
		return e
	}
	return fmt.Errorf("unknown JSON token: %s", data)
}
