package ldvalue

// This file contains types and methods for array and object values, in a fully immutable model
// where no slices, maps, or interface{} values are exposed to callers.

// ArrayBuilder is a builder created by ArrayBuild(), for constructing immutable arrays.
type ArrayBuilder interface {
	// Add appends an element to the array builder.
	Add(value Value) ArrayBuilder
	// Build creates a Value containing the array elements added so far. Further calls to Add
	// on the same builder do not affect a Value already returned by Build.
	Build() Value
}

type arrayBuilderImpl struct {
	copyOnWrite bool
	output      []Value
}

// ObjectBuilder is a builder created by ObjectBuild(), for constructing immutable JSON objects.
type ObjectBuilder interface {
	// Set sets a key-value pair in the object builder.
	Set(key string, value Value) ObjectBuilder
	// Build creates a Value containing the key-value pairs set so far. Further calls to Set on
	// the same builder do not affect a Value already returned by Build.
	Build() Value
}

type objectBuilderImpl struct {
	copyOnWrite bool
	output      map[string]Value
}

// ArrayOf creates an array Value from a list of Values, copying the slice so the result remains
// immutable even if the caller mutates the original slice afterward.
func ArrayOf(items ...Value) Value {
	if len(items) == 0 {
		return Value{valueType: ArrayType}
	}
	copiedItems := make([]Value, len(items))
	copy(copiedItems, items)
	return Value{valueType: ArrayType, immutableArrayValue: copiedItems}
}

// ArrayBuild creates a builder for constructing an immutable array Value.
func ArrayBuild() ArrayBuilder {
	return ArrayBuildWithCapacity(1)
}

// ArrayBuildWithCapacity creates a builder for constructing an immutable array Value, preallocated
// to the given capacity.
func ArrayBuildWithCapacity(capacity int) ArrayBuilder {
	return &arrayBuilderImpl{output: make([]Value, 0, capacity)}
}

func (b *arrayBuilderImpl) Add(value Value) ArrayBuilder {
	if b.copyOnWrite {
		n := len(b.output)
		newSlice := make([]Value, n, n+1)
		copy(newSlice[0:n], b.output)
		b.output = newSlice
		b.copyOnWrite = false
	}
	b.output = append(b.output, value)
	return b
}

func (b *arrayBuilderImpl) Build() Value {
	if len(b.output) == 0 {
		return Value{valueType: ArrayType}
	}
	b.copyOnWrite = true
	return Value{valueType: ArrayType, immutableArrayValue: b.output}
}

// CopyObject creates a Value by copying an existing map[string]Value.
func CopyObject(m map[string]Value) Value {
	return Value{valueType: ObjectType, immutableObjectValue: copyValueMap(m)}
}

// ObjectBuild creates a builder for constructing an immutable JSON object Value.
func ObjectBuild() ObjectBuilder {
	return ObjectBuildWithCapacity(1)
}

// ObjectBuildWithCapacity creates a builder for constructing an immutable JSON object Value,
// preallocated to the given capacity.
func ObjectBuildWithCapacity(capacity int) ObjectBuilder {
	return &objectBuilderImpl{output: make(map[string]Value, capacity)}
}

func (b *objectBuilderImpl) Set(name string, value Value) ObjectBuilder {
	if b.copyOnWrite {
		b.output = copyValueMap(b.output)
		b.copyOnWrite = false
	}
	b.output[name] = value
	return b
}

func (b *objectBuilderImpl) Build() Value {
	if len(b.output) == 0 {
		return Value{valueType: ObjectType}
	}
	b.copyOnWrite = true
	return Value{valueType: ObjectType, immutableObjectValue: b.output}
}

// Count returns the number of elements in an array or object value, or zero for any other type.
func (v Value) Count() int {
	switch v.valueType {
	case ArrayType:
		return len(v.immutableArrayValue)
	case ObjectType:
		return len(v.immutableObjectValue)
	}
	return 0
}

// GetByIndex gets an element of an array by index, or Null() if the value is not an array or the
// index is out of range.
func (v Value) GetByIndex(index int) Value {
	ret, _ := v.TryGetByIndex(index)
	return ret
}

// TryGetByIndex gets an element of an array by index, with a second return value of true on
// success.
func (v Value) TryGetByIndex(index int) (Value, bool) {
	if v.valueType == ArrayType {
		if index >= 0 && index < len(v.immutableArrayValue) {
			return v.immutableArrayValue[index], true
		}
	}
	return Null(), false
}

// Keys returns a copy of the keys of an object value, or nil for any other type.
func (v Value) Keys() []string {
	if v.valueType == ObjectType {
		ret := make([]string, len(v.immutableObjectValue))
		i := 0
		for key := range v.immutableObjectValue {
			ret[i] = key
			i++
		}
		return ret
	}
	return nil
}

// GetByKey gets a value from an object by key, or Null() if the value is not an object or the
// key is absent.
func (v Value) GetByKey(name string) Value {
	ret, _ := v.TryGetByKey(name)
	return ret
}

// TryGetByKey gets a value from an object by key, with a second return value of true on success.
func (v Value) TryGetByKey(name string) (Value, bool) {
	if v.valueType == ObjectType {
		ret, ok := v.immutableObjectValue[name]
		return ret, ok
	}
	return Null(), false
}

func copyValueMap(m map[string]Value) map[string]Value {
	ret := make(map[string]Value, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}

// Enumerate calls fn for each value contained in v.
//
// For Null(), fn is never called. For an array, fn is called for each element with its index in
// the first parameter and "" in the second. For an object, fn is called for each key-value pair
// with 0 in the first parameter and the key in the second. For any other type, fn is called once
// for that value. Returning false from fn stops enumeration early.
func (v Value) Enumerate(fn func(index int, key string, value Value) bool) {
	switch v.valueType {
	case NullType:
		return
	case ArrayType:
		for i, v1 := range v.immutableArrayValue {
			if !fn(i, "", v1) {
				return
			}
		}
	case ObjectType:
		for k, v1 := range v.immutableObjectValue {
			if !fn(0, k, v1) {
				return
			}
		}
	default:
		_ = fn(0, "", v)
	}
}
