// Package domtree implements the mutable JSON document tree: tagged values,
// insertion-ordered objects backed by an open-addressing hash index, dense
// arrays, dotted-path access, deep copy, tolerant equality, and shape
// checking.
//
// Ownership is single-parent. A value freshly constructed or detached has no
// parent and may be attached exactly once; attaching an owned value fails
// with HAS_PARENT. Releasing a root releases its whole subtree. Containers
// free their old occupants when members are replaced or removed, so no tree
// ever aliases another.
//
// Storage for nodes and working buffers flows through an explicit Allocator
// argument on every operation that creates or releases values. Read-only
// accessors never allocate and take none.
package domtree

import (
	"math"
	"unicode/utf8"
)

// Kind discriminates the payload of a Value. The zero Kind is KindError,
// which is also what accessors report for a nil Value.
type Kind int

const (
	KindError Kind = iota
	KindNull
	KindString
	KindNumber
	KindObject
	KindArray
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindBool:
		return "boolean"
	default:
		return "error"
	}
}

// Value is one node of a document tree. Exactly one payload field is live,
// selected by kind. The parent pointer is non-owning.
type Value struct {
	kind   Kind
	parent *Value
	str    string
	num    float64
	b      bool
	obj    *Object
	arr    *Array
}

// Kind returns the value's kind. Safe on nil, which reports KindError.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindError
	}
	return v.kind
}

// Parent returns the owning value, or nil for roots and detached values.
func (v *Value) Parent() *Value {
	if v == nil {
		return nil
	}
	return v.parent
}

// Object returns the object payload, or nil when v is not an object.
func (v *Value) Object() *Object {
	if v.Kind() != KindObject {
		return nil
	}
	return v.obj
}

// Array returns the array payload, or nil when v is not an array.
func (v *Value) Array() *Array {
	if v.Kind() != KindArray {
		return nil
	}
	return v.arr
}

// Str returns the string payload. The second result is false when v is not
// a string.
func (v *Value) Str() (string, bool) {
	if v.Kind() != KindString {
		return "", false
	}
	return v.str, true
}

// Num returns the number payload. The second result is false when v is not
// a number.
func (v *Value) Num() (float64, bool) {
	if v.Kind() != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Bool returns the boolean payload. The second result is false when v is
// not a boolean.
func (v *Value) Bool() (bool, bool) {
	if v.Kind() != KindBool {
		return false, false
	}
	return v.b, true
}

// ObjectValue constructs an empty object value. Returns nil on allocation
// failure.
func ObjectValue(a Allocator) *Value {
	v := norm(a).NewValue()
	if v == nil {
		return nil
	}
	v.kind = KindObject
	v.obj = &Object{wrap: v}
	return v
}

// ArrayValue constructs an empty array value. Returns nil on allocation
// failure.
func ArrayValue(a Allocator) *Value {
	v := norm(a).NewValue()
	if v == nil {
		return nil
	}
	v.kind = KindArray
	v.arr = &Array{wrap: v}
	return v
}

// StringValue constructs a string value. The payload must be valid UTF-8;
// NUL bytes are allowed. Returns nil on invalid input or allocation failure.
func StringValue(a Allocator, s string) *Value {
	if !utf8.ValidString(s) {
		return nil
	}
	return newString(norm(a), s)
}

func newString(a Allocator, s string) *Value {
	v := a.NewValue()
	if v == nil {
		return nil
	}
	v.kind = KindString
	v.str = s
	return v
}

// NumberValue constructs a number value. NaN and infinities are rejected
// with a nil return, keeping every stored number serializable.
func NumberValue(a Allocator, f float64) *Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	v := norm(a).NewValue()
	if v == nil {
		return nil
	}
	v.kind = KindNumber
	v.num = f
	return v
}

// BoolValue constructs a boolean value. Returns nil on allocation failure.
func BoolValue(a Allocator, b bool) *Value {
	v := norm(a).NewValue()
	if v == nil {
		return nil
	}
	v.kind = KindBool
	v.b = b
	return v
}

// NullValue constructs a null value. Returns nil on allocation failure.
func NullValue(a Allocator) *Value {
	v := norm(a).NewValue()
	if v == nil {
		return nil
	}
	v.kind = KindNull
	return v
}

// Release returns the whole subtree to the allocator. It is a no-op for
// values still attached to a parent; remove or clear those through their
// container instead.
func (v *Value) Release(a Allocator) {
	if v == nil || v.parent != nil {
		return
	}
	releaseTree(norm(a), v)
}

func releaseTree(a Allocator, v *Value) {
	switch v.kind {
	case KindObject:
		for _, c := range v.obj.values {
			releaseTree(a, c)
		}
	case KindArray:
		for _, c := range v.arr.items {
			releaseTree(a, c)
		}
	}
	*v = Value{}
	a.Free(v)
}
