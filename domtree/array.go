package domtree

import (
	"strconv"
	"unicode/utf8"

	"github.com/lattice-substrate/jsondom/domerr"
)

// Array is a dense sequence of owned values. Capacity grows by doubling with
// a floor of 16 slots; removal shifts the tail left, preserving order.
type Array struct {
	wrap  *Value
	items []*Value
}

// Value returns the value wrapping this array.
func (ar *Array) Value() *Value {
	if ar == nil {
		return nil
	}
	return ar.wrap
}

// Len returns the number of elements.
func (ar *Array) Len() int {
	if ar == nil {
		return 0
	}
	return len(ar.items)
}

// Get returns the element at index i, or nil out of range.
func (ar *Array) Get(i int) *Value {
	if ar == nil || i < 0 || i >= len(ar.items) {
		return nil
	}
	return ar.items[i]
}

// GetString returns the string element at i, or "" when out of range or a
// different kind.
func (ar *Array) GetString(i int) string {
	s, _ := ar.Get(i).Str()
	return s
}

// GetNumber returns the number element at i, or 0 when out of range or a
// different kind.
func (ar *Array) GetNumber(i int) float64 {
	f, _ := ar.Get(i).Num()
	return f
}

// GetBool returns the boolean element at i. The second result is false when
// out of range or a different kind.
func (ar *Array) GetBool(i int) (bool, bool) {
	return ar.Get(i).Bool()
}

// GetObject returns the object element at i, or nil.
func (ar *Array) GetObject(i int) *Object {
	return ar.Get(i).Object()
}

// GetArray returns the array element at i, or nil.
func (ar *Array) GetArray(i int) *Array {
	return ar.Get(i).Array()
}

func (ar *Array) reserve(n int) {
	items := make([]*Value, len(ar.items), n)
	copy(items, ar.items)
	ar.items = items
}

// add appends without ownership checks; callers have validated the value.
func (ar *Array) add(v *Value) {
	if len(ar.items) >= cap(ar.items) {
		newCap := cap(ar.items) * 2
		if newCap < startingCapacity {
			newCap = startingCapacity
		}
		ar.reserve(newCap)
	}
	ar.items = append(ar.items, v)
	v.parent = ar.wrap
}

// Append adds v at the end. It fails with HAS_PARENT when v is owned
// elsewhere; on success ownership moves to the array.
func (ar *Array) Append(v *Value) error {
	if ar == nil || v == nil {
		return domerr.New(domerr.WrongType, -1, "nil array or value")
	}
	if v.parent != nil {
		return domerr.New(domerr.HasParent, -1, "value already has a parent")
	}
	ar.add(v)
	return nil
}

// AppendString appends a fresh string value.
func (ar *Array) AppendString(a Allocator, s string) error {
	aa := norm(a)
	if !utf8.ValidString(s) {
		return domerr.New(domerr.InvalidUTF8, -1, "string payload is not valid UTF-8")
	}
	v := newString(aa, s)
	if v == nil {
		return domerr.New(domerr.AllocFailed, -1, "string value")
	}
	if err := ar.Append(v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// AppendNumber appends a fresh number value. NaN and infinities fail.
func (ar *Array) AppendNumber(a Allocator, f float64) error {
	aa := norm(a)
	v := NumberValue(aa, f)
	if v == nil {
		return domerr.New(domerr.BadNumber, -1, "number is NaN, infinite, or unallocatable")
	}
	if err := ar.Append(v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// AppendBool appends a fresh boolean value.
func (ar *Array) AppendBool(a Allocator, b bool) error {
	aa := norm(a)
	v := BoolValue(aa, b)
	if v == nil {
		return domerr.New(domerr.AllocFailed, -1, "boolean value")
	}
	if err := ar.Append(v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// AppendNull appends a fresh null value.
func (ar *Array) AppendNull(a Allocator) error {
	aa := norm(a)
	v := NullValue(aa)
	if v == nil {
		return domerr.New(domerr.AllocFailed, -1, "null value")
	}
	if err := ar.Append(v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// Replace releases the element at i and installs v in its place.
func (ar *Array) Replace(a Allocator, i int, v *Value) error {
	if ar == nil || v == nil {
		return domerr.New(domerr.WrongType, -1, "nil array or value")
	}
	if v.parent != nil {
		return domerr.New(domerr.HasParent, -1, "value already has a parent")
	}
	if i < 0 || i >= len(ar.items) {
		return domerr.New(domerr.IndexRange, -1, "index "+strconv.Itoa(i)+" out of range")
	}
	old := ar.items[i]
	old.parent = nil
	releaseTree(norm(a), old)
	ar.items[i] = v
	v.parent = ar.wrap
	return nil
}

// ReplaceString replaces the element at i with a fresh string value.
func (ar *Array) ReplaceString(a Allocator, i int, s string) error {
	aa := norm(a)
	if !utf8.ValidString(s) {
		return domerr.New(domerr.InvalidUTF8, -1, "string payload is not valid UTF-8")
	}
	v := newString(aa, s)
	if v == nil {
		return domerr.New(domerr.AllocFailed, -1, "string value")
	}
	if err := ar.Replace(aa, i, v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// ReplaceNumber replaces the element at i with a fresh number value.
func (ar *Array) ReplaceNumber(a Allocator, i int, f float64) error {
	aa := norm(a)
	v := NumberValue(aa, f)
	if v == nil {
		return domerr.New(domerr.BadNumber, -1, "number is NaN, infinite, or unallocatable")
	}
	if err := ar.Replace(aa, i, v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// ReplaceBool replaces the element at i with a fresh boolean value.
func (ar *Array) ReplaceBool(a Allocator, i int, b bool) error {
	aa := norm(a)
	v := BoolValue(aa, b)
	if v == nil {
		return domerr.New(domerr.AllocFailed, -1, "boolean value")
	}
	if err := ar.Replace(aa, i, v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// ReplaceNull replaces the element at i with a fresh null value.
func (ar *Array) ReplaceNull(a Allocator, i int) error {
	aa := norm(a)
	v := NullValue(aa)
	if v == nil {
		return domerr.New(domerr.AllocFailed, -1, "null value")
	}
	if err := ar.Replace(aa, i, v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// Remove releases the element at i and shifts the tail left.
func (ar *Array) Remove(a Allocator, i int) error {
	if ar == nil {
		return domerr.New(domerr.WrongType, -1, "nil array")
	}
	if i < 0 || i >= len(ar.items) {
		return domerr.New(domerr.IndexRange, -1, "index "+strconv.Itoa(i)+" out of range")
	}
	old := ar.items[i]
	old.parent = nil
	releaseTree(norm(a), old)
	copy(ar.items[i:], ar.items[i+1:])
	last := len(ar.items) - 1
	ar.items[last] = nil
	ar.items = ar.items[:last]
	return nil
}

// Clear releases every element. Capacity is retained.
func (ar *Array) Clear(a Allocator) error {
	if ar == nil {
		return domerr.New(domerr.WrongType, -1, "nil array")
	}
	aa := norm(a)
	for i := range ar.items {
		ar.items[i].parent = nil
		releaseTree(aa, ar.items[i])
		ar.items[i] = nil
	}
	ar.items = ar.items[:0]
	return nil
}

// Reserve grows capacity to hold at least n elements. Requests below the
// live count fail rather than shrink.
func (ar *Array) Reserve(n int) error {
	if ar == nil {
		return domerr.New(domerr.WrongType, -1, "nil array")
	}
	if n < len(ar.items) {
		return domerr.New(domerr.IndexRange, -1, "reserve below live count")
	}
	if n > cap(ar.items) {
		ar.reserve(n)
	}
	return nil
}
