package domtree

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lattice-substrate/jsondom/domerr"
)

// Dotted paths address nested object members: "a.b.c" resolves member "a",
// then "b" inside it, then "c". Splitting happens at the first dot of each
// step, so keys containing dots are only reachable through the plain API.

// GetPath resolves a dotted path, or returns nil when any step is missing
// or a step other than the last is not an object.
func (o *Object) GetPath(path string) *Value {
	if o == nil {
		return nil
	}
	dot := strings.IndexByte(path, '.')
	if dot < 0 {
		return o.Get(path)
	}
	inner := o.Get(path[:dot]).Object()
	if inner == nil {
		return nil
	}
	return inner.GetPath(path[dot+1:])
}

// GetPathString returns the string at path, or "".
func (o *Object) GetPathString(path string) string {
	s, _ := o.GetPath(path).Str()
	return s
}

// GetPathNumber returns the number at path, or 0.
func (o *Object) GetPathNumber(path string) float64 {
	f, _ := o.GetPath(path).Num()
	return f
}

// GetPathBool returns the boolean at path; the second result is false when
// the path is missing or holds a different kind.
func (o *Object) GetPathBool(path string) (bool, bool) {
	return o.GetPath(path).Bool()
}

// GetPathObject returns the object at path, or nil.
func (o *Object) GetPathObject(path string) *Object {
	return o.GetPath(path).Object()
}

// GetPathArray returns the array at path, or nil.
func (o *Object) GetPathArray(path string) *Array {
	return o.GetPath(path).Array()
}

// HasPath reports whether the dotted path resolves.
func (o *Object) HasPath(path string) bool {
	return o.GetPath(path) != nil
}

// HasPathKind reports whether the dotted path resolves to the given kind.
func (o *Object) HasPathKind(path string, k Kind) bool {
	v := o.GetPath(path)
	return v != nil && v.Kind() == k
}

// SetPath stores v at a dotted path, creating missing intermediate objects.
// An existing intermediate of a different kind is left untouched and the
// call fails with WRONG_TYPE. Intermediates are assembled bottom-up, so a
// failure leaves the object exactly as it was.
func (o *Object) SetPath(a Allocator, path string, v *Value) error {
	if o == nil || v == nil {
		return domerr.New(domerr.WrongType, -1, "nil object or value")
	}
	return o.setPath(norm(a), path, v)
}

func (o *Object) setPath(a Allocator, path string, v *Value) error {
	dot := strings.IndexByte(path, '.')
	if dot < 0 {
		return o.Set(a, path, v)
	}
	seg, rest := path[:dot], path[dot+1:]
	if child := o.Get(seg); child != nil {
		inner := child.Object()
		if inner == nil {
			return domerr.New(domerr.WrongType, -1, "path segment "+strconv.Quote(seg)+" is not an object")
		}
		return inner.setPath(a, rest, v)
	}
	mid := ObjectValue(a)
	if mid == nil {
		return domerr.New(domerr.AllocFailed, -1, "intermediate object")
	}
	if err := mid.obj.setPath(a, rest, v); err != nil {
		releaseTree(a, mid)
		return err
	}
	if err := o.Add(seg, mid); err != nil {
		// Detach the caller's value before dropping the scaffolding.
		_ = mid.obj.removePath(a, rest, false)
		releaseTree(a, mid)
		return err
	}
	return nil
}

// SetPathString stores a fresh string value at path.
func (o *Object) SetPathString(a Allocator, path, s string) error {
	aa := norm(a)
	if !utf8.ValidString(s) {
		return domerr.New(domerr.InvalidUTF8, -1, "string payload is not valid UTF-8")
	}
	v := newString(aa, s)
	if v == nil {
		return domerr.New(domerr.AllocFailed, -1, "string value")
	}
	if err := o.SetPath(aa, path, v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// SetPathNumber stores a fresh number value at path.
func (o *Object) SetPathNumber(a Allocator, path string, f float64) error {
	aa := norm(a)
	v := NumberValue(aa, f)
	if v == nil {
		return domerr.New(domerr.BadNumber, -1, "number is NaN, infinite, or unallocatable")
	}
	if err := o.SetPath(aa, path, v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// SetPathBool stores a fresh boolean value at path.
func (o *Object) SetPathBool(a Allocator, path string, b bool) error {
	aa := norm(a)
	v := BoolValue(aa, b)
	if v == nil {
		return domerr.New(domerr.AllocFailed, -1, "boolean value")
	}
	if err := o.SetPath(aa, path, v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// SetPathNull stores a fresh null value at path.
func (o *Object) SetPathNull(a Allocator, path string) error {
	aa := norm(a)
	v := NullValue(aa)
	if v == nil {
		return domerr.New(domerr.AllocFailed, -1, "null value")
	}
	if err := o.SetPath(aa, path, v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// RemovePath deletes the member at a dotted path and releases its subtree.
// Emptied intermediate objects are kept.
func (o *Object) RemovePath(a Allocator, path string) error {
	if o == nil {
		return domerr.New(domerr.WrongType, -1, "nil object")
	}
	return o.removePath(norm(a), path, true)
}

func (o *Object) removePath(a Allocator, path string, freeValue bool) error {
	dot := strings.IndexByte(path, '.')
	if dot < 0 {
		return o.removeInternal(a, path, freeValue)
	}
	inner := o.Get(path[:dot]).Object()
	if inner == nil {
		return domerr.New(domerr.KeyNotFound, -1, "path "+strconv.Quote(path)+" not found")
	}
	return inner.removePath(a, path[dot+1:], freeValue)
}
