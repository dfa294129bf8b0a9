package domtree

import "math"

// numberEpsilon is the absolute tolerance for number comparison.
const numberEpsilon = 0.000001

// Equal reports deep structural equality. Arrays compare element by element
// in order; objects compare by key regardless of insertion order; numbers
// compare with an absolute tolerance of 1e-6; strings compare byte for byte.
// Two nulls are equal, as are two error-kind values (including two nils).
func (v *Value) Equal(w *Value) bool {
	if v.Kind() != w.Kind() {
		return false
	}
	switch v.Kind() {
	case KindArray:
		a, b := v.arr, w.arr
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !a.items[i].Equal(b.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		a, b := v.obj, w.obj
		if len(a.names) != len(b.names) {
			return false
		}
		for i, name := range a.names {
			if !a.values[i].Equal(b.Get(name)) {
				return false
			}
		}
		return true
	case KindString:
		return v.str == w.str
	case KindNumber:
		return math.Abs(v.num-w.num) < numberEpsilon
	case KindBool:
		return v.b == w.b
	default:
		return true
	}
}
