package domtree

// DeepCopy builds a structurally identical tree sharing no storage with the
// original. The copy is parentless. Returns nil on allocation failure, with
// any partially built copy released.
func (v *Value) DeepCopy(a Allocator) *Value {
	if v == nil {
		return nil
	}
	return deepCopy(norm(a), v)
}

func deepCopy(a Allocator, v *Value) *Value {
	switch v.kind {
	case KindArray:
		nv := ArrayValue(a)
		if nv == nil {
			return nil
		}
		for _, item := range v.arr.items {
			c := deepCopy(a, item)
			if c == nil {
				releaseTree(a, nv)
				return nil
			}
			nv.arr.add(c)
		}
		return nv
	case KindObject:
		nv := ObjectValue(a)
		if nv == nil {
			return nil
		}
		src := v.obj
		for i, name := range src.names {
			c := deepCopy(a, src.values[i])
			if c == nil {
				releaseTree(a, nv)
				return nil
			}
			if err := nv.obj.Add(name, c); err != nil {
				releaseTree(a, c)
				releaseTree(a, nv)
				return nil
			}
		}
		return nv
	case KindString:
		// Payload was validated when first constructed or parsed.
		return newString(a, v.str)
	case KindNumber:
		return NumberValue(a, v.num)
	case KindBool:
		return BoolValue(a, v.b)
	case KindNull:
		return NullValue(a)
	default:
		return nil
	}
}
