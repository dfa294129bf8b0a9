package domtree

// MatchShape reports whether value conforms to the shape described by
// schema. The rules:
//
//   - a null schema matches any value;
//   - scalar schemas match on kind alone;
//   - an empty schema array matches any array, otherwise its first element
//     describes every element of the checked array (an empty checked array
//     passes vacuously);
//   - an empty schema object matches any object, otherwise every schema
//     member must be present with a conforming shape in the checked object,
//     which must have at least as many members as the schema.
//
// Nil arguments never match.
func MatchShape(schema, value *Value) bool {
	if schema == nil || value == nil {
		return false
	}
	st := schema.Kind()
	if st != value.Kind() && st != KindNull {
		return false
	}
	switch st {
	case KindArray:
		sa, va := schema.arr, value.arr
		if len(sa.items) == 0 {
			return true
		}
		elem := sa.items[0]
		for _, item := range va.items {
			if !MatchShape(elem, item) {
				return false
			}
		}
		return true
	case KindObject:
		so, vo := schema.obj, value.obj
		if len(so.names) == 0 {
			return true
		}
		if len(vo.names) < len(so.names) {
			return false
		}
		for i, name := range so.names {
			got := vo.Get(name)
			if got == nil {
				return false
			}
			if !MatchShape(so.values[i], got) {
				return false
			}
		}
		return true
	case KindNull, KindString, KindNumber, KindBool:
		return true
	default:
		return false
	}
}
