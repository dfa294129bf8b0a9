package domtree

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lattice-substrate/jsondom/domerr"
)

// Object storage is a pair of structures kept in sync: dense parallel slices
// (names, values, hashes, cellIdx) in insertion order, and an open-addressing
// cell index mapping hash probes to dense positions. The cell table is always
// a power of two and grows at a 7/10 load factor, so probe chains stay short
// and a lookup can stop at the first empty cell. Deletion closes probe chains
// by backward shifting instead of tombstoning.
type Object struct {
	wrap    *Value
	cells   []int
	names   []string
	values  []*Value
	cellIdx []int
	hashes  []uint64
	itemCap int
}

const (
	startingCapacity = 16
	ixNotFound       = -1
)

// hashKey is djb2. Keys never contain NUL, but the early stop is kept as a
// hardening measure so a corrupted key cannot hash past one.
func hashKey(s string) uint64 {
	h := uint64(5381)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0 {
			break
		}
		h = h*33 + uint64(c)
	}
	return h
}

func checkKey(key string) error {
	if key == "" {
		return domerr.New(domerr.BadKey, -1, "empty key")
	}
	if strings.IndexByte(key, 0) >= 0 {
		return domerr.New(domerr.BadKey, -1, "key contains NUL byte")
	}
	return nil
}

// findCell returns the cell holding key, or the first empty cell of its probe
// chain when the key is absent. With zero cells it reports not found without
// probing.
func (o *Object) findCell(key string, h uint64) (int, bool) {
	mask := uint64(len(o.cells) - 1)
	start := h & mask
	for i := uint64(0); i < uint64(len(o.cells)); i++ {
		cell := int((start + i) & mask)
		ix := o.cells[cell]
		if ix == ixNotFound {
			return cell, false
		}
		if o.hashes[ix] == h && o.names[ix] == key {
			return cell, true
		}
	}
	return ixNotFound, false
}

// grow doubles the cell table (16 cells minimum) and reinserts every dense
// entry in insertion order, so growth never disturbs iteration order.
func (o *Object) grow() {
	newCap := len(o.cells) * 2
	if newCap < startingCapacity {
		newCap = startingCapacity
	}
	o.cells = make([]int, newCap)
	for i := range o.cells {
		o.cells[i] = ixNotFound
	}
	o.itemCap = newCap * 7 / 10
	for ix := range o.names {
		cell, _ := o.findCell(o.names[ix], o.hashes[ix])
		o.cells[cell] = ix
		o.cellIdx[ix] = cell
	}
}

// Value returns the value wrapping this object.
func (o *Object) Value() *Value {
	if o == nil {
		return nil
	}
	return o.wrap
}

// Len returns the number of members.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.names)
}

// Get returns the member value for key, or nil when absent.
func (o *Object) Get(key string) *Value {
	if o == nil {
		return nil
	}
	cell, found := o.findCell(key, hashKey(key))
	if !found {
		return nil
	}
	return o.values[o.cells[cell]]
}

// GetString returns the string member for key, or "" when the key is absent
// or holds a different kind.
func (o *Object) GetString(key string) string {
	s, _ := o.Get(key).Str()
	return s
}

// GetNumber returns the number member for key, or 0 when the key is absent
// or holds a different kind.
func (o *Object) GetNumber(key string) float64 {
	f, _ := o.Get(key).Num()
	return f
}

// GetBool returns the boolean member for key. The second result is false
// when the key is absent or holds a different kind.
func (o *Object) GetBool(key string) (bool, bool) {
	return o.Get(key).Bool()
}

// GetObject returns the object member for key, or nil.
func (o *Object) GetObject(key string) *Object {
	return o.Get(key).Object()
}

// GetArray returns the array member for key, or nil.
func (o *Object) GetArray(key string) *Array {
	return o.Get(key).Array()
}

// NameAt returns the i-th key in insertion order, or "" out of range.
func (o *Object) NameAt(i int) string {
	if o == nil || i < 0 || i >= len(o.names) {
		return ""
	}
	return o.names[i]
}

// ValueAt returns the i-th member value in insertion order, or nil out of
// range.
func (o *Object) ValueAt(i int) *Value {
	if o == nil || i < 0 || i >= len(o.values) {
		return nil
	}
	return o.values[i]
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	return o.Get(key) != nil
}

// HasKind reports whether key is present and holds the given kind.
func (o *Object) HasKind(key string, k Kind) bool {
	v := o.Get(key)
	return v != nil && v.Kind() == k
}

// Add inserts a new member. It fails with DUPLICATE_KEY when the key is
// already present, BAD_KEY for empty or NUL-bearing keys, and HAS_PARENT
// when the value is owned elsewhere. On success ownership moves to the
// object.
func (o *Object) Add(key string, v *Value) error {
	if o == nil || v == nil {
		return domerr.New(domerr.WrongType, -1, "nil object or value")
	}
	if err := checkKey(key); err != nil {
		return err
	}
	if v.parent != nil {
		return domerr.New(domerr.HasParent, -1, "value already has a parent")
	}
	h := hashKey(key)
	cell, found := o.findCell(key, h)
	if found {
		return domerr.New(domerr.DuplicateKey, -1, "duplicate key "+strconv.Quote(key))
	}
	if len(o.names) >= o.itemCap {
		o.grow()
		cell, _ = o.findCell(key, h)
	}
	o.cells[cell] = len(o.names)
	o.names = append(o.names, key)
	o.values = append(o.values, v)
	o.cellIdx = append(o.cellIdx, cell)
	o.hashes = append(o.hashes, h)
	v.parent = o.wrap
	return nil
}

// Set inserts or replaces the member for key. A replaced occupant is
// released; its dense position, and therefore iteration order, is kept.
func (o *Object) Set(a Allocator, key string, v *Value) error {
	if o == nil || v == nil {
		return domerr.New(domerr.WrongType, -1, "nil object or value")
	}
	if err := checkKey(key); err != nil {
		return err
	}
	if v.parent != nil {
		return domerr.New(domerr.HasParent, -1, "value already has a parent")
	}
	h := hashKey(key)
	cell, found := o.findCell(key, h)
	if found {
		ix := o.cells[cell]
		old := o.values[ix]
		old.parent = nil
		releaseTree(norm(a), old)
		o.values[ix] = v
		v.parent = o.wrap
		return nil
	}
	if len(o.names) >= o.itemCap {
		o.grow()
		cell, _ = o.findCell(key, h)
	}
	o.cells[cell] = len(o.names)
	o.names = append(o.names, key)
	o.values = append(o.values, v)
	o.cellIdx = append(o.cellIdx, cell)
	o.hashes = append(o.hashes, h)
	v.parent = o.wrap
	return nil
}

// SetString sets key to a fresh string value.
func (o *Object) SetString(a Allocator, key, s string) error {
	aa := norm(a)
	if !utf8.ValidString(s) {
		return domerr.New(domerr.InvalidUTF8, -1, "string payload is not valid UTF-8")
	}
	v := newString(aa, s)
	if v == nil {
		return domerr.New(domerr.AllocFailed, -1, "string value")
	}
	if err := o.Set(aa, key, v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// SetNumber sets key to a fresh number value. NaN and infinities fail.
func (o *Object) SetNumber(a Allocator, key string, f float64) error {
	aa := norm(a)
	v := NumberValue(aa, f)
	if v == nil {
		return domerr.New(domerr.BadNumber, -1, "number is NaN, infinite, or unallocatable")
	}
	if err := o.Set(aa, key, v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// SetBool sets key to a fresh boolean value.
func (o *Object) SetBool(a Allocator, key string, b bool) error {
	aa := norm(a)
	v := BoolValue(aa, b)
	if v == nil {
		return domerr.New(domerr.AllocFailed, -1, "boolean value")
	}
	if err := o.Set(aa, key, v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// SetNull sets key to a fresh null value.
func (o *Object) SetNull(a Allocator, key string) error {
	aa := norm(a)
	v := NullValue(aa)
	if v == nil {
		return domerr.New(domerr.AllocFailed, -1, "null value")
	}
	if err := o.Set(aa, key, v); err != nil {
		releaseTree(aa, v)
		return err
	}
	return nil
}

// Remove deletes the member for key and releases its subtree.
func (o *Object) Remove(a Allocator, key string) error {
	if o == nil {
		return domerr.New(domerr.WrongType, -1, "nil object")
	}
	return o.removeInternal(norm(a), key, true)
}

// removeInternal deletes key from both the dense arrays and the cell index.
// The last dense entry is swapped into the vacated slot, then the probe
// chain after the vacated cell is compacted by backward shifting: an entry
// moves into the hole when its ideal cell does not sit inside the scanned
// gap, tested with wraparound on both sides.
func (o *Object) removeInternal(a Allocator, key string, freeValue bool) error {
	h := hashKey(key)
	cell, found := o.findCell(key, h)
	if !found {
		return domerr.New(domerr.KeyNotFound, -1, "key "+strconv.Quote(key)+" not found")
	}
	itemIx := o.cells[cell]
	old := o.values[itemIx]
	old.parent = nil
	if freeValue {
		releaseTree(a, old)
	}

	last := len(o.names) - 1
	if itemIx < last {
		o.names[itemIx] = o.names[last]
		o.values[itemIx] = o.values[last]
		o.cellIdx[itemIx] = o.cellIdx[last]
		o.hashes[itemIx] = o.hashes[last]
		o.cells[o.cellIdx[itemIx]] = itemIx
	}
	o.names = o.names[:last]
	o.values[last] = nil
	o.values = o.values[:last]
	o.cellIdx = o.cellIdx[:last]
	o.hashes = o.hashes[:last]

	mask := len(o.cells) - 1
	i := cell
	j := i
	for x := 0; x < len(o.cells)-1; x++ {
		j = (j + 1) & mask
		if o.cells[j] == ixNotFound {
			break
		}
		k := int(o.hashes[o.cells[j]] & uint64(mask))
		if (j > i && (k <= i || k > j)) || (j < i && (k <= i && k > j)) {
			o.cellIdx[o.cells[j]] = i
			o.cells[i] = o.cells[j]
			i = j
		}
	}
	o.cells[i] = ixNotFound
	return nil
}

// Clear releases every member. Capacity is retained.
func (o *Object) Clear(a Allocator) error {
	if o == nil {
		return domerr.New(domerr.WrongType, -1, "nil object")
	}
	aa := norm(a)
	for i := range o.values {
		o.values[i].parent = nil
		releaseTree(aa, o.values[i])
		o.values[i] = nil
	}
	o.names = o.names[:0]
	o.values = o.values[:0]
	o.cellIdx = o.cellIdx[:0]
	o.hashes = o.hashes[:0]
	for i := range o.cells {
		o.cells[i] = ixNotFound
	}
	return nil
}
