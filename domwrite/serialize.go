// Package domwrite renders domtree values as JSON text.
//
// Rendering runs the same traversal twice: a counting pass with no
// destination, then a writing pass into a buffer of exactly the counted
// size. Size and SizePretty expose the counting pass so callers can plan
// storage before serializing. Object members are written in insertion
// order. Compact output carries no whitespace; pretty output breaks the
// line after every bracket of a non-empty container and indents four
// spaces per nesting level.
//
// Escaping and number rendering are adjusted through Options. The defaults
// escape forward slashes and print numbers with 17 significant digits, so
// any finite double round-trips through its own output.
package domwrite

import (
	"fmt"

	"github.com/lattice-substrate/jsondom/domerr"
	"github.com/lattice-substrate/jsondom/domnum"
	"github.com/lattice-substrate/jsondom/domtree"
)

const indentStr = "    "

// NumberFunc renders a number by appending its JSON text to dst and
// returning the extended slice. An error aborts the serialization.
type NumberFunc func(dst []byte, f float64) ([]byte, error)

// Options adjust rendering. The zero value (and a nil *Options) selects
// compact output, slash escaping, and 17-digit numbers.
type Options struct {
	// Pretty breaks lines and indents nested containers.
	Pretty bool

	// RawSlashes leaves '/' unescaped. By default it is written as \/ so
	// output can be embedded in HTML script elements.
	RawSlashes bool

	// FloatFormat replaces the default number rendering with a printf
	// format string consuming one float64, e.g. "%.10g". The caller is
	// responsible for the format producing valid JSON number text.
	// Ignored when NumberFunc is set.
	FloatFormat string

	// NumberFunc takes over number rendering entirely.
	NumberFunc NumberFunc

	// Alloc supplies the output buffer for Serialize. Nil means the Go heap.
	Alloc domtree.Allocator
}

func (o *Options) isPretty() bool { return o != nil && o.Pretty }

func (o *Options) slashesRaw() bool { return o != nil && o.RawSlashes }

func (o *Options) floatFormat() string {
	if o == nil {
		return ""
	}
	return o.FloatFormat
}

func (o *Options) numberFunc() NumberFunc {
	if o == nil {
		return nil
	}
	return o.NumberFunc
}

func (o *Options) alloc() domtree.Allocator {
	if o == nil || o.Alloc == nil {
		return domtree.Heap{}
	}
	return o.Alloc
}

// Size reports the exact number of bytes Serialize would produce for v.
func Size(v *domtree.Value) (int, error) {
	return SizeWithOptions(v, nil)
}

// SizePretty reports the exact number of bytes SerializePretty would produce.
func SizePretty(v *domtree.Value) (int, error) {
	return SizeWithOptions(v, &Options{Pretty: true})
}

// SizeWithOptions reports the serialized size of v under o.
func SizeWithOptions(v *domtree.Value, o *Options) (int, error) {
	w := newWriter(o, nil)
	if err := w.writeValue(v, 0); err != nil {
		return 0, err
	}
	return w.n, nil
}

// Serialize renders v as compact JSON.
func Serialize(v *domtree.Value) ([]byte, error) {
	return SerializeWithOptions(v, nil)
}

// SerializePretty renders v with newlines and indentation.
func SerializePretty(v *domtree.Value) ([]byte, error) {
	return SerializeWithOptions(v, &Options{Pretty: true})
}

// SerializeWithOptions renders v under o. The output buffer comes from the
// options allocator, sized by the counting pass, so the returned slice is
// exact with no spare capacity.
func SerializeWithOptions(v *domtree.Value, o *Options) ([]byte, error) {
	n, err := SizeWithOptions(v, o)
	if err != nil {
		return nil, err
	}
	buf := o.alloc().NewBytes(n)
	if buf == nil {
		return nil, domerr.New(domerr.AllocFailed, -1, "output buffer")
	}
	w := newWriter(o, buf[:0])
	if err := w.writeValue(v, 0); err != nil {
		o.alloc().FreeBytes(buf)
		return nil, err
	}
	return w.dst, nil
}

// SerializeToBuffer renders v as compact JSON into buf and returns the
// number of bytes written. It fails with class ShortBuffer when buf cannot
// hold the whole document.
func SerializeToBuffer(v *domtree.Value, buf []byte) (int, error) {
	return SerializeToBufferWithOptions(v, buf, nil)
}

// SerializeToBufferPretty is SerializeToBuffer in pretty mode.
func SerializeToBufferPretty(v *domtree.Value, buf []byte) (int, error) {
	return SerializeToBufferWithOptions(v, buf, &Options{Pretty: true})
}

// SerializeToBufferWithOptions renders v under o into buf.
func SerializeToBufferWithOptions(v *domtree.Value, buf []byte, o *Options) (int, error) {
	n, err := SizeWithOptions(v, o)
	if err != nil {
		return 0, err
	}
	if n > len(buf) {
		return 0, domerr.New(domerr.ShortBuffer, -1,
			fmt.Sprintf("need %d bytes, buffer holds %d", n, len(buf)))
	}
	w := newWriter(o, buf[:0])
	if err := w.writeValue(v, 0); err != nil {
		return 0, err
	}
	return w.n, nil
}

// writer emits bytes for both passes through one code path: the counting
// pass leaves dst nil and only advances n, the writing pass appends too.
type writer struct {
	dst        []byte
	n          int
	pretty     bool
	rawSlashes bool
	floatFmt   string
	numberFn   NumberFunc
	num        []byte // scratch, reused for every number in the traversal
}

func newWriter(o *Options, dst []byte) *writer {
	return &writer{
		dst:        dst,
		pretty:     o.isPretty(),
		rawSlashes: o.slashesRaw(),
		floatFmt:   o.floatFormat(),
		numberFn:   o.numberFunc(),
		num:        make([]byte, 0, domnum.MaxLen),
	}
}

func (w *writer) emit(s string) {
	w.n += len(s)
	if w.dst != nil {
		w.dst = append(w.dst, s...)
	}
}

func (w *writer) emitByte(b byte) {
	w.n++
	if w.dst != nil {
		w.dst = append(w.dst, b)
	}
}

func (w *writer) indent(level int) {
	for i := 0; i < level; i++ {
		w.emit(indentStr)
	}
}

func (w *writer) writeValue(v *domtree.Value, level int) error {
	switch v.Kind() {
	case domtree.KindNull:
		w.emit("null")
	case domtree.KindBool:
		if b, _ := v.Bool(); b {
			w.emit("true")
		} else {
			w.emit("false")
		}
	case domtree.KindString:
		s, _ := v.Str()
		w.writeString(s)
	case domtree.KindNumber:
		f, _ := v.Num()
		return w.writeNumber(f)
	case domtree.KindArray:
		return w.writeArray(v.Array(), level)
	case domtree.KindObject:
		return w.writeObject(v.Object(), level)
	default:
		return domerr.New(domerr.WrongType, -1, "cannot serialize an error-kind value")
	}
	return nil
}

func (w *writer) writeArray(ar *domtree.Array, level int) error {
	n := ar.Len()
	w.emitByte('[')
	if n > 0 && w.pretty {
		w.emitByte('\n')
	}
	for i := 0; i < n; i++ {
		if w.pretty {
			w.indent(level + 1)
		}
		if err := w.writeValue(ar.Get(i), level+1); err != nil {
			return err
		}
		if i < n-1 {
			w.emitByte(',')
		}
		if w.pretty {
			w.emitByte('\n')
		}
	}
	if n > 0 && w.pretty {
		w.indent(level)
	}
	w.emitByte(']')
	return nil
}

func (w *writer) writeObject(obj *domtree.Object, level int) error {
	n := obj.Len()
	w.emitByte('{')
	if n > 0 && w.pretty {
		w.emitByte('\n')
	}
	for i := 0; i < n; i++ {
		if w.pretty {
			w.indent(level + 1)
		}
		w.writeString(obj.NameAt(i))
		w.emitByte(':')
		if w.pretty {
			w.emitByte(' ')
		}
		if err := w.writeValue(obj.ValueAt(i), level+1); err != nil {
			return err
		}
		if i < n-1 {
			w.emitByte(',')
		}
		if w.pretty {
			w.emitByte('\n')
		}
	}
	if n > 0 && w.pretty {
		w.indent(level)
	}
	w.emitByte('}')
	return nil
}

// writeString escapes and quotes s:
//   - " \ and the named controls \b \f \n \r \t use two-character escapes
//   - other bytes below 0x20 become \u00xx with lowercase hex
//   - / becomes \/ unless RawSlashes is set
//   - everything else is copied verbatim, multi-byte UTF-8 included
func (w *writer) writeString(s string) {
	w.emitByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			w.emit(`\"`)
		case '\\':
			w.emit(`\\`)
		case '\b':
			w.emit(`\b`)
		case '\f':
			w.emit(`\f`)
		case '\n':
			w.emit(`\n`)
		case '\r':
			w.emit(`\r`)
		case '\t':
			w.emit(`\t`)
		case '/':
			if w.rawSlashes {
				w.emitByte('/')
			} else {
				w.emit(`\/`)
			}
		default:
			if c < 0x20 {
				w.emit(`\u00`)
				w.emitByte(hexDigit(c >> 4))
				w.emitByte(hexDigit(c & 0x0F))
			} else {
				w.emitByte(c)
			}
		}
	}
	w.emitByte('"')
}

func (w *writer) writeNumber(f float64) error {
	var err error
	w.num = w.num[:0]
	switch {
	case w.numberFn != nil:
		w.num, err = w.numberFn(w.num, f)
	case w.floatFmt != "":
		w.num, err = domnum.AppendFormat(w.num, w.floatFmt, f)
	default:
		w.num, err = domnum.Append(w.num, f)
	}
	if err != nil {
		return domerr.Wrap(domerr.BadNumber, -1, "number rendering failed", err)
	}
	w.n += len(w.num)
	if w.dst != nil {
		w.dst = append(w.dst, w.num...)
	}
	return nil
}

func hexDigit(b byte) byte {
	if b < 10 {
		return '0' + b
	}
	return 'a' + (b - 10)
}
