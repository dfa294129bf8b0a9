// Package domparse parses JSON text into domtree values.
//
// The grammar is RFC 8259 JSON with the behaviors of the document model
// layered on: a single trailing comma before a closing bracket is tolerated,
// object keys must be unique, non-empty, and free of NUL bytes, string
// content must be valid UTF-8, and numbers must convert to finite IEEE 754
// doubles. Parsing stops after the first complete value; trailing bytes are
// ignored.
//
// ParseWithComments accepts the same grammar extended with // line and
// /* block */ comments outside string literals. Comments are blanked to
// spaces in a private copy before parsing, so error offsets always refer to
// the original input.
//
// All failures are *domerr.Error values carrying a class and a byte offset.
// A failed parse releases everything it allocated; no partial trees escape.
package domparse

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/lattice-substrate/jsondom/domerr"
	"github.com/lattice-substrate/jsondom/domtree"
)

// DefaultMaxDepth is the maximum object/array nesting depth unless Options
// overrides it.
const DefaultMaxDepth = 2048

// Options controls parser behavior.
type Options struct {
	MaxDepth int               // 0 means DefaultMaxDepth
	Alloc    domtree.Allocator // nil means the Go heap
}

func (o *Options) maxDepth() int {
	if o != nil && o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return DefaultMaxDepth
}

func (o *Options) alloc() domtree.Allocator {
	if o != nil && o.Alloc != nil {
		return o.Alloc
	}
	return domtree.Heap{}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse parses the first JSON value in data. A leading UTF-8 byte order
// mark is skipped.
func Parse(data []byte) (*domtree.Value, error) {
	return ParseWithOptions(data, nil)
}

// ParseString is Parse for string input.
func ParseString(s string) (*domtree.Value, error) {
	return ParseWithOptions([]byte(s), nil)
}

// ParseWithOptions is like Parse but accepts configuration options.
func ParseWithOptions(data []byte, opts *Options) (*domtree.Value, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	return parseRoot(data, opts)
}

// ParseWithComments parses JSON extended with // line and /* block */
// comments. Unlike Parse, a byte order mark is not skipped.
func ParseWithComments(data []byte) (*domtree.Value, error) {
	return ParseWithCommentsOptions(data, nil)
}

// ParseWithCommentsOptions is like ParseWithComments but accepts
// configuration options.
func ParseWithCommentsOptions(data []byte, opts *Options) (*domtree.Value, error) {
	clean := make([]byte, len(data))
	copy(clean, data)
	blankComments(clean, []byte("/*"), []byte("*/"))
	blankComments(clean, []byte("//"), []byte("\n"))
	return parseRoot(clean, opts)
}

func parseRoot(data []byte, opts *Options) (*domtree.Value, error) {
	p := &parser{
		data:     data,
		maxDepth: opts.maxDepth(),
		alloc:    opts.alloc(),
	}
	p.skipWhitespace()
	return p.parseValue()
}

// parser holds the state for parsing.
type parser struct {
	data     []byte
	pos      int
	depth    int
	maxDepth int
	alloc    domtree.Allocator
}

func (p *parser) errorf(class domerr.Class, format string, args ...any) *domerr.Error {
	return domerr.New(class, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.data) {
		return 0, false
	}
	return p.data[p.pos], true
}

func (p *parser) expect(b byte) error {
	if p.pos >= len(p.data) {
		return p.errorf(domerr.UnexpectedToken, "unexpected end of input, expected %q", string(b))
	}
	if c := p.data[p.pos]; c != b {
		return p.errorf(domerr.UnexpectedToken, "expected %q, got %q", string(b), string(c))
	}
	p.pos++
	return nil
}

// skipWhitespace skips the ASCII space-class bytes: space, \t, \n, \v, \f, \r.
func (p *parser) skipWhitespace() {
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case ' ', '\t', '\n', '\v', '\f', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) pushDepth() error {
	p.depth++
	if p.depth > p.maxDepth {
		return p.errorf(domerr.DepthExceeded, "nesting depth %d exceeds maximum %d", p.depth, p.maxDepth)
	}
	return nil
}

func (p *parser) popDepth() {
	p.depth--
}

// parseValue dispatches on the first byte of a token. The cursor must
// already be on the token.
func (p *parser) parseValue() (*domtree.Value, error) {
	c, ok := p.peek()
	if !ok {
		return nil, p.errorf(domerr.UnexpectedToken, "unexpected end of input")
	}

	switch {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		return p.parseStringValue()
	case c == 't' || c == 'f':
		return p.parseBool()
	case c == 'n':
		return p.parseNull()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return nil, p.errorf(domerr.UnexpectedToken, "unexpected byte %q", string(c))
	}
}

func (p *parser) parseObject() (*domtree.Value, error) {
	if err := p.pushDepth(); err != nil {
		return nil, err
	}
	defer p.popDepth()

	if err := p.expect('{'); err != nil {
		return nil, err
	}

	v := domtree.ObjectValue(p.alloc)
	if v == nil {
		return nil, p.errorf(domerr.AllocFailed, "object allocation failed")
	}
	obj := v.Object()

	p.skipWhitespace()
	if c, ok := p.peek(); ok && c == '}' {
		p.pos++
		return v, nil
	}

	for {
		p.skipWhitespace()

		keyStart := p.pos
		key, err := p.parseQuotedString()
		if err != nil {
			v.Release(p.alloc)
			return nil, err
		}
		if key == "" {
			v.Release(p.alloc)
			return nil, domerr.New(domerr.BadKey, keyStart, "empty object key")
		}
		if strings.IndexByte(key, 0) >= 0 {
			v.Release(p.alloc)
			return nil, domerr.New(domerr.BadKey, keyStart, "object key contains a NUL byte")
		}
		if obj.Has(key) {
			v.Release(p.alloc)
			return nil, domerr.New(domerr.DuplicateKey, keyStart, fmt.Sprintf("duplicate object key %q", key))
		}

		p.skipWhitespace()
		if err := p.expect(':'); err != nil {
			v.Release(p.alloc)
			return nil, err
		}
		p.skipWhitespace()

		val, err := p.parseValue()
		if err != nil {
			v.Release(p.alloc)
			return nil, err
		}
		if err := obj.Add(key, val); err != nil {
			val.Release(p.alloc)
			v.Release(p.alloc)
			return nil, err
		}

		p.skipWhitespace()
		c, ok := p.peek()
		if !ok {
			v.Release(p.alloc)
			return nil, p.errorf(domerr.UnexpectedToken, "unexpected end of input in object")
		}
		if c == '}' {
			p.pos++
			return v, nil
		}
		if c != ',' {
			v.Release(p.alloc)
			return nil, p.errorf(domerr.UnexpectedToken, "expected ',' or '}' in object, got %q", string(c))
		}
		p.pos++

		// Tolerate a trailing comma before the closing brace.
		p.skipWhitespace()
		if c, ok := p.peek(); ok && c == '}' {
			p.pos++
			return v, nil
		}
	}
}

func (p *parser) parseArray() (*domtree.Value, error) {
	if err := p.pushDepth(); err != nil {
		return nil, err
	}
	defer p.popDepth()

	if err := p.expect('['); err != nil {
		return nil, err
	}

	v := domtree.ArrayValue(p.alloc)
	if v == nil {
		return nil, p.errorf(domerr.AllocFailed, "array allocation failed")
	}
	arr := v.Array()

	p.skipWhitespace()
	if c, ok := p.peek(); ok && c == ']' {
		p.pos++
		return v, nil
	}

	for {
		p.skipWhitespace()

		elem, err := p.parseValue()
		if err != nil {
			v.Release(p.alloc)
			return nil, err
		}
		if err := arr.Append(elem); err != nil {
			elem.Release(p.alloc)
			v.Release(p.alloc)
			return nil, err
		}

		p.skipWhitespace()
		c, ok := p.peek()
		if !ok {
			v.Release(p.alloc)
			return nil, p.errorf(domerr.UnexpectedToken, "unexpected end of input in array")
		}
		if c == ']' {
			p.pos++
			return v, nil
		}
		if c != ',' {
			v.Release(p.alloc)
			return nil, p.errorf(domerr.UnexpectedToken, "expected ',' or ']' in array, got %q", string(c))
		}
		p.pos++

		// Tolerate a trailing comma before the closing bracket.
		p.skipWhitespace()
		if c, ok := p.peek(); ok && c == ']' {
			p.pos++
			return v, nil
		}
	}
}

func (p *parser) parseStringValue() (*domtree.Value, error) {
	s, err := p.parseQuotedString()
	if err != nil {
		return nil, err
	}
	v := domtree.StringValue(p.alloc, s)
	if v == nil {
		return nil, p.errorf(domerr.AllocFailed, "string allocation failed")
	}
	return v, nil
}

// parseQuotedString parses a string token and decodes all escapes. Raw
// multibyte content must be valid UTF-8; escaped content is valid by
// construction, surrogate halves having been rejected during decoding.
func (p *parser) parseQuotedString() (string, error) {
	if err := p.expect('"'); err != nil {
		return "", err
	}

	var buf []byte
	for {
		if p.pos >= len(p.data) {
			return "", p.errorf(domerr.BadString, "unterminated string")
		}
		b := p.data[p.pos]

		if b == '"' {
			p.pos++
			return string(buf), nil
		}

		if b == '\\' {
			p.pos++
			r, err := p.parseEscape()
			if err != nil {
				return "", err
			}
			var tmp [4]byte
			n := utf8.EncodeRune(tmp[:], r)
			buf = append(buf, tmp[:n]...)
			continue
		}

		if b < 0x20 {
			return "", p.errorf(domerr.BadString, "unescaped control character 0x%02X in string", b)
		}

		if b < utf8.RuneSelf {
			buf = append(buf, b)
			p.pos++
			continue
		}

		r, size := utf8.DecodeRune(p.data[p.pos:])
		if r == utf8.RuneError && size <= 1 {
			return "", p.errorf(domerr.InvalidUTF8, "invalid UTF-8 byte 0x%02X in string", b)
		}
		buf = append(buf, p.data[p.pos:p.pos+size]...)
		p.pos += size
	}
}

// parseEscape handles the character after '\'. Returns the decoded rune.
func (p *parser) parseEscape() (rune, error) {
	if p.pos >= len(p.data) {
		return 0, p.errorf(domerr.BadEscape, "unterminated escape sequence")
	}
	b := p.data[p.pos]
	p.pos++

	switch b {
	case '"':
		return '"', nil
	case '\\':
		return '\\', nil
	case '/':
		return '/', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'u':
		return p.parseUnicodeEscape()
	default:
		return 0, p.errorf(domerr.BadEscape, "invalid escape character %q", string(b))
	}
}

// parseUnicodeEscape parses \uXXXX, combining a lead/trail surrogate pair
// into its supplementary-plane scalar.
func (p *parser) parseUnicodeEscape() (rune, error) {
	r1, err := p.readHex4()
	if err != nil {
		return 0, err
	}

	if utf16.IsSurrogate(r1) {
		if r1 >= 0xDC00 {
			return 0, p.errorf(domerr.LoneSurrogate, "lone trail surrogate U+%04X", r1)
		}
		if p.pos+1 >= len(p.data) || p.data[p.pos] != '\\' || p.data[p.pos+1] != 'u' {
			return 0, p.errorf(domerr.LoneSurrogate, "lead surrogate U+%04X not followed by \\u", r1)
		}
		p.pos += 2
		r2, err := p.readHex4()
		if err != nil {
			return 0, err
		}
		if r2 < 0xDC00 || r2 > 0xDFFF {
			return 0, p.errorf(domerr.LoneSurrogate, "lead surrogate U+%04X followed by non-trail U+%04X", r1, r2)
		}
		return utf16.DecodeRune(r1, r2), nil
	}

	return r1, nil
}

// readHex4 reads exactly 4 hex digits and returns the code unit.
func (p *parser) readHex4() (rune, error) {
	if p.pos+4 > len(p.data) {
		return 0, p.errorf(domerr.BadEscape, "incomplete \\u escape")
	}
	hex := string(p.data[p.pos : p.pos+4])
	p.pos += 4
	val, err := strconv.ParseUint(hex, 16, 16)
	if err != nil {
		return 0, p.errorf(domerr.BadEscape, "invalid hex in \\u escape: %q", hex)
	}
	return rune(val), nil
}

// parseNumber consumes a number lexeme and converts it. The scan accepts an
// empty fraction ("1.") and a bare "-0", leaves a dangling exponent marker
// unconsumed ("1e" parses as 1), and then re-validates the lexeme: a leading
// zero must be followed by a decimal point, and hex input is rejected.
func (p *parser) parseNumber() (*domtree.Value, error) {
	start := p.pos

	if p.data[p.pos] == '-' {
		p.pos++
	}

	digits := 0
	for p.pos < len(p.data) && isDigit(p.data[p.pos]) {
		p.pos++
		digits++
	}

	lexeme := p.data[start:p.pos]
	if p.pos+1 < len(p.data) && (p.data[p.pos] == 'x' || p.data[p.pos] == 'X') &&
		isHexDigit(p.data[p.pos+1]) &&
		(string(lexeme) == "0" || string(lexeme) == "-0") {
		return nil, domerr.New(domerr.BadNumber, start, "hex form is not a JSON number")
	}

	if p.pos < len(p.data) && p.data[p.pos] == '.' {
		p.pos++
		for p.pos < len(p.data) && isDigit(p.data[p.pos]) {
			p.pos++
			digits++
		}
	}

	if digits == 0 {
		return nil, domerr.New(domerr.BadNumber, start, "number has no digits")
	}

	if p.pos < len(p.data) && (p.data[p.pos] == 'e' || p.data[p.pos] == 'E') {
		mark := p.pos
		p.pos++
		if p.pos < len(p.data) && (p.data[p.pos] == '+' || p.data[p.pos] == '-') {
			p.pos++
		}
		if p.pos < len(p.data) && isDigit(p.data[p.pos]) {
			for p.pos < len(p.data) && isDigit(p.data[p.pos]) {
				p.pos++
			}
		} else {
			p.pos = mark
		}
	}

	raw := string(p.data[start:p.pos])

	if len(raw) > 1 && raw[0] == '0' && raw[1] != '.' {
		return nil, domerr.New(domerr.BadNumber, start, fmt.Sprintf("leading zero in number %q", raw))
	}
	if len(raw) > 2 && raw[0] == '-' && raw[1] == '0' && raw[2] != '.' {
		return nil, domerr.New(domerr.BadNumber, start, fmt.Sprintf("leading zero in number %q", raw))
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		ne, ok := err.(*strconv.NumError)
		if !ok || ne.Err != strconv.ErrRange {
			return nil, domerr.Wrap(domerr.BadNumber, start, fmt.Sprintf("invalid number %q", raw), err)
		}
		if math.IsInf(f, 0) {
			return nil, domerr.New(domerr.NumberOverflow, start, fmt.Sprintf("number %q overflows an IEEE 754 double", raw))
		}
		// Underflow: ParseFloat returned the nearest representable value
		// (zero or a subnormal). Keep it.
	}

	v := domtree.NumberValue(p.alloc, f)
	if v == nil {
		return nil, domerr.New(domerr.AllocFailed, start, "number allocation failed")
	}
	return v, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func (p *parser) parseBool() (*domtree.Value, error) {
	var v *domtree.Value
	switch {
	case bytes.HasPrefix(p.data[p.pos:], []byte("true")):
		p.pos += len("true")
		v = domtree.BoolValue(p.alloc, true)
	case bytes.HasPrefix(p.data[p.pos:], []byte("false")):
		p.pos += len("false")
		v = domtree.BoolValue(p.alloc, false)
	default:
		return nil, p.errorf(domerr.UnexpectedToken, "invalid literal")
	}
	if v == nil {
		return nil, p.errorf(domerr.AllocFailed, "value allocation failed")
	}
	return v, nil
}

func (p *parser) parseNull() (*domtree.Value, error) {
	if !bytes.HasPrefix(p.data[p.pos:], []byte("null")) {
		return nil, p.errorf(domerr.UnexpectedToken, "invalid literal")
	}
	p.pos += len("null")
	v := domtree.NullValue(p.alloc)
	if v == nil {
		return nil, p.errorf(domerr.AllocFailed, "value allocation failed")
	}
	return v, nil
}

// blankComments overwrites every span from open through close with spaces,
// skipping spans inside string literals. Byte offsets are unchanged. An
// unterminated comment has only its opener blanked; the stray remainder is
// left for the parser to reject. For line comments the closing newline is
// blanked too, which joins the surrounding lines.
func blankComments(data, open, close []byte) {
	inString := false
	escaped := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '\\' && !escaped {
			escaped = true
			continue
		}
		if c == '"' && !escaped {
			inString = !inString
		} else if !inString && bytes.HasPrefix(data[i:], open) {
			for j := range open {
				data[i+j] = ' '
			}
			rest := i + len(open)
			end := bytes.Index(data[rest:], close)
			if end < 0 {
				return
			}
			for j := rest; j < rest+end+len(close); j++ {
				data[j] = ' '
			}
			i = rest + end + len(close) - 1
		}
		escaped = false
	}
}
