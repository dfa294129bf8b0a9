package domparse_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/lattice-substrate/jsondom/domerr"
	"github.com/lattice-substrate/jsondom/domparse"
	"github.com/lattice-substrate/jsondom/domtree"
)

func mustParse(t *testing.T, in string) *domtree.Value {
	t.Helper()
	v, err := domparse.Parse([]byte(in))
	if err != nil {
		t.Fatalf("parse %q: %v", in, err)
	}
	return v
}

func mustParseErr(t *testing.T, in string) *domerr.Error {
	t.Helper()
	return mustParseErrBytes(t, []byte(in))
}

func mustParseErrBytes(t *testing.T, in []byte) *domerr.Error {
	t.Helper()
	_, err := domparse.Parse(in)
	if err == nil {
		t.Fatalf("expected error for %q", in)
	}
	var de *domerr.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *domerr.Error, got %T: %v", err, err)
	}
	return de
}

func mustNumber(t *testing.T, v *domtree.Value) float64 {
	t.Helper()
	f, ok := v.Num()
	if !ok {
		t.Fatalf("expected a number, got %s", v.Kind())
	}
	return f
}

func TestParseScalars(t *testing.T) {
	if k := mustParse(t, `null`).Kind(); k != domtree.KindNull {
		t.Fatalf("null: got %s", k)
	}
	if b, ok := mustParse(t, `true`).Bool(); !ok || !b {
		t.Fatalf("true: got %v %v", b, ok)
	}
	if b, ok := mustParse(t, `false`).Bool(); !ok || b {
		t.Fatalf("false: got %v %v", b, ok)
	}
	if f := mustNumber(t, mustParse(t, `42`)); f != 42 {
		t.Fatalf("42: got %v", f)
	}
	if s, ok := mustParse(t, `"hello"`).Str(); !ok || s != "hello" {
		t.Fatalf("string: got %q %v", s, ok)
	}
}

func TestParseObjectMemberAccess(t *testing.T) {
	v := mustParse(t, `{"a":1,"b":[true,null]}`)
	obj := v.Object()
	if obj == nil {
		t.Fatalf("expected an object, got %s", v.Kind())
	}
	if got := obj.GetNumber("a"); got != 1 {
		t.Fatalf("a: got %v", got)
	}
	arr := obj.GetArray("b")
	if arr == nil {
		t.Fatal("b is not an array")
	}
	if b, ok := arr.Get(0).Bool(); !ok || !b {
		t.Fatalf("b[0]: got %v %v", b, ok)
	}
	if k := arr.Get(1).Kind(); k != domtree.KindNull {
		t.Fatalf("b[1]: got %s", k)
	}
}

func TestParsePreservesMemberOrder(t *testing.T) {
	v := mustParse(t, `{"z":1,"a":2,"m":3}`)
	obj := v.Object()
	want := []string{"z", "a", "m"}
	if obj.Len() != len(want) {
		t.Fatalf("member count: got %d want %d", obj.Len(), len(want))
	}
	for i, name := range want {
		if got := obj.NameAt(i); got != name {
			t.Fatalf("member %d: got %q want %q", i, got, name)
		}
	}
}

func TestParseNestedNavigation(t *testing.T) {
	v := mustParse(t, `{"server":{"host":"db1","ports":[6379,6380]},"tls":false}`)
	obj := v.Object()
	if got := obj.GetPathString("server.host"); got != "db1" {
		t.Fatalf("server.host: got %q", got)
	}
	ports := obj.GetPathArray("server.ports")
	if ports == nil || ports.Len() != 2 {
		t.Fatalf("server.ports: got %v", ports)
	}
	if got := ports.GetNumber(1); got != 6380 {
		t.Fatalf("ports[1]: got %v", got)
	}
}

func TestParseWhitespace(t *testing.T) {
	// Every ASCII space-class byte is insignificant between tokens.
	v := mustParse(t, " \t\r\n\v\f{ \t\"a\"\v:\f1 ,\n\"b\" : 2 }")
	obj := v.Object()
	if obj.GetNumber("a") != 1 || obj.GetNumber("b") != 2 {
		t.Fatalf("unexpected members: %v %v", obj.GetNumber("a"), obj.GetNumber("b"))
	}
}

func TestParseTrailingCommaTolerated(t *testing.T) {
	v := mustParse(t, `[1,2,]`)
	arr := v.Array()
	if arr.Len() != 2 || arr.GetNumber(0) != 1 || arr.GetNumber(1) != 2 {
		t.Fatalf("unexpected array: len=%d", arr.Len())
	}

	v = mustParse(t, `{"a":1,}`)
	obj := v.Object()
	if obj.Len() != 1 || obj.GetNumber("a") != 1 {
		t.Fatalf("unexpected object: len=%d", obj.Len())
	}

	v = mustParse(t, "{\"a\":1 , \n}")
	if v.Object().Len() != 1 {
		t.Fatal("trailing comma with whitespace")
	}
}

func TestParseStrayCommasRejected(t *testing.T) {
	for _, in := range []string{`[,]`, `{,}`, `[1,,2]`, `[,1]`, `{,"a":1}`} {
		de := mustParseErr(t, in)
		if de.Class != domerr.UnexpectedToken {
			t.Fatalf("%q: expected UNEXPECTED_TOKEN, got %s", in, de.Class)
		}
	}
}

func TestParseTrailingBytesIgnored(t *testing.T) {
	cases := []struct {
		in   string
		kind domtree.Kind
	}{
		{`{"a":1} extra garbage`, domtree.KindObject},
		{`[1,2] ]]]`, domtree.KindArray},
		{`123abc`, domtree.KindNumber},
		{`nullx`, domtree.KindNull},
		{`truex`, domtree.KindBool},
		{`"s" "t"`, domtree.KindString},
		{`1e`, domtree.KindNumber}, // dangling exponent marker is trailing content
	}
	for _, c := range cases {
		v := mustParse(t, c.in)
		if v.Kind() != c.kind {
			t.Fatalf("%q: got %s want %s", c.in, v.Kind(), c.kind)
		}
	}
	if f := mustNumber(t, mustParse(t, `1e`)); f != 1 {
		t.Fatalf("1e: got %v", f)
	}
}

func TestParseByteOrderMark(t *testing.T) {
	bom := "\xEF\xBB\xBF"

	v := mustParse(t, bom+`{"a":1}`)
	if v.Object().GetNumber("a") != 1 {
		t.Fatal("BOM-prefixed document")
	}

	// The mark is only recognized at byte zero.
	de := mustParseErr(t, " "+bom+`{}`)
	if de.Class != domerr.UnexpectedToken {
		t.Fatalf("interior BOM: got %s", de.Class)
	}

	// The comment-aware entry point does not skip it.
	if _, err := domparse.ParseWithComments([]byte(bom + `{}`)); err == nil {
		t.Fatal("expected ParseWithComments to reject a BOM")
	}
}

func TestParseStringEscapes(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`"\""`, `"`},
		{`"\\"`, `\`},
		{`"\/"`, `/`},
		{`"\b\f\n\r\t"`, "\b\f\n\r\t"},
		{`"\u0041"`, "A"},
		{`"\u00e9"`, "é"},
		{`"\u20AC"`, "€"},
		{`"a\u0000b"`, "a\x00b"},
		{`"mixed \n text \u0142"`, "mixed \n text ł"},
	}
	for _, c := range cases {
		s, ok := mustParse(t, c.in).Str()
		if !ok || s != c.want {
			t.Fatalf("%s: got %q want %q", c.in, s, c.want)
		}
	}
}

func TestParseSurrogatePair(t *testing.T) {
	s, _ := mustParse(t, `"\uD834\uDD1E"`).Str()
	if s != "\U0001D11E" {
		t.Fatalf("surrogate pair: got %q", s)
	}
	// The literal UTF-8 encoding of the same scalar passes through.
	s, _ = mustParse(t, `"𝄞"`).Str()
	if s != "𝄞" {
		t.Fatalf("literal: got %q", s)
	}
}

func TestParseLoneSurrogates(t *testing.T) {
	for _, in := range []string{
		`"\uD800"`,
		`"\uDC00"`,
		`"\uD800x"`,
		`"\uD800\n"`,
		`"\uD800\uD800"`,
		`"\uDBFF"`,
	} {
		de := mustParseErr(t, in)
		if de.Class != domerr.LoneSurrogate {
			t.Fatalf("%q: expected LONE_SURROGATE, got %s", in, de.Class)
		}
	}
}

func TestParseBadEscapes(t *testing.T) {
	for _, in := range []string{`"\q"`, `"\x41"`, `"\u12"`, `"\u12G5"`, `"\u"`, `"\`} {
		de := mustParseErr(t, in)
		if de.Class != domerr.BadEscape && de.Class != domerr.BadString {
			t.Fatalf("%q: expected escape failure, got %s", in, de.Class)
		}
	}
}

func TestParseControlCharactersRejected(t *testing.T) {
	for _, in := range [][]byte{
		{'"', 0x01, '"'},
		{'"', 0x00, '"'},
		{'"', 'a', '\n', 'b', '"'},
		{'"', 0x1F, '"'},
	} {
		de := mustParseErrBytes(t, in)
		if de.Class != domerr.BadString {
			t.Fatalf("%v: expected BAD_STRING, got %s", in, de.Class)
		}
		if !strings.Contains(de.Message, "control character") {
			t.Fatalf("unexpected message: %s", de.Message)
		}
	}
}

func TestParseUnterminatedString(t *testing.T) {
	for _, in := range []string{`"abc`, `"`, `"ab\"`} {
		de := mustParseErr(t, in)
		if de.Class != domerr.BadString {
			t.Fatalf("%q: expected BAD_STRING, got %s", in, de.Class)
		}
	}
}

func TestParseInvalidUTF8(t *testing.T) {
	cases := [][]byte{
		{'"', 0xFF, '"'},
		{'"', 0xE2, 0x82, '"'},       // truncated 3-byte sequence
		{'"', 0xED, 0xA0, 0x80, '"'}, // UTF-8-encoded surrogate half
		{'"', 0xC0, 0xAF, '"'},       // overlong encoding of '/'
		{'"', 0xF5, 0x80, 0x80, 0x80, '"'},
	}
	for _, in := range cases {
		de := mustParseErrBytes(t, in)
		if de.Class != domerr.InvalidUTF8 {
			t.Fatalf("%v: expected INVALID_UTF8, got %s", in, de.Class)
		}
	}
}

func TestParseKeyConstraints(t *testing.T) {
	de := mustParseErr(t, `{"":1}`)
	if de.Class != domerr.BadKey {
		t.Fatalf("empty key: got %s", de.Class)
	}

	de = mustParseErr(t, `{"a\u0000b":1}`)
	if de.Class != domerr.BadKey {
		t.Fatalf("NUL key: got %s", de.Class)
	}

	// The same payload is fine as a value.
	v := mustParse(t, `{"k":"a\u0000b"}`)
	if got := v.Object().GetString("k"); got != "a\x00b" {
		t.Fatalf("NUL value: got %q", got)
	}
}

func TestParseDuplicateKeyRejectsDocument(t *testing.T) {
	de := mustParseErr(t, `{"a":1,"a":2}`)
	if de.Class != domerr.DuplicateKey {
		t.Fatalf("expected DUPLICATE_KEY, got %s", de.Class)
	}
	if de.Offset != 7 {
		t.Fatalf("offset: got %d want 7", de.Offset)
	}

	// Escaped and raw spellings of one key collide after decoding.
	de = mustParseErr(t, `{"a":1,"\u0061":2}`)
	if de.Class != domerr.DuplicateKey {
		t.Fatalf("decoded duplicate: got %s", de.Class)
	}

	// Duplicates in nested objects fail the whole document.
	de = mustParseErr(t, `{"out":{"x":1,"x":2}}`)
	if de.Class != domerr.DuplicateKey {
		t.Fatalf("nested duplicate: got %s", de.Class)
	}
}

func TestParseNumbers(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{`0`, 0},
		{`123`, 123},
		{`-7`, -7},
		{`0.5`, 0.5},
		{`-0.25`, -0.25},
		{`1e3`, 1000},
		{`1E3`, 1000},
		{`1e+3`, 1000},
		{`2e-2`, 0.02},
		{`1.5e2`, 150},
		{`0.0001`, 0.0001},
		{`1.`, 1},     // empty fraction
		{`1.e2`, 100}, // empty fraction with exponent
		{`-.5`, -0.5}, // empty integer part after the sign
		{`9007199254740992`, 9007199254740992},
	}
	for _, c := range cases {
		if got := mustNumber(t, mustParse(t, c.in)); got != c.want {
			t.Fatalf("%q: got %v want %v", c.in, got, c.want)
		}
	}
}

func TestParseNegativeZero(t *testing.T) {
	for _, in := range []string{`-0`, `-0.0`, `-0.0e2`, `-1e-999`} {
		f := mustNumber(t, mustParse(t, in))
		if f != 0 || !math.Signbit(f) {
			t.Fatalf("%q: expected negative zero, got %v (signbit=%v)", in, f, math.Signbit(f))
		}
	}
}

func TestParseNumberGrammarRejections(t *testing.T) {
	cases := []struct {
		in    string
		class domerr.Class
	}{
		{`01`, domerr.BadNumber},
		{`-01`, domerr.BadNumber},
		{`00`, domerr.BadNumber},
		{`0e5`, domerr.BadNumber}, // leading zero must be followed by '.'
		{`-0e5`, domerr.BadNumber},
		{`0x10`, domerr.BadNumber},
		{`-0X1F`, domerr.BadNumber},
		{`-`, domerr.BadNumber},
		{`-.`, domerr.BadNumber},
		{`+1`, domerr.UnexpectedToken},
		{`.5`, domerr.UnexpectedToken},
	}
	for _, c := range cases {
		de := mustParseErr(t, c.in)
		if de.Class != c.class {
			t.Fatalf("%q: expected %s, got %s", c.in, c.class, de.Class)
		}
	}
}

func TestParseNumberRange(t *testing.T) {
	for _, in := range []string{`1e999`, `-1e999`, `1e400`, `12345678901234567890e400`} {
		de := mustParseErr(t, in)
		if de.Class != domerr.NumberOverflow {
			t.Fatalf("%q: expected NUMBER_OVERFLOW, got %s", in, de.Class)
		}
	}

	// Underflow and subnormals are representable outcomes, not errors.
	if f := mustNumber(t, mustParse(t, `1e-999`)); f != 0 {
		t.Fatalf("1e-999: got %v", f)
	}
	if f := mustNumber(t, mustParse(t, `5e-324`)); f != 5e-324 {
		t.Fatalf("5e-324: got %v", f)
	}
	if f := mustNumber(t, mustParse(t, `1.7976931348623157e308`)); f != math.MaxFloat64 {
		t.Fatalf("max double: got %v", f)
	}
}

func TestParseLiteralRejections(t *testing.T) {
	for _, in := range []string{`tru`, `t`, `falsy`, `fals`, `nul`, `n`, `TRUE`, `None`} {
		de := mustParseErr(t, in)
		if de.Class != domerr.UnexpectedToken {
			t.Fatalf("%q: expected UNEXPECTED_TOKEN, got %s", in, de.Class)
		}
	}
}

func TestParseDepthBoundary(t *testing.T) {
	ok := strings.Repeat("[", 2048) + strings.Repeat("]", 2048)
	if _, err := domparse.Parse([]byte(ok)); err != nil {
		t.Fatalf("depth 2048 should parse: %v", err)
	}

	deep := strings.Repeat("[", 2049) + strings.Repeat("]", 2049)
	_, err := domparse.Parse([]byte(deep))
	var de *domerr.Error
	if !errors.As(err, &de) || de.Class != domerr.DepthExceeded {
		t.Fatalf("depth 2049: got %v", err)
	}
}

func TestParseDepthOption(t *testing.T) {
	opts := &domparse.Options{MaxDepth: 3}
	if _, err := domparse.ParseWithOptions([]byte(`[[[1]]]`), opts); err != nil {
		t.Fatalf("depth 3 under limit 3: %v", err)
	}
	_, err := domparse.ParseWithOptions([]byte(`[[[[1]]]]`), opts)
	var de *domerr.Error
	if !errors.As(err, &de) || de.Class != domerr.DepthExceeded {
		t.Fatalf("depth 4 under limit 3: got %v", err)
	}

	// Mixed container kinds count against the same limit.
	_, err = domparse.ParseWithOptions([]byte(`{"a":[{"b":1}]}`), opts)
	if err != nil {
		t.Fatalf("mixed depth 3: %v", err)
	}
	_, err = domparse.ParseWithOptions([]byte(`{"a":[{"b":[1]}]}`), opts)
	if !errors.As(err, &de) || de.Class != domerr.DepthExceeded {
		t.Fatalf("mixed depth 4: got %v", err)
	}
}

func TestParseErrorOffsets(t *testing.T) {
	de := mustParseErr(t, `[1, x]`)
	if de.Offset != 4 {
		t.Fatalf("[1, x]: offset %d want 4", de.Offset)
	}

	de = mustParseErr(t, `{"a" 1}`)
	if de.Offset != 5 {
		t.Fatalf(`{"a" 1}: offset %d want 5`, de.Offset)
	}

	in := `"abc`
	de = mustParseErr(t, in)
	if de.Offset != len(in) {
		t.Fatalf("%q: offset %d want %d", in, de.Offset, len(in))
	}
}

func TestParseString(t *testing.T) {
	v, err := domparse.ParseString(`{"a":true}`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if b, ok := v.Object().GetBool("a"); !ok || !b {
		t.Fatal("unexpected value")
	}
}

// trackingAlloc counts node traffic and fails the nth allocation.
type trackingAlloc struct {
	domtree.Heap
	allocs int
	frees  int
	failAt int // 0 means never fail
}

func (a *trackingAlloc) NewValue() *domtree.Value {
	a.allocs++
	if a.failAt != 0 && a.allocs >= a.failAt {
		return nil
	}
	return a.Heap.NewValue()
}

func (a *trackingAlloc) Free(v *domtree.Value) {
	a.frees++
	a.Heap.Free(v)
}

func TestParseAllocatorFailureReleasesPartialTree(t *testing.T) {
	// Allocation order: array, 1, 2, 3, object, then the string "b" fails.
	ta := &trackingAlloc{failAt: 6}
	_, err := domparse.ParseWithOptions([]byte(`[1,2,3,{"a":"b"},4]`), &domparse.Options{Alloc: ta})
	var de *domerr.Error
	if !errors.As(err, &de) || de.Class != domerr.AllocFailed {
		t.Fatalf("expected ALLOC_FAILED, got %v", err)
	}
	if got, want := ta.allocs-1, 5; got != want {
		t.Fatalf("allocated %d nodes, want %d", got, want)
	}
	if ta.frees != 5 {
		t.Fatalf("released %d of 5 allocated nodes", ta.frees)
	}
}

func TestParseWithPoolAllocator(t *testing.T) {
	pool := domtree.NewPool()
	opts := &domparse.Options{Alloc: pool}
	v, err := domparse.ParseWithOptions([]byte(`{"a":[1,2],"b":"x"}`), opts)
	if err != nil {
		t.Fatalf("parse with pool: %v", err)
	}
	if got := v.Object().GetArray("a").GetNumber(1); got != 2 {
		t.Fatalf("a[1]: got %v", got)
	}
	if got := v.Object().GetString("b"); got != "x" {
		t.Fatalf("b: got %q", got)
	}
	v.Release(pool)
}
