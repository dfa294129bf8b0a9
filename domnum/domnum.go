// Package domnum renders IEEE 754 double-precision values in the printf
// "%1.17g" form used as the default number format of the serializer:
// seventeen significant digits, fixed notation when the decimal exponent
// lies in [-4, 17), scientific notation otherwise, trailing fractional
// zeros removed, and a signed exponent of at least two digits.
//
// Seventeen digits are enough for every finite double to parse back to
// the identical bit pattern, a signed zero included.
//
// NaN and the infinities have no JSON representation; both entry points
// reject them with ErrNotFinite instead of emitting "nan" or "inf".
package domnum

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrNotFinite is returned when the input is NaN or ±Infinity.
var ErrNotFinite = errors.New("domnum: value is not finite (NaN or Infinity)")

// MaxLen bounds the output of Append. The longest rendering is a
// negative subnormal such as "-4.9406564584124654e-324" at 24 bytes.
const MaxLen = 32

// Append renders f in the default format and appends it to dst.
func Append(dst []byte, f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return dst, ErrNotFinite
	}
	return strconv.AppendFloat(dst, f, 'g', 17, 64), nil
}

// Format renders f in the default format.
func Format(f float64) (string, error) {
	b, err := Append(nil, f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// AppendFormat renders f with a caller-supplied printf-style format such
// as "%.9g" and appends it to dst. The verb must consume a float64; the
// caller owns the choice and its consequences for JSON validity.
func AppendFormat(dst []byte, format string, f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return dst, ErrNotFinite
	}
	return fmt.Appendf(dst, format, f), nil
}
