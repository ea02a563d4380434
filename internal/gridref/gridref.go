// Package gridref converts between Ordnance Survey national grid references
// (e.g. "TG 51409 13177") and absolute easting/northing metres.
//
// The national grid is divided into 100 km squares, each identified by two
// letters from a 25-letter alphabet that skips 'I'. The digits that follow
// the letters are split into an easting half and a northing half giving the
// offset of the referenced square from the south-west corner of the
// 100 km square.
package gridref

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidFormat is returned for strings that are not two grid letters
	// followed by an even number of digits.
	ErrInvalidFormat = errors.New("invalid grid reference")
	// ErrInvalidPrecision is returned by Format for odd or out-of-range digit counts.
	ErrInvalidPrecision = errors.New("invalid grid reference precision")
	// ErrOutOfRange is returned when a reference or coordinate lies outside
	// the national grid's 100 km squares.
	ErrOutOfRange = errors.New("outside national grid")
)

// Bounds of the national grid in 100 km squares, measured from the false
// origin at the south-west corner of square SV.
const (
	MaxEasting100k  = 6
	MaxNorthing100k = 12

	// MaxDigits is the longest numeric part accepted by Format.
	MaxDigits = 16
)

var (
	refPattern      = regexp.MustCompile(`^[A-Z]{2}[0-9]+$`)
	hectadPattern   = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}$`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Coord is an absolute position on the national grid in metres.
type Coord struct {
	Easting  int
	Northing int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.Easting, c.Northing)
}

// Normalize strips whitespace and uppercases a grid reference without
// validating it further.
func Normalize(ref string) string {
	return strings.ToUpper(whitespaceRegex.ReplaceAllString(ref, ""))
}

// Parse converts a grid reference into the coordinate of the south-west
// corner of the square it names. Any amount of whitespace is allowed and
// letters are case-insensitive.
func Parse(ref string) (Coord, error) {
	norm := Normalize(ref)
	if !refPattern.MatchString(norm) {
		return Coord{}, fmt.Errorf("%w: %q", ErrInvalidFormat, ref)
	}

	l1, ok1 := letterIndex(norm[0])
	l2, ok2 := letterIndex(norm[1])
	if !ok1 || !ok2 {
		return Coord{}, fmt.Errorf("%w: %q uses the letter I", ErrInvalidFormat, ref)
	}

	e100 := floorMod(l1-2, 5)*5 + l2%5
	n100 := (19 - (l1/5)*5) - l2/5
	if e100 < 0 || e100 > MaxEasting100k || n100 < 0 || n100 > MaxNorthing100k {
		return Coord{}, fmt.Errorf("%w: %q", ErrOutOfRange, ref)
	}

	digits := norm[2:]
	if len(digits)%2 != 0 {
		return Coord{}, fmt.Errorf("%w: %q has an odd number of digits", ErrInvalidFormat, ref)
	}
	half := len(digits) / 2

	return Coord{
		Easting:  e100*100000 + metres(digits[:half]),
		Northing: n100*100000 + metres(digits[half:]),
	}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(ref string) Coord {
	c, err := Parse(ref)
	if err != nil {
		panic(err)
	}
	return c
}

// Format renders c as a grid reference with the given number of digits
// (even, 0–16). Offsets are truncated, never rounded, so the result names
// the square containing c.
func Format(c Coord, digits int) (string, error) {
	if digits%2 != 0 || digits < 0 || digits > MaxDigits {
		return "", fmt.Errorf("%w: %d", ErrInvalidPrecision, digits)
	}
	if c.Easting < 0 || c.Northing < 0 {
		return "", fmt.Errorf("%w: %v", ErrOutOfRange, c)
	}

	e100k := c.Easting / 100000
	n100k := c.Northing / 100000
	if e100k > MaxEasting100k || n100k > MaxNorthing100k {
		return "", fmt.Errorf("%w: %v", ErrOutOfRange, c)
	}

	number1 := (19 - n100k) - (19-n100k)%5 + (e100k+10)/5
	number2 := (19-n100k)*5%25 + e100k%5

	var b strings.Builder
	b.Grow(2 + digits)
	b.WriteByte(indexLetter(number1))
	b.WriteByte(indexLetter(number2))

	half := digits / 2
	if half > 0 {
		b.WriteString(offsetDigits(c.Easting%100000, half))
		b.WriteString(offsetDigits(c.Northing%100000, half))
	}
	return b.String(), nil
}

// Neighbor returns the 10 km square dx squares east and dy squares north of
// ref. ref must be a two-letter, two-digit reference such as "NT27".
func Neighbor(ref string, dx, dy int) (string, error) {
	norm := Normalize(ref)
	if !hectadPattern.MatchString(norm) {
		return "", fmt.Errorf("%w: %q is not a 10 km square", ErrInvalidFormat, ref)
	}
	c, err := Parse(norm)
	if err != nil {
		return "", err
	}
	c.Easting += dx * 10000
	c.Northing += dy * 10000
	return Format(c, 2)
}

// Square returns the two-letter 100 km square prefix of a normalized reference.
func Square(ref string) string {
	norm := Normalize(ref)
	if len(norm) < 2 {
		return norm
	}
	return norm[:2]
}

// letterIndex maps a grid letter to its position in the 25-letter alphabet.
func letterIndex(ch byte) (int, bool) {
	if ch == 'I' {
		return 0, false
	}
	l := int(ch - 'A')
	if l > 7 {
		l--
	}
	return l, true
}

func indexLetter(n int) byte {
	if n > 7 {
		n++
	}
	return byte('A' + n)
}

// metres reads one half of the numeric part as an offset in metres:
// right-padded with zeros to 5 digits, then truncated to 5.
func metres(half string) int {
	padded := (half + "00000")[:5]
	v, _ := strconv.Atoi(padded) // digits only, guaranteed by refPattern
	return v
}

// offsetDigits renders an in-square offset (0–99999 m) at the given width.
func offsetDigits(offset, width int) string {
	if width <= 5 {
		offset /= pow10(5 - width)
	} else {
		offset *= pow10(width - 5)
	}
	return fmt.Sprintf("%0*d", width, offset)
}

func pow10(n int) int {
	v := 1
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

func floorMod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
