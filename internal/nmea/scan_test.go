package nmea

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_LiteralsAndDelimitedFields(t *testing.T) {
	var (
		c byte
		s string
		f float64
		d int
	)
	n := Scan([]byte("$X,A,hello,1.5,42*"), "$X,%C,%s,%f,%d*", Char(&c), String(&s), Float(&f), Int(&d))
	require.Equal(t, 4, n)
	assert.Equal(t, byte('A'), c)
	assert.Equal(t, "hello", s)
	assert.Equal(t, 1.5, f)
	assert.Equal(t, 42, d)
}

func TestScan_LiteralMismatchStops(t *testing.T) {
	var a, b int
	n := Scan([]byte("1;2"), "%d,%d", Int(&a), Int(&b))
	// The first field runs to the end because ',' never occurs.
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, b)

	n = Scan([]byte("$GPGGA"), "$GPRMC,%d", Int(&a))
	assert.Equal(t, 0, n)
}

func TestScan_FixedWidth(t *testing.T) {
	var h, m, s int
	n := Scan([]byte("123456"), "%2d%2d%2d", Int(&h), Int(&m), Int(&s))
	require.Equal(t, 3, n)
	assert.Equal(t, []int{12, 34, 56}, []int{h, m, s})
}

func TestScan_WidthOverrunStops(t *testing.T) {
	var h, m, s int
	n := Scan([]byte("12345"), "%2d%2d%2d", Int(&h), Int(&m), Int(&s))
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, s)
}

func TestScan_EmptyFieldsCountButDoNotWrite(t *testing.T) {
	f := 7.0
	c := byte('z')
	d := 9
	n := Scan([]byte(",,,"), "%f,%C,%d,", Float(&f), Char(&c), Int(&d))
	require.Equal(t, 3, n)
	assert.Equal(t, 7.0, f)
	assert.Equal(t, byte('z'), c)
	assert.Equal(t, 9, d)
}

func TestScan_CharImplicitWidthBeforeTerminator(t *testing.T) {
	var c1, c2 byte
	n := Scan([]byte("K*"), "%C*", Char(&c1))
	require.Equal(t, 1, n)
	assert.Equal(t, byte('K'), c1)

	// Last specifier with no following literal still takes a single byte.
	n = Scan([]byte("AB"), "%c", Char(&c2))
	require.Equal(t, 1, n)
	assert.Equal(t, byte('A'), c2)
}

func TestScan_MissingAndSkipSlots(t *testing.T) {
	var b int
	n := Scan([]byte("1,2,3"), "%d,%d,%d", Skip(), Int(&b))
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, b)

	n = Scan([]byte("1,2"), "%d,%d", nil, nil)
	assert.Equal(t, 2, n)
}

func TestScan_Radixes(t *testing.T) {
	var x, o int
	var u uint
	n := Scan([]byte("ff,17,99"), "%x,%o,%u", Int(&x), Int(&o), Uint(&u))
	require.Equal(t, 3, n)
	assert.Equal(t, 255, x)
	assert.Equal(t, 15, o)
	assert.Equal(t, uint(99), u)
}

func TestScan_WrongSlotTypeStops(t *testing.T) {
	var f float64
	var d int
	n := Scan([]byte("1,2"), "%d,%d", Int(&d), Float(&f))
	assert.Equal(t, 1, n)
}

func TestScan_UnknownVerbStops(t *testing.T) {
	var d int
	n := Scan([]byte("1,2"), "%d,%q", Int(&d), Skip())
	assert.Equal(t, 1, n)
}

func TestScan_StopsWhenInputExhausted(t *testing.T) {
	var a, b int
	n := Scan([]byte("1"), "%d,%d", Int(&a), Int(&b))
	assert.Equal(t, 1, n)
}

func TestAtoi_FirstInvalidCharAndQuirks(t *testing.T) {
	assert.Equal(t, 12, atoi([]byte("12ab"), 10))
	assert.Equal(t, -7, atoi([]byte(" -7"), 10))
	assert.Equal(t, 0, atoi([]byte(""), 10))
	assert.Equal(t, 0, atoi([]byte("x1"), 10))
	assert.Equal(t, 0x5a, atoi([]byte("5A"), 16))
	assert.Equal(t, 0x7f, atoi([]byte("7f"), 16))
	assert.Equal(t, 0x10, atoi([]byte("0x10"), 16))

	// Oversized tokens silently read as zero.
	assert.Equal(t, 0, atoi([]byte(strings.Repeat("1", convBufSize)), 10))
	assert.Equal(t, 1, atoi([]byte(strings.Repeat("0", convBufSize-2)+"1"), 10))
}

func TestAtof_PrefixAndQuirks(t *testing.T) {
	assert.Equal(t, 3852.9276, atof([]byte("3852.9276")))
	assert.Equal(t, -1.5, atof([]byte("-1.5xyz")))
	assert.Equal(t, 150.0, atof([]byte("1.5e2")))
	assert.Equal(t, 1.5, atof([]byte("1.5e")))
	assert.Equal(t, 0.5, atof([]byte(".5")))
	assert.Equal(t, 0.0, atof([]byte("")))
	assert.Equal(t, 0.0, atof([]byte("-")))
	assert.Equal(t, 0.0, atof([]byte(strings.Repeat("9", convBufSize))))
}
