package nmea

import (
	"bytes"
	"math"
	"strconv"
)

// convBufSize bounds numeric tokens. Tokens of this length or longer convert
// to zero instead of failing.
const convBufSize = 256

// Slot is a typed destination for one Scan specifier. Slots are consumed in
// order, one per specifier, whether or not the specifier writes anything.
type Slot interface {
	store(verb byte, tok []byte) bool
}

type charSlot struct{ p *byte }
type stringSlot struct{ p *string }
type floatSlot struct{ p *float64 }
type intSlot struct{ p *int }
type uintSlot struct{ p *uint }
type skipSlot struct{}

// Char receives %c and %C fields.
func Char(p *byte) Slot { return charSlot{p} }

// String receives %s and %S fields.
func String(p *string) Slot { return stringSlot{p} }

// Float receives %f, %g, %G, %e and %E fields.
func Float(p *float64) Slot { return floatSlot{p} }

// Int receives %d, %i, %u, %x, %X and %o fields.
func Int(p *int) Slot { return intSlot{p} }

// Uint receives %u, %x, %X and %o fields (and %d, %i).
func Uint(p *uint) Slot { return uintSlot{p} }

// Skip resolves a specifier without storing it.
func Skip() Slot { return skipSlot{} }

func (s charSlot) store(verb byte, tok []byte) bool {
	if verb != 'c' && verb != 'C' {
		return false
	}
	if len(tok) > 0 && s.p != nil {
		*s.p = tok[0]
	}
	return true
}

func (s stringSlot) store(verb byte, tok []byte) bool {
	if verb != 's' && verb != 'S' {
		return false
	}
	if len(tok) > 0 && s.p != nil {
		*s.p = string(tok)
	}
	return true
}

func (s floatSlot) store(verb byte, tok []byte) bool {
	if !isFloatVerb(verb) {
		return false
	}
	if len(tok) > 0 && s.p != nil {
		*s.p = atof(tok)
	}
	return true
}

func (s intSlot) store(verb byte, tok []byte) bool {
	radix := intRadix(verb)
	if radix == 0 {
		return false
	}
	if len(tok) > 0 && s.p != nil {
		*s.p = atoi(tok, radix)
	}
	return true
}

func (s uintSlot) store(verb byte, tok []byte) bool {
	radix := intRadix(verb)
	if radix == 0 {
		return false
	}
	if len(tok) > 0 && s.p != nil {
		*s.p = uint(atoi(tok, radix))
	}
	return true
}

func (skipSlot) store(verb byte, tok []byte) bool {
	switch verb {
	case 'c', 'C', 's', 'S':
		return true
	}
	return isFloatVerb(verb) || intRadix(verb) != 0
}

func isFloatVerb(verb byte) bool {
	switch verb {
	case 'f', 'g', 'G', 'e', 'E':
		return true
	}
	return false
}

func intRadix(verb byte) int {
	switch verb {
	case 'd', 'i', 'u':
		return 10
	case 'x', 'X':
		return 16
	case 'o':
		return 8
	}
	return 0
}

// Scan extracts fields from buf as described by format and returns how many
// specifiers were resolved.
//
// Format bytes other than '%' must match buf exactly. A specifier has the form
// %[width]verb. With a width, exactly width bytes are taken. Without one, the
// field runs up to the next literal byte of the format, or to the end of buf if
// the specifier is last. A width-less %c takes one byte unless the next input
// byte is already the following literal.
//
// Scan stops at the first literal mismatch, width overrun, unknown verb or slot
// of the wrong type, and whenever buf is exhausted. It never reports an error;
// callers compare the returned count with the number of fields they expect.
// Empty fields resolve but leave their destination untouched. Missing slots
// behave like Skip.
func Scan(buf []byte, format string, slots ...Slot) int {
	pos, count, next := 0, 0, 0

	for fi := 0; fi < len(format) && pos < len(buf); fi++ {
		if format[fi] != '%' {
			if buf[pos] != format[fi] {
				return count
			}
			pos++
			continue
		}

		fi++
		ws := fi
		for fi < len(format) && isDigit(format[fi]) {
			fi++
		}
		if fi >= len(format) {
			return count
		}
		width := 0
		if fi > ws {
			width = atoi([]byte(format[ws:fi]), 10)
		}
		verb := format[fi]

		hasTerm := fi+1 < len(format)
		var term byte
		if hasTerm {
			term = format[fi+1]
		}

		start := pos
		if width == 0 && (verb == 'c' || verb == 'C') && (!hasTerm || buf[pos] != term) {
			width = 1
		}
		switch {
		case width > 0:
			if pos+width > len(buf) {
				return count
			}
			pos += width
		case !hasTerm:
			pos = len(buf)
		default:
			if i := bytes.IndexByte(buf[pos:], term); i >= 0 {
				pos += i
			} else {
				pos = len(buf)
			}
		}

		var slot Slot = skipSlot{}
		if next < len(slots) && slots[next] != nil {
			slot = slots[next]
		}
		next++
		if !slot.store(verb, buf[start:pos]) {
			return count
		}
		count++
	}

	return count
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func digitVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 36
}

// atoi converts the leading integer of tok in the given radix, stopping at the
// first invalid byte. Empty or oversized input yields 0.
func atoi(tok []byte, radix int) int {
	if len(tok) >= convBufSize {
		return 0
	}
	i := 0
	for i < len(tok) && isSpace(tok[i]) {
		i++
	}
	neg := false
	if i < len(tok) && (tok[i] == '+' || tok[i] == '-') {
		neg = tok[i] == '-'
		i++
	}
	if radix == 16 && i+1 < len(tok) && tok[i] == '0' && (tok[i+1] == 'x' || tok[i+1] == 'X') {
		i += 2
	}
	end := i
	for end < len(tok) && digitVal(tok[end]) < radix {
		end++
	}
	if end == i {
		return 0
	}
	v, err := strconv.ParseInt(string(tok[i:end]), radix, 64)
	if err != nil {
		v = math.MaxInt64
	}
	if neg {
		v = -v
	}
	if v > math.MaxInt {
		return math.MaxInt
	}
	if v < math.MinInt {
		return math.MinInt
	}
	return int(v)
}

// atof converts the longest decimal floating-point prefix of tok. Empty or
// oversized input yields 0.
func atof(tok []byte) float64 {
	if len(tok) >= convBufSize {
		return 0
	}
	i := 0
	for i < len(tok) && isSpace(tok[i]) {
		i++
	}
	start := i
	if i < len(tok) && (tok[i] == '+' || tok[i] == '-') {
		i++
	}
	digits := 0
	for i < len(tok) && isDigit(tok[i]) {
		i++
		digits++
	}
	if i < len(tok) && tok[i] == '.' {
		i++
		for i < len(tok) && isDigit(tok[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	end := i
	if i < len(tok) && (tok[i] == 'e' || tok[i] == 'E') {
		j := i + 1
		if j < len(tok) && (tok[j] == '+' || tok[j] == '-') {
			j++
		}
		if j < len(tok) && isDigit(tok[j]) {
			for j < len(tok) && isDigit(tok[j]) {
				j++
			}
			end = j
		}
	}
	// Range errors still carry the clamped value.
	v, _ := strconv.ParseFloat(string(tok[start:end]), 64)
	return v
}
