package nmea

import "bytes"

// Kind identifies a sentence type. Values are bit flags so they can be
// combined into Info.Smask.
type Kind int

const (
	KindNone Kind = 0x00
	KindGGA  Kind = 0x01
	KindGSA  Kind = 0x02
	KindGSV  Kind = 0x04
	KindRMC  Kind = 0x08
	KindVTG  Kind = 0x10
)

var kindCodes = []struct {
	code []byte
	kind Kind
}{
	{[]byte("GPGGA"), KindGGA},
	{[]byte("GPGSA"), KindGSA},
	{[]byte("GPGSV"), KindGSV},
	{[]byte("GPRMC"), KindRMC},
	{[]byte("GPVTG"), KindVTG},
}

// Kinds lists the sentence kinds the decoder handles, in Smask bit order.
var Kinds = []Kind{KindGGA, KindGSA, KindGSV, KindRMC, KindVTG}

func (k Kind) String() string {
	for _, c := range kindCodes {
		if c.kind == k {
			return string(c.code)
		}
	}
	return "NONE"
}

// Classify maps the 5-byte talker+type code at the start of code (the bytes
// right after '$') to a Kind. The match is exact and case-sensitive.
func Classify(code []byte) Kind {
	if len(code) < 5 {
		return KindNone
	}
	for _, c := range kindCodes {
		if bytes.Equal(code[:5], c.code) {
			return c.kind
		}
	}
	return KindNone
}
