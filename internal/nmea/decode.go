package nmea

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrFieldCount  = errors.New("nmea: unexpected field count")
	ErrTime        = errors.New("nmea: bad time field")
	ErrUnits       = errors.New("nmea: bad unit indicator")
	ErrUnknownKind = errors.New("nmea: unknown sentence kind")
)

const (
	ggaFormat = "$GPGGA,%s,%f,%C,%f,%C,%d,%d,%f,%f,%C,%f,%C,%f,%d*"
	gsaFormat = "$GPGSA,%C,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%f,%f,%f*"
	gsvFormat = "$GPGSV,%d,%d,%d," +
		"%d,%d,%d,%d," +
		"%d,%d,%d,%d," +
		"%d,%d,%d,%d," +
		"%d,%d,%d,%d*"
	rmcFormat = "$GPRMC,%s,%C,%f,%C,%f,%C,%f,%f,%2d%2d%2d,%f,%C,%C*"
	vtgFormat = "$GPVTG,%f,%C,%f,%C,%f,%C,%f,%C*"

	gsvHeaderFields = 3
	gsvMaxFields    = gsvHeaderFields + SatInPack*4
)

func fieldCountError(kind Kind, got int) error {
	return fmt.Errorf("%w: %s resolved %d", ErrFieldCount, kind, got)
}

// Decode decodes one framed sentence of the given kind.
func Decode(kind Kind, buf []byte) (Sentence, error) {
	switch kind {
	case KindGGA:
		return sentence(DecodeGGA(buf))
	case KindGSA:
		return sentence(DecodeGSA(buf))
	case KindGSV:
		return sentence(DecodeGSV(buf))
	case KindRMC:
		return sentence(DecodeRMC(buf))
	case KindVTG:
		return sentence(DecodeVTG(buf))
	default:
		return nil, ErrUnknownKind
	}
}

// sentence keeps a failed decode from leaking a typed nil into the interface.
func sentence[T Sentence](s T, err error) (Sentence, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DecodeGGA decodes a $GPGGA sentence.
func DecodeGGA(buf []byte) (*GGA, error) {
	var p GGA
	var tm string
	n := Scan(buf, ggaFormat,
		String(&tm),
		Float(&p.Lat), Char(&p.NS), Float(&p.Lon), Char(&p.EW),
		Int(&p.Sig), Int(&p.SatInUse), Float(&p.HDOP), Float(&p.Elv), Char(&p.ElvUnits),
		Float(&p.Diff), Char(&p.DiffUnits), Float(&p.DGPSAge), Int(&p.DGPSSid))
	if n != 14 {
		return nil, fieldCountError(KindGGA, n)
	}
	if err := parseTime(tm, &p.UTC); err != nil {
		return nil, fmt.Errorf("GPGGA: %w", err)
	}
	return &p, nil
}

// DecodeGSA decodes a $GPGSA sentence.
func DecodeGSA(buf []byte) (*GSA, error) {
	var p GSA
	slots := make([]Slot, 0, 17)
	slots = append(slots, Char(&p.FixMode), Int(&p.FixType))
	for i := range p.SatPRN {
		slots = append(slots, Int(&p.SatPRN[i]))
	}
	slots = append(slots, Float(&p.PDOP), Float(&p.HDOP), Float(&p.VDOP))

	if n := Scan(buf, gsaFormat, slots...); n != 17 {
		return nil, fieldCountError(KindGSA, n)
	}
	return &p, nil
}

// DecodeGSV decodes one $GPGSV page. The page may carry fewer than four
// satellites; the resolved field count must cover every satellite the header
// says belongs on this page.
func DecodeGSV(buf []byte) (*GSV, error) {
	var p GSV
	slots := make([]Slot, 0, gsvMaxFields)
	slots = append(slots, Int(&p.PackCount), Int(&p.PackIndex), Int(&p.SatCount))
	for i := range p.Sats {
		s := &p.Sats[i]
		slots = append(slots, Int(&s.ID), Int(&s.Elv), Int(&s.Azimuth), Int(&s.Sig))
	}

	n := Scan(buf, gsvFormat, slots...)

	want := gsvPageSats(p.PackIndex, p.SatCount)*4 + gsvHeaderFields

	if n < want || n > gsvMaxFields {
		return nil, fieldCountError(KindGSV, n)
	}
	return &p, nil
}

// DecodeRMC decodes a $GPRMC sentence. The trailing mode indicator is optional.
// Two-digit years below 90 are taken as 20xx, and the month is made 0-based.
func DecodeRMC(buf []byte) (*RMC, error) {
	var p RMC
	var tm string
	n := Scan(buf, rmcFormat,
		String(&tm),
		Char(&p.Status), Float(&p.Lat), Char(&p.NS), Float(&p.Lon), Char(&p.EW),
		Float(&p.Speed), Float(&p.Direction),
		Int(&p.UTC.Day), Int(&p.UTC.Mon), Int(&p.UTC.Year),
		Float(&p.Declination), Char(&p.DeclinEW), Char(&p.Mode))
	if n != 13 && n != 14 {
		return nil, fieldCountError(KindRMC, n)
	}
	if err := parseTime(tm, &p.UTC); err != nil {
		return nil, fmt.Errorf("GPRMC: %w", err)
	}

	if p.UTC.Year < 90 {
		p.UTC.Year += 100
	}
	p.UTC.Mon--
	return &p, nil
}

// DecodeVTG decodes a $GPVTG sentence. All four unit indicators must be
// present and equal to T, M, N and K.
func DecodeVTG(buf []byte) (*VTG, error) {
	var p VTG
	n := Scan(buf, vtgFormat,
		Float(&p.Dir), Char(&p.DirT),
		Float(&p.Dec), Char(&p.DecM),
		Float(&p.Spn), Char(&p.SpnN),
		Float(&p.Spk), Char(&p.SpkK))
	if n != 8 {
		return nil, fieldCountError(KindVTG, n)
	}
	if p.DirT != 'T' || p.DecM != 'M' || p.SpnN != 'N' || p.SpkK != 'K' {
		return nil, fmt.Errorf("%w: %c %c %c %c", ErrUnits, p.DirT, p.DecM, p.SpnN, p.SpkK)
	}
	return &p, nil
}

// gsvPageSats returns how many satellites page index of a count-satellite
// sequence carries, clamped to [0, SatInPack]. Out-of-range header values
// never overflow.
func gsvPageSats(index, count int) int {
	const maxPage = math.MaxInt/SatInPack - 1
	if count < 0 {
		count = 0
	}
	switch {
	case index > maxPage:
		return 0
	case index < -maxPage:
		return SatInPack
	}
	first := (index - 1) * SatInPack
	nsat := SatInPack
	if first+SatInPack > count {
		nsat = count - first
	}
	return min(max(nsat, 0), SatInPack)
}
