package nmea

import (
	"fmt"
	"time"
)

// Time is a broken-down UTC timestamp as carried by NMEA sentences.
type Time struct {
	Year int `json:"year"` // years since 1900
	Mon  int `json:"mon"`  // 0-11
	Day  int `json:"day"`  // 1-31
	Hour int `json:"hour"`
	Min  int `json:"min"`
	Sec  int `json:"sec"`
	Hsec int `json:"hsec"` // integer after the decimal point of the seconds field

	// HsecDigits is how many digits Hsec was written with. Zero means
	// hundredths.
	HsecDigits int `json:"hsec_digits,omitempty"`
}

// UTC converts t to a time.Time. The zero Time maps to the zero time.Time.
func (t Time) UTC() time.Time {
	if t == (Time{}) {
		return time.Time{}
	}
	return time.Date(1900+t.Year, time.Month(t.Mon+1), t.Day, t.Hour, t.Min, t.Sec, t.nanos(), time.UTC)
}

func (t Time) nanos() int {
	digits := t.HsecDigits
	if digits <= 0 {
		digits = 2
	}
	unit := int(time.Second)
	for i := 0; i < digits && unit > 1; i++ {
		unit /= 10
	}
	return t.Hsec * unit
}

// parseTime fills the time-of-day part of res from an hhmmss or
// hhmmss.s[s[s]] token.
func parseTime(tok string, res *Time) error {
	var n, want int
	switch len(tok) {
	case len("hhmmss"):
		want = 3
		n = Scan([]byte(tok), "%2d%2d%2d", Int(&res.Hour), Int(&res.Min), Int(&res.Sec))
	case len("hhmmss.s"), len("hhmmss.ss"), len("hhmmss.sss"):
		want = 4
		n = Scan([]byte(tok), "%2d%2d%2d.%d", Int(&res.Hour), Int(&res.Min), Int(&res.Sec), Int(&res.Hsec))
		res.HsecDigits = len(tok) - len("hhmmss.")
	default:
		return fmt.Errorf("%w: length %d", ErrTime, len(tok))
	}
	if n != want {
		return fmt.Errorf("%w: %q", ErrTime, tok)
	}
	return nil
}
