package nmea

import "math"

// NDEGToDegree converts an NMEA ddmm.mmmm (or dddmm.mmmm) value to decimal
// degrees. The sign is preserved.
func NDEGToDegree(v float64) float64 {
	deg := math.Trunc(v / 100)
	return deg + (v-deg*100)/60
}

// DegreeToNDEG converts decimal degrees to NMEA ddmm.mmmm.
func DegreeToNDEG(v float64) float64 {
	deg := math.Trunc(v)
	return deg*100 + (v-deg)*60
}
