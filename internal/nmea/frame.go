package nmea

// tailSize is '*', two hex digits and "\r\n".
const tailSize = 5

// FindTail looks for one complete sentence at the start of buf and checks its
// checksum, the XOR of every byte between the leading byte and '*'.
//
// It returns n == 0 when no complete sentence is buffered yet. Otherwise n is
// the span to consume: crc is the checksum when it matched, or -1 when the span
// must be discarded. A span is discarded on checksum mismatch, and also when a
// second '$' shows up before any '*'; in that case n stops right before the new
// '$' so the next scan starts on it.
func FindTail(buf []byte) (n int, crc int) {
	var sum byte
	for i := 0; i < len(buf); i++ {
		switch {
		case buf[i] == '$' && i > 0:
			return i, -1
		case buf[i] == '*':
			if i+tailSize > len(buf) || buf[i+3] != '\r' || buf[i+4] != '\n' {
				return 0, -1
			}
			want := atoi(buf[i+1:i+3], 16)
			if want != int(sum) {
				return i + tailSize, -1
			}
			return i + tailSize, want
		case i > 0:
			sum ^= buf[i]
		}
	}
	return 0, -1
}

// Checksum returns the XOR checksum of an NMEA payload (the bytes between '$'
// and '*').
func Checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum ^= b
	}
	return sum
}
