// Package nmea decodes NMEA-0183 GPS sentences from a raw byte stream.
//
// Bytes go into a Parser in chunks of any size. The Parser frames complete
// "$...*hh\r\n" sentences, verifies their XOR checksum, decodes the five
// supported kinds (GPGGA, GPGSA, GPGSV, GPRMC, GPVTG) and queues the results.
// Draining the queue folds each sentence into an Info fix summary.
//
// Field extraction is driven by Scan, a small scanf-like matcher. Numeric
// fields that are empty or too long to convert read as zero instead of
// failing; decoders only check how many fields resolved.
package nmea
