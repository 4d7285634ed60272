// Package gps runs an NMEA receiver: it reads raw bytes from a serial port,
// a gpsd relay or a replayed capture, feeds them through an nmea.Parser and
// publishes the merged fix as a Snapshot.
package gps
