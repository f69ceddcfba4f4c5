// Package spacepacket encodes messages into a CCSDS-style space packet.
//
// The envelope is a 6-byte big-endian primary header (version, type,
// secondary header flag, APID, sequence flags, sequence count, data length)
// followed by the data field carrying the message and a CRC-16-CCITT
// trailer over everything before it. A round trip preserves every message
// field except the creation timestamp, which the wire truncates to
// microseconds.
package spacepacket
