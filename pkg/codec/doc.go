// Package codec implements the B42 wire format.
//
// A frame is transmitted as
//
//	START (0x7E) | stuffed body | END (0x7F)
//
// where the body is the 3-byte packed payload followed by a CRC-8 checksum:
//
//	bit 23..20  command (4 bits)
//	bit 19..2   data    (18 bits)
//	bit  1..0   zero padding
//	byte 3      CRC-8 over bytes 0..2 (poly 0x07, init 0x00, no reflection)
//
// Body bytes equal to START, END or ESCAPE (0x7D) are sent as ESCAPE followed
// by the byte XOR 0x20, so a marker value never appears inside a body.
//
// Encode is a pure function. Decoder is a byte-at-a-time state machine that
// treats every START as a resynchronization point: a corrupted or truncated
// frame costs at most that one frame.
package codec
