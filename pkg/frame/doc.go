// Package frame defines the B42 frame, the unit exchanged over a link.
//
// A frame carries a 4-bit command code and an 18-bit data value. Frames are
// values: they are validated once by New and cannot be changed afterwards.
// Frames produced by the decoder additionally carry the time they were
// received.
package frame
