package codec

import (
	"errors"

	"github.com/bft-labs/b42link/pkg/frame"
)

// Reserved marker bytes.
const (
	Start      byte = 0x7E
	End        byte = 0x7F
	Escape     byte = 0x7D
	EscapeMask byte = 0x20
)

const (
	// PayloadLen is the size of the packed command/data field.
	PayloadLen = 3
	// BodyLen is the unstuffed body size: payload plus checksum.
	BodyLen = PayloadLen + 1
	// MaxEncodedLen is the worst-case size of an encoded frame, with every
	// body byte escaped.
	MaxEncodedLen = 2 + 2*BodyLen

	dataShift = 2
	cmdShift  = dataShift + frame.DataBits
	padMask   = 1<<dataShift - 1
)

// ErrBadStuffing is returned by Unstuff for a trailing ESCAPE or an
// unescaped marker byte.
var ErrBadStuffing = errors.New("codec: invalid byte stuffing")

// Pack packs command and data into the 3-byte payload.
// The values are masked to their bit widths; validate them with frame.New first.
func Pack(command, data uint32) [PayloadLen]byte {
	bits := (command&frame.MaxCommand)<<cmdShift | (data&frame.MaxData)<<dataShift
	return [PayloadLen]byte{byte(bits >> 16), byte(bits >> 8), byte(bits)}
}

// Unpack is the inverse of Pack. pad holds the two trailing padding bits,
// which are zero for any payload produced by Pack.
func Unpack(p [PayloadLen]byte) (command, data, pad uint32) {
	bits := uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
	return bits >> cmdShift, (bits >> dataShift) & frame.MaxData, bits & padMask
}

// IsMarker reports whether b is one of the reserved marker bytes.
func IsMarker(b byte) bool {
	return b == Start || b == End || b == Escape
}

// Encode returns the wire representation of f.
func Encode(f frame.Frame) []byte {
	return AppendEncode(make([]byte, 0, MaxEncodedLen), f)
}

// AppendEncode appends the wire representation of f to dst.
func AppendEncode(dst []byte, f frame.Frame) []byte {
	var body [BodyLen]byte
	p := Pack(uint32(f.Command()), f.Data())
	copy(body[:], p[:])
	body[PayloadLen] = Checksum(p[:])

	dst = append(dst, Start)
	dst = appendStuffed(dst, body[:])
	return append(dst, End)
}

// Stuff returns body with every marker byte escaped.
func Stuff(body []byte) []byte {
	return appendStuffed(make([]byte, 0, 2*len(body)), body)
}

func appendStuffed(dst, body []byte) []byte {
	for _, b := range body {
		if IsMarker(b) {
			dst = append(dst, Escape, b^EscapeMask)
			continue
		}
		dst = append(dst, b)
	}
	return dst
}

// Unstuff reverses Stuff.
func Unstuff(stuffed []byte) ([]byte, error) {
	out := make([]byte, 0, len(stuffed))
	for i := 0; i < len(stuffed); i++ {
		b := stuffed[i]
		switch {
		case b == Escape:
			i++
			if i == len(stuffed) {
				return nil, ErrBadStuffing
			}
			out = append(out, stuffed[i]^EscapeMask)
		case IsMarker(b):
			return nil, ErrBadStuffing
		default:
			out = append(out, b)
		}
	}
	return out, nil
}
