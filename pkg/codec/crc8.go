package codec

// CRC-8/SMBUS parameters.
const (
	crcPoly = 0x07
	crcInit = 0x00
)

var crcTable = makeCRCTable(crcPoly)

func makeCRCTable(poly byte) *[256]byte {
	var t [256]byte
	for i := 0; i < 256; i++ {
		c := byte(i)
		for j := 0; j < 8; j++ {
			if c&0x80 != 0 {
				c = c<<1 ^ poly
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return &t
}

// Checksum returns the CRC-8 of p.
func Checksum(p []byte) byte {
	return UpdateChecksum(crcInit, p)
}

// UpdateChecksum returns the result of adding the bytes in p to crc.
func UpdateChecksum(crc byte, p []byte) byte {
	for _, b := range p {
		crc = crcTable[crc^b]
	}
	return crc
}
