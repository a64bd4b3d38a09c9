package mfm

// CRC16-CCITT as computed by the floppy controller.
const crcPolynomial = 0x1021

const (
	// CRCInitST is the preset used by the first hardware revision for tracks
	// expanded from sector dumps. The CRC covers the tag byte and the field.
	CRCInitST uint16 = 0xFFFF

	// CRCInitMFM is the CRC state after feeding the three 0xA1 sync bytes from
	// a 0xFFFF preset. Starting from it over the tag byte and the field gives
	// the same value a real controller writes to disk.
	CRCInitMFM uint16 = 0xCDB4
)

var crcTable [256]uint16

func init() {
	for i := range crcTable {
		w := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if w&0x8000 != 0 {
				w = w<<1 ^ crcPolynomial
			} else {
				w <<= 1
			}
		}
		crcTable[i] = w
	}
}

// Checksum computes the CRC16 of `data` starting from `init`.
func Checksum(init uint16, data []byte) uint16 {
	crc := init
	for _, b := range data {
		crc = crcTable[byte(crc>>8)^b] ^ crc<<8
	}
	return crc
}
