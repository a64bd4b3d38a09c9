package mfm

import (
	"bytes"

	"github.com/zerkman/zest/logger"
)

// Address mark tags.
const (
	TagID   = 0xFE
	TagData = 0xFB
)

// Length of an ID field: tag, track, side, sector, size code.
const idFieldSize = 5

// FindAddressMark returns the offset of the first address mark pattern in
// `buf` at or after `start`, or -1 if there is none. The tag byte follows the
// pattern at offset + [Dialect.SyncLength].
func (d *Dialect) FindAddressMark(buf []byte, start int) int {
	if start < 0 || start >= len(buf) {
		return -1
	}
	i := bytes.Index(buf[start:], d.sync)
	if i < 0 {
		return -1
	}
	return start + i
}

// LocateSector finds the data field of the sector with the given ID in a track
// buffer and returns the offset of its first payload byte.
//
// CRC mismatches are reported but do not stop the scan: a sector with a bad
// CRC is still returned when its ID matches. Stray data marks and ID fields
// without a following data mark are skipped.
func (d *Dialect) LocateSector(trackBuf []byte, track, side, sector int) (int, bool) {
	pos := 0
	for {
		am := d.FindAddressMark(trackBuf, pos)
		if am < 0 {
			return 0, false
		}
		tag := am + len(d.sync)
		if tag+idFieldSize+2 > len(trackBuf) {
			return 0, false
		}
		if trackBuf[tag] != TagID {
			pos = tag
			continue
		}

		id := trackBuf[tag : tag+idFieldSize]
		if crc := d.CRC(id); crc != readCRC(trackBuf[tag+idFieldSize:]) {
			logger.Logf("mfm", "ID field CRC mismatch at track %d side %d sector %d", id[1], id[2], id[3])
		}
		match := int(id[1]) == track && int(id[2]) == side && int(id[3]) == sector
		size := SectorBytes(id[4])

		dm := d.FindAddressMark(trackBuf, tag+idFieldSize+2)
		if dm < 0 {
			logger.Logf("mfm", "missing data address mark after track %d side %d sector %d", id[1], id[2], id[3])
			return 0, false
		}
		dtag := dm + len(d.sync)
		if dtag >= len(trackBuf) || trackBuf[dtag] != TagData {
			logger.Logf("mfm", "wrong data address mark after track %d side %d sector %d", id[1], id[2], id[3])
			pos = dtag
			continue
		}
		if dtag+1+size+2 > len(trackBuf) {
			logger.Logf("mfm", "truncated data field for track %d side %d sector %d", id[1], id[2], id[3])
			return 0, false
		}

		if match {
			field := trackBuf[dtag : dtag+1+size]
			if crc := d.CRC(field); crc != readCRC(trackBuf[dtag+1+size:]) {
				logger.Logf("mfm", "data field CRC mismatch at track %d side %d sector %d", track, side, sector)
			}
			return dtag + 1, true
		}
		pos = dtag + 1 + size
	}
}

// SectorBytes converts an ID field size code to a payload length.
func SectorBytes(code byte) int {
	return 128 << (code & 3)
}

func readCRC(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}
