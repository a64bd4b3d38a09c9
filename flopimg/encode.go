package flopimg

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zerkman/zest"
	"github.com/zerkman/zest/disks"
	"github.com/zerkman/zest/logger"
	"github.com/zerkman/zest/utilities/compression"
)

// currentGeometry re-reads the geometry from the boot sector in the buffer,
// since the guest may have reformatted the disk. Sector and side counts are
// always taken from the boot sector, the track count only when it grew. Tracks
// written past the known count extend it as well.
func (img *Image) currentGeometry() (disks.Geometry, error) {
	geometry := img.geometry
	if boot, ok := img.bootGeometry(img.buffer); ok {
		geometry.Sectors = boot.Sectors
		geometry.Sides = boot.Sides
		if boot.Tracks > geometry.Tracks {
			geometry.Tracks = boot.Tracks
		}
	} else {
		logger.Logf("flopimg", "%s: boot sector not found, keeping %s", img.describe(), geometry)
	}
	if written := img.highestDirtyTrack() + 1; written > geometry.Tracks {
		geometry.Tracks = written
	}

	if err := geometry.Validate(); err != nil {
		return geometry, err
	}
	return geometry, img.checkDialect(geometry)
}

// extractTrack copies the sector payloads of a track into `dst`. Sectors that
// cannot be found are logged and left as zero bytes. A track that is not blank
// but on which no sector at all can be found fails with
// [zest.ErrCorruptTrack], so that unreadable data is never replaced by zeros.
func (img *Image) extractTrack(dst []byte, track, side int, geometry disks.Geometry) error {
	zeroBytes(dst)
	slot := img.slot(track, side)
	found := 0
	for sector := 1; sector <= geometry.Sectors; sector++ {
		var offset int
		ok := false
		if slot != nil {
			offset, ok = img.options.Dialect.LocateSector(slot, track, side, sector)
		}
		if !ok {
			logger.Logf(
				"flopimg",
				"%s: sector not found: track %d side %d sector %d",
				img.describe(),
				track,
				side,
				sector)
			continue
		}
		start := (sector - 1) * disks.BytesPerSector
		copy(dst[start:start+disks.BytesPerSector], slot[offset:offset+disks.BytesPerSector])
		found++
	}
	if found == 0 && !blank(slot) {
		return zest.ErrCorruptTrack.WithMessage(
			fmt.Sprintf("no sector found on track %d side %d", track, side))
	}
	return nil
}

// blank tells whether a track slot was never formatted.
func blank(slot []byte) bool {
	for _, b := range slot {
		if b != 0 {
			return false
		}
	}
	return true
}

// encodeSectors writes the sector payloads of the disk to `w` as an ST or MSA
// file, and returns the geometry it used.
func (img *Image) encodeSectors(w io.Writer, format Format) (disks.Geometry, error) {
	geometry, err := img.currentGeometry()
	if err != nil {
		return geometry, err
	}

	if format == FormatMSA {
		header := make([]byte, msaHeaderSize)
		binary.BigEndian.PutUint16(header[0:], msaMagic)
		binary.BigEndian.PutUint16(header[2:], uint16(geometry.Sectors))
		binary.BigEndian.PutUint16(header[4:], uint16(geometry.Sides-1))
		binary.BigEndian.PutUint16(header[6:], 0)
		binary.BigEndian.PutUint16(header[8:], uint16(geometry.Tracks-1))
		if _, err = w.Write(header); err != nil {
			return geometry, err
		}
	} else if format != FormatST {
		return geometry, zest.ErrUnknownFormat.WithMessage(
			fmt.Sprintf("cannot write sectors as %s", format))
	}

	payload := make([]byte, geometry.TrackBytes())
	for t := 0; t < geometry.Tracks; t++ {
		for s := 0; s < geometry.Sides; s++ {
			if err = img.extractTrack(payload, t, s, geometry); err != nil {
				return geometry, err
			}
			if format == FormatMSA {
				err = writeMSATrack(w, payload)
			} else {
				_, err = w.Write(payload)
			}
			if err != nil {
				return geometry, err
			}
		}
	}
	return geometry, nil
}

// writeMSATrack writes one length-prefixed MSA track. The track is stored raw
// unless packing makes it strictly shorter.
func writeMSATrack(w io.Writer, payload []byte) error {
	chunk := payload
	if packed, err := compression.PackTrackBytes(payload); err == nil && len(packed) < len(payload) {
		chunk = packed
	}

	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(chunk)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	_, err := w.Write(chunk)
	return err
}
