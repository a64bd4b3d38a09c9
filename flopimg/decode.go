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

// MSA header layout. All fields are big-endian 16-bit words.
const (
	msaMagic      = 0x0E0F
	msaHeaderSize = 10
)

func (img *Image) loadMFM(stream io.Reader, size int64) error {
	if size > int64(cap(img.buffer)) {
		return zest.ErrUnsupportedGeometry.WithMessage(
			fmt.Sprintf("MFM image of %d bytes exceeds %d tracks", size, disks.MaxTracks))
	}
	if size%zest.TrackSize != 0 {
		logger.Logf("flopimg", "MFM image size %d is not a whole number of tracks", size)
	}

	img.buffer = img.buffer[:size]
	if _, err := io.ReadFull(stream, img.buffer); err != nil {
		return err
	}
	slots := int((size + zest.TrackSize - 1) / zest.TrackSize)
	img.buffer = img.buffer[:slots*zest.TrackSize]

	geometry, ok := img.bootGeometry(img.buffer)
	if !ok {
		geometry.Sides = 1
		if size > 100*zest.TrackSize {
			geometry.Sides = 2
		}
		geometry.Tracks = slots / geometry.Sides
		logger.Logf("flopimg", "no boot sector, assuming %d sides", geometry.Sides)
	}

	// The stride must hold every track stored in the file.
	img.sides = geometry.Sides
	img.tracks = (slots + img.sides - 1) / img.sides
	if geometry.Tracks > img.tracks {
		img.resize(geometry.Tracks)
	} else {
		img.buffer = img.buffer[:img.tracks*img.sides*zest.TrackSize]
	}
	geometry.Tracks = img.tracks
	img.geometry = geometry
	return nil
}

// bootGeometry reads the geometry from the boot sector stored in the first
// slot of an MFM buffer.
func (img *Image) bootGeometry(buffer []byte) (disks.Geometry, bool) {
	if len(buffer) < zest.TrackSize {
		return disks.Geometry{}, false
	}
	offset, ok := img.options.Dialect.LocateSector(buffer[:zest.TrackSize], 0, 0, 1)
	if !ok {
		return disks.Geometry{}, false
	}
	boot, err := disks.ParseBootSector(buffer[offset:])
	if err != nil {
		return disks.Geometry{}, false
	}
	geometry, err := boot.Geometry()
	if err == nil {
		err = geometry.Validate()
	}
	if err != nil {
		logger.Logf("flopimg", "ignoring boot sector: %v", err)
		return disks.Geometry{}, false
	}
	return geometry, true
}

func (img *Image) loadST(stream io.Reader, size int64) error {
	data, err := io.ReadAll(stream)
	if err != nil {
		return err
	}

	geometry, err := headerGeometry(data)
	if err != nil {
		logger.Logf("flopimg", "%v", err)
		var ok bool
		if geometry, ok = disks.GuessGeometry(size); !ok {
			return zest.ErrUnsupportedGeometry.WithMessage(
				fmt.Sprintf("failed to guess the geometry of a %d-byte image", size))
		}
		logger.Logf("flopimg", "geometry guessed: %s", geometry)
	}

	trackBytes := geometry.TrackBytes()
	return img.encodeAll(geometry, func(track, side int) ([]byte, error) {
		start := (track*geometry.Sides + side) * trackBytes
		return data[start : start+trackBytes], nil
	})
}

// headerGeometry accepts the boot sector geometry of a sector dump only if it
// is valid and matches the size of the dump exactly.
func headerGeometry(data []byte) (disks.Geometry, error) {
	boot, err := disks.ParseBootSector(data)
	if err != nil {
		return disks.Geometry{}, err
	}
	geometry, err := boot.Geometry()
	if err != nil {
		return disks.Geometry{}, err
	}
	if err = geometry.Validate(); err != nil {
		return disks.Geometry{}, err
	}
	if geometry.SizeBytes() != int64(len(data)) {
		return disks.Geometry{}, zest.ErrInvalidHeader.WithMessage(
			fmt.Sprintf(
				"boot sector describes %d bytes, image has %d",
				geometry.SizeBytes(),
				len(data)))
	}
	return geometry, nil
}

func (img *Image) loadMSA(stream io.Reader) error {
	data, err := io.ReadAll(stream)
	if err != nil {
		return err
	}
	if len(data) < msaHeaderSize || binary.BigEndian.Uint16(data) != msaMagic {
		return zest.ErrInvalidHeader.WithMessage("not a valid MSA file")
	}

	startTrack := int(binary.BigEndian.Uint16(data[6:]))
	if startTrack != 0 {
		return zest.ErrPartialImage.WithMessage(
			fmt.Sprintf("image starts at track %d", startTrack))
	}
	geometry := disks.Geometry{
		Sectors: int(binary.BigEndian.Uint16(data[2:])),
		Sides:   int(binary.BigEndian.Uint16(data[4:])) + 1,
		Tracks:  int(binary.BigEndian.Uint16(data[8:])) + 1,
	}
	if err = geometry.Validate(); err != nil {
		return err
	}

	trackBytes := geometry.TrackBytes()
	pos := msaHeaderSize
	return img.encodeAll(geometry, func(track, side int) ([]byte, error) {
		if pos+2 > len(data) {
			return nil, zest.ErrCorruptTrack.WithMessage(
				fmt.Sprintf("MSA file ends before track %d side %d", track, side))
		}
		length := int(binary.BigEndian.Uint16(data[pos:]))
		pos += 2
		if pos+length > len(data) {
			return nil, zest.ErrCorruptTrack.WithMessage(
				fmt.Sprintf("track %d side %d truncated", track, side))
		}
		chunk := data[pos : pos+length]
		pos += length

		if length == trackBytes {
			return chunk, nil
		}
		payload, err := compression.UnpackTrack(chunk, trackBytes)
		if err != nil {
			return nil, zest.ErrCorruptTrack.Wrap(err)
		}
		return payload, nil
	})
}

// checkDialect fails when the sectors of `geometry` could not be found again
// once encoded, which would make write-back lose them.
func (img *Image) checkDialect(geometry disks.Geometry) error {
	if !img.options.Dialect.Supports(geometry.Sectors) {
		return zest.ErrUnsupportedGeometry.WithMessage(
			fmt.Sprintf(
				"dialect %s cannot locate sectors on %d-sector tracks",
				img.options.Dialect,
				geometry.Sectors))
	}
	return nil
}

// encodeAll sets the geometry of an empty image and fills every track with the
// sectors returned by `sectors`.
func (img *Image) encodeAll(
	geometry disks.Geometry,
	sectors func(track, side int) ([]byte, error),
) error {
	if err := img.checkDialect(geometry); err != nil {
		return err
	}
	img.geometry = geometry
	img.sides = geometry.Sides
	img.resize(geometry.Tracks)

	layout := img.layout(geometry.Sectors)
	for t := 0; t < geometry.Tracks; t++ {
		for s := 0; s < geometry.Sides; s++ {
			payload, err := sectors(t, s)
			if err != nil {
				return err
			}
			err = img.options.Dialect.EncodeTrack(img.slot(t, s), payload, t, s, layout)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
