// Package flopimg holds floppy disk images in memory as MFM tracks, and
// converts them to and from the .mfm, .st and .msa file formats.
//
// Whatever the file format, a loaded image is a flat buffer of 6250-byte MFM
// tracks, so the floppy controller can serve any of them the same way. Sector
// payloads are only extracted again when the image is written back.
package flopimg

import (
	"os"

	"github.com/boljen/go-bitmap"
	"github.com/zerkman/zest"
	"github.com/zerkman/zest/disks"
	"github.com/zerkman/zest/mfm"
)

// maxSlots is the number of track slots an image can ever hold.
const maxSlots = disks.MaxTracks * disks.MaxSides

// Options controls how an image is opened and encoded.
type Options struct {
	// Dialect selects the address mark pattern and CRC preset. It is required.
	Dialect *mfm.Dialect
	// Skew shifts the first sector of each track by this many positions per
	// track number.
	Skew int
	// Interleave is the number of physical positions between two consecutive
	// logical sectors.
	Interleave int
	// ReadOnly opens the backing file read-only. Flushing a read-only image
	// fails with [zest.ErrReadOnly].
	ReadOnly bool
}

// Image is a floppy disk held as MFM tracks.
//
// An Image is not safe for concurrent use. Its owner must serialize calls, and
// in particular must not call Track while another goroutine reads from a slice
// Track returned earlier.
type Image struct {
	path    string
	file    *os.File
	format  Format
	options Options

	// geometry is the logical layout used to extract sectors on write-back.
	geometry disks.Geometry

	// tracks and sides give the stride of buffer. They only ever grow.
	tracks int
	sides  int
	// loadedTracks and loadedSides are the stride of the file when it was
	// loaded. A raw MFM file with an unchanged stride is updated in place.
	loadedTracks int
	loadedSides  int

	buffer []byte
	// dirty has one bit per (track, side), indexed by track*MaxSides+side.
	dirty  bitmap.Bitmap
	closed bool
}

func newImage(format Format, options Options) *Image {
	return &Image{
		format:  format,
		options: options,
		sides:   1,
		buffer:  make([]byte, 0, maxSlots*zest.TrackSize),
		dirty:   bitmap.Bitmap(bitmap.NewSlice(maxSlots)),
	}
}

// Path returns the path of the backing file, or an empty string for images
// not backed by a file.
func (img *Image) Path() string {
	return img.path
}

// Format returns the format the image is written back in.
func (img *Image) Format() Format {
	return img.format
}

// ReadOnly tells whether the image can be written back.
func (img *Image) ReadOnly() bool {
	return img.options.ReadOnly || img.file == nil
}

// Geometry returns the logical geometry of the disk. Sectors is 0 when it is
// unknown, which only happens for MFM images without a readable boot sector.
func (img *Image) Geometry() disks.Geometry {
	return img.geometry
}

// Layout returns the number of tracks and sides currently held in the buffer.
func (img *Image) Layout() (tracks, sides int) {
	return img.tracks, img.sides
}

// Track returns the 6250-byte slot of a track. Requesting a track or side
// beyond the current layout grows the image: a single-sided image becomes
// double-sided the first time side 1 is requested. Track returns nil when the
// position can never be held.
//
// Growth never allocates, so Track is safe to call on the real-time path.
func (img *Image) Track(track, side int) []byte {
	if track < 0 || track >= disks.MaxTracks || side < 0 || side >= disks.MaxSides {
		return nil
	}
	if side >= img.sides {
		img.promote()
	}
	if track >= img.tracks {
		img.resize(track + 1)
	}
	return img.slot(track, side)
}

// slot returns the slot of a track without growing the image, or nil if it is
// outside the current layout.
func (img *Image) slot(track, side int) []byte {
	if track < 0 || track >= img.tracks || side < 0 || side >= img.sides {
		return nil
	}
	start := (track*img.sides + side) * zest.TrackSize
	return img.buffer[start : start+zest.TrackSize : start+zest.TrackSize]
}

// resize grows the buffer to hold `tracks` tracks, zeroing the new slots.
func (img *Image) resize(tracks int) {
	oldLen := len(img.buffer)
	img.buffer = img.buffer[:tracks*img.sides*zest.TrackSize]
	zeroBytes(img.buffer[oldLen:])
	img.tracks = tracks
}

// promote turns a single-sided buffer into a double-sided one. Every track
// moves to its new stride, last track first so nothing is overwritten before
// it has been moved, and the side 1 slots are zeroed.
func (img *Image) promote() {
	const ts = zest.TrackSize
	img.buffer = img.buffer[:img.tracks*2*ts]
	for t := img.tracks - 1; t >= 0; t-- {
		copy(img.buffer[2*t*ts:(2*t+1)*ts], img.buffer[t*ts:(t+1)*ts])
		zeroBytes(img.buffer[(2*t+1)*ts : (2*t+2)*ts])
	}
	img.sides = 2
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// MarkWriteback records that a track has been modified and must be written
// back when the image is flushed.
func (img *Image) MarkWriteback(track, side int) {
	if track < 0 || track >= disks.MaxTracks || side < 0 || side >= disks.MaxSides {
		return
	}
	img.dirty.Set(track*disks.MaxSides+side, true)
}

// Dirty tells whether any track has been modified since the last flush.
func (img *Image) Dirty() bool {
	for _, b := range img.dirty {
		if b != 0 {
			return true
		}
	}
	return false
}

func (img *Image) trackDirty(track, side int) bool {
	return img.dirty.Get(track*disks.MaxSides + side)
}

// highestDirtyTrack returns the highest track number with a modified side
// inside the current layout, or -1 when nothing was modified.
func (img *Image) highestDirtyTrack() int {
	for t := img.tracks - 1; t >= 0; t-- {
		for s := 0; s < img.sides; s++ {
			if img.trackDirty(t, s) {
				return t
			}
		}
	}
	return -1
}

func (img *Image) clearDirty() {
	for i := range img.dirty {
		img.dirty[i] = 0
	}
}

func (img *Image) markAllDirty() {
	for t := 0; t < img.tracks; t++ {
		for s := 0; s < img.sides; s++ {
			img.MarkWriteback(t, s)
		}
	}
}

func (img *Image) layout(sectors int) mfm.Layout {
	return mfm.Layout{
		Sectors:    sectors,
		Skew:       img.options.Skew,
		Interleave: img.options.Interleave,
	}
}
