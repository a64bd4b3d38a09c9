package mfm

import (
	_ "embed"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/noxer/bytewriter"
	"github.com/zerkman/zest"
	"github.com/zerkman/zest/logger"
)

// TrackSize is the number of bytes in one MFM track.
const TrackSize = zest.TrackSize

// SectorSize is the payload length of every sector written by EncodeTrack.
const SectorSize = 512

// sizeCode512 is the ID field size code of a 512-byte sector.
const sizeCode512 = 2

const (
	gapFiller  = 0x4E
	syncByte   = 0xA1
	idGapBytes = 22
	preDataGap = 12
	syncCount  = 3
)

// Gaps holds the filler lengths that make a track of a given sector count
// exactly TrackSize bytes long.
type Gaps struct {
	Sectors int `csv:"sectors"`
	// Gap1 is the 0x4E run after the index pulse.
	Gap1 int `csv:"gap1"`
	// Gap2 is the 0x00 run before each ID address mark.
	Gap2 int `csv:"gap2"`
	// Gap4 is the 0x4E run after each data field.
	Gap4 int `csv:"gap4"`
	// Gap5 is the 0x4E run up to the end of the track.
	Gap5 int `csv:"gap5"`
}

//go:embed gaps.csv
var gapsRawCSV string
var gapTable map[int]Gaps

func init() {
	var rows []Gaps
	if err := gocsv.UnmarshalString(gapsRawCSV, &rows); err != nil {
		panic(fmt.Errorf("failed to decode gap table: %w", err))
	}

	gapTable = make(map[int]Gaps, len(rows))
	for _, row := range rows {
		if _, exists := gapTable[row.Sectors]; exists {
			panic(fmt.Errorf("duplicate gap definition for %d sectors", row.Sectors))
		}
		gapTable[row.Sectors] = row
	}
}

// GapsFor returns the gap layout for `sectors` sectors per track.
func GapsFor(sectors int) (Gaps, bool) {
	g, ok := gapTable[sectors]
	return g, ok
}

// Layout selects how sectors are arranged on an encoded track.
type Layout struct {
	Sectors    int
	Skew       int
	Interleave int
}

// SectorOrder returns the logical sector number (1-based) stored at each
// physical position of a track.
//
// Sector 1 is placed at position `skew*track mod sectors`; each following
// sector goes `interleave` positions further, moving on to the next free
// position when that one is taken.
func SectorOrder(sectors, track, skew, interleave int) []int {
	order := make([]int, sectors)
	if sectors <= 0 {
		return order
	}
	if interleave < 1 {
		interleave = 1
	}
	if interleave == 1 && sectors == 11 {
		interleave = 2
	}

	used := make([]bool, sectors)
	pos := ((skew*track)%sectors + sectors) % sectors
	for s := 1; s <= sectors; s++ {
		for used[pos] {
			pos = (pos + 1) % sectors
		}
		order[pos] = s
		used[pos] = true
		pos = (pos + interleave) % sectors
	}
	return order
}

// trackWriter emits the fields of a track into a fixed buffer. The first
// write that does not fit is remembered and every later write is dropped.
type trackWriter struct {
	w       io.Writer
	written int
	err     error
	scratch [idGapBytes]byte
}

func (tw *trackWriter) write(p []byte) {
	if tw.err != nil {
		return
	}
	n, err := tw.w.Write(p)
	tw.written += n
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	tw.err = err
}

func (tw *trackWriter) fill(value byte, count int) {
	for count > 0 {
		chunk := count
		if chunk > len(tw.scratch) {
			chunk = len(tw.scratch)
		}
		for i := 0; i < chunk; i++ {
			tw.scratch[i] = value
		}
		tw.write(tw.scratch[:chunk])
		count -= chunk
	}
}

func (tw *trackWriter) crc(value uint16) {
	tw.write([]byte{byte(value >> 8), byte(value)})
}

// EncodeTrack writes a complete MFM track into `dst`, which must be at least
// TrackSize bytes long. `data` holds the payloads of sectors 1..N in order,
// 512 bytes each.
//
// A track whose encoded length is not exactly TrackSize is reported as a
// format error; the bytes written so far are kept.
func (d *Dialect) EncodeTrack(dst []byte, data []byte, track, side int, layout Layout) error {
	gaps, ok := GapsFor(layout.Sectors)
	if !ok {
		return zest.ErrUnsupportedGeometry.WithMessage(
			fmt.Sprintf("no track layout for %d sectors per track", layout.Sectors))
	}
	if len(dst) < TrackSize {
		return zest.ErrCorruptTrack.WithMessage(
			fmt.Sprintf("track buffer is %d bytes, need %d", len(dst), TrackSize))
	}
	if len(data) < layout.Sectors*SectorSize {
		return zest.ErrCorruptTrack.WithMessage(
			fmt.Sprintf(
				"track %d side %d: got %d bytes of sector data, need %d",
				track, side, len(data), layout.Sectors*SectorSize))
	}

	tw := trackWriter{w: bytewriter.New(dst[:TrackSize])}
	order := SectorOrder(layout.Sectors, track, layout.Skew, layout.Interleave)

	tw.fill(gapFiller, gaps.Gap1)
	for _, sector := range order {
		tw.fill(0x00, gaps.Gap2)
		tw.fill(syncByte, syncCount)
		id := []byte{TagID, byte(track), byte(side), byte(sector), sizeCode512}
		tw.write(id)
		tw.crc(d.CRC(id))

		tw.fill(gapFiller, idGapBytes)
		tw.fill(0x00, preDataGap)
		tw.fill(syncByte, syncCount)

		payload := data[(sector-1)*SectorSize : sector*SectorSize]
		tw.write([]byte{TagData})
		tw.write(payload)
		tw.crc(Checksum(d.CRC([]byte{TagData}), payload))

		tw.fill(gapFiller, gaps.Gap4)
	}
	tw.fill(gapFiller, gaps.Gap5)

	if tw.err != nil || tw.written != TrackSize {
		logger.Logf(
			"mfm", "format error: track %d side %d encoded to %d bytes", track, side, tw.written)
	}
	return nil
}
