// Package disks describes the geometry of Atari ST floppy disks: how many
// tracks, sides and sectors a disk has, how to read it from a DOS-style boot
// sector, and how to guess it from the size of a raw sector dump. It can also
// list the root directory of the FAT12 file system TOS writes on a disk.
package disks

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gocarina/gocsv"
	"github.com/zerkman/zest"
)

// Limits of what fits in an MFM track image.
const (
	MaxTracks      = 84
	MaxSides       = 2
	MinSectors     = 9
	MaxSectors     = 11
	BytesPerSector = 512
)

// Geometry is the shape of a disk. A Sectors value of 0 means the sector count
// is not known, which happens for raw MFM images without a readable boot
// sector.
type Geometry struct {
	Tracks  int
	Sides   int
	Sectors int
}

// TrackBytes gives the number of payload bytes on one side of a track.
func (g Geometry) TrackBytes() int {
	return g.Sectors * BytesPerSector
}

// TotalSectors gives the number of sectors on the disk.
func (g Geometry) TotalSectors() int {
	return g.Tracks * g.Sides * g.Sectors
}

// SizeBytes gives the size of a raw sector dump of the disk.
func (g Geometry) SizeBytes() int64 {
	return int64(g.TotalSectors()) * BytesPerSector
}

// Validate checks that every track of the disk can be encoded as an MFM track.
func (g Geometry) Validate() error {
	switch {
	case g.Sectors < MinSectors || g.Sectors > MaxSectors:
		return zest.ErrUnsupportedGeometry.WithMessage(
			fmt.Sprintf("unsupported number of sectors per track: %d", g.Sectors))
	case g.Sides < 1 || g.Sides > MaxSides:
		return zest.ErrUnsupportedGeometry.WithMessage(
			fmt.Sprintf("unsupported number of sides: %d", g.Sides))
	case g.Tracks < 1 || g.Tracks > MaxTracks:
		return zest.ErrUnsupportedGeometry.WithMessage(
			fmt.Sprintf("unsupported number of tracks: %d", g.Tracks))
	}
	return nil
}

func (g Geometry) String() string {
	return fmt.Sprintf("%d tracks, %d sides, %d sectors", g.Tracks, g.Sides, g.Sectors)
}

////////////////////////////////////////////////////////////////////////////////
// Boot sector

// Little-endian field offsets in a DOS-style boot sector.
const (
	bootBytesPerSector  = 0x0b
	bootTotalSectors    = 0x13
	bootSectorsPerTrack = 0x18
	bootSides           = 0x1a

	// BootHeaderSize is the number of leading bytes needed to parse a boot
	// sector.
	BootHeaderSize = 0x20
)

// BootSector holds the geometry fields of a boot sector.
type BootSector struct {
	BytesPerSector  int
	TotalSectors    int
	SectorsPerTrack int
	Sides           int
}

// ParseBootSector reads the geometry fields from the first BootHeaderSize
// bytes of a boot sector.
func ParseBootSector(b []byte) (BootSector, error) {
	if len(b) < BootHeaderSize {
		return BootSector{}, zest.ErrInvalidHeader.WithMessage(
			fmt.Sprintf("boot sector truncated to %d bytes", len(b)))
	}
	return BootSector{
		BytesPerSector:  int(binary.LittleEndian.Uint16(b[bootBytesPerSector:])),
		TotalSectors:    int(binary.LittleEndian.Uint16(b[bootTotalSectors:])),
		SectorsPerTrack: int(binary.LittleEndian.Uint16(b[bootSectorsPerTrack:])),
		Sides:           int(binary.LittleEndian.Uint16(b[bootSides:])),
	}, nil
}

// Geometry derives the disk geometry described by the boot sector. It fails
// when the fields are not those of a disk with 512-byte sectors.
func (bs BootSector) Geometry() (Geometry, error) {
	if bs.BytesPerSector != BytesPerSector {
		return Geometry{}, zest.ErrInvalidHeader.WithMessage(
			fmt.Sprintf("invalid sector size: %d", bs.BytesPerSector))
	}
	if bs.SectorsPerTrack <= 0 || bs.Sides <= 0 {
		return Geometry{}, zest.ErrInvalidHeader.WithMessage(
			fmt.Sprintf(
				"invalid geometry: %d sectors per track, %d sides",
				bs.SectorsPerTrack,
				bs.Sides))
	}
	return Geometry{
		Tracks:  bs.TotalSectors / (bs.SectorsPerTrack * bs.Sides),
		Sides:   bs.Sides,
		Sectors: bs.SectorsPerTrack,
	}, nil
}

// NewBootSector builds a 512-byte boot sector for a blank disk with the
// given geometry: one reserved sector, two 5-sector FATs, 112 root directory
// entries and the 0xF9 media descriptor, as the ST desktop formats them.
func NewBootSector(g Geometry) []byte {
	b := make([]byte, BytesPerSector)
	b[0] = 0x60 // BRA.S, no boot code
	b[1] = 0x38
	copy(b[2:8], "Loader")
	binary.LittleEndian.PutUint16(b[bootBytesPerSector:], BytesPerSector)
	b[0x0d] = 2 // sectors per cluster
	binary.LittleEndian.PutUint16(b[0x0e:], 1)
	b[0x10] = 2 // FATs
	binary.LittleEndian.PutUint16(b[0x11:], 112)
	binary.LittleEndian.PutUint16(b[bootTotalSectors:], uint16(g.TotalSectors()))
	b[0x15] = 0xF9
	binary.LittleEndian.PutUint16(b[0x16:], 5)
	binary.LittleEndian.PutUint16(b[bootSectorsPerTrack:], uint16(g.Sectors))
	binary.LittleEndian.PutUint16(b[bootSides:], uint16(g.Sides))
	return b
}

////////////////////////////////////////////////////////////////////////////////
// Size guesser

// GuessGeometry finds a geometry whose raw sector dump is exactly `size`
// bytes long. Track counts are tried from MaxTracks down, then sector counts
// from MaxSectors down, then two sides before one; the first match wins.
func GuessGeometry(size int64) (Geometry, bool) {
	if size <= 0 || size%BytesPerSector != 0 {
		return Geometry{}, false
	}
	for tracks := MaxTracks; tracks > 0; tracks-- {
		for sectors := MaxSectors; sectors >= MinSectors; sectors-- {
			for sides := MaxSides; sides > 0; sides-- {
				g := Geometry{Tracks: tracks, Sides: sides, Sectors: sectors}
				if g.SizeBytes() == size {
					return g, true
				}
			}
		}
	}
	return Geometry{}, false
}

////////////////////////////////////////////////////////////////////////////////
// Presets

// Preset is a named, commonly used disk layout.
type Preset struct {
	Name    string `csv:"name"`
	Slug    string `csv:"slug"`
	Tracks  int    `csv:"tracks"`
	Sides   int    `csv:"sides"`
	Sectors int    `csv:"sectors"`
	Notes   string `csv:"notes"`
}

// Geometry returns the geometry of the preset.
func (p Preset) Geometry() Geometry {
	return Geometry{Tracks: p.Tracks, Sides: p.Sides, Sectors: p.Sectors}
}

//go:embed disk-geometries.csv
var diskGeometriesRawCSV string
var presets []Preset

// GetPreset returns the preset with the given slug.
func GetPreset(slug string) (Preset, error) {
	for _, p := range presets {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("no predefined disk geometry exists with slug %q", slug)
}

// Presets returns all known presets.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// Describe returns the name of the preset matching `g`, if any.
func Describe(g Geometry) (string, bool) {
	for _, p := range presets {
		if p.Geometry() == g {
			return p.Name, true
		}
	}
	return "", false
}

func init() {
	if err := gocsv.UnmarshalString(diskGeometriesRawCSV, &presets); err != nil {
		panic(fmt.Errorf("failed to decode disk geometries: %w", err))
	}

	seen := make(map[string]bool, len(presets))
	for i, row := range presets {
		if seen[row.Slug] {
			panic(fmt.Errorf("duplicate definition for disk %q found on row %d", row.Slug, i+1))
		}
		if err := row.Geometry().Validate(); err != nil {
			panic(fmt.Errorf("disk %q: %w", row.Slug, err))
		}
		seen[row.Slug] = true
	}
}
