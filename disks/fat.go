package disks

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zerkman/zest"
)

// Directory entry attribute flags.
const (
	AttrReadOnly    = 0x01
	AttrHidden      = 0x02
	AttrSystem      = 0x04
	AttrVolumeLabel = 0x08
	AttrDirectory   = 0x10
	AttrArchived    = 0x20

	// attrLongName marks the VFAT long file name entries written by other
	// systems. TOS ignores them.
	attrLongName = 0x0F
)

// DirentSize is the size of a single raw directory entry, in bytes.
const DirentSize = 32

// BIOSParameterBlock is the on-disk layout of the start of a FAT12 boot
// sector as written by TOS.
type BIOSParameterBlock struct {
	// Header holds the branch instruction, OEM name and serial number.
	Header            [11]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors      uint16
	Media             uint8
	SectorsPerFAT     uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint16
}

// RawDirent is the on-disk representation of a directory entry.
type RawDirent struct {
	Name              [8]byte
	Extension         [3]byte
	AttributeFlags    uint8
	NTReserved        uint8
	CreatedTimeMillis uint8
	CreatedTime       uint16
	CreatedDate       uint16
	LastAccessedDate  uint16
	FirstClusterHigh  uint16
	LastModifiedTime  uint16
	LastModifiedDate  uint16
	FirstClusterLow   uint16
	FileSize          uint32
}

// DirEntry is a file or directory found in the root directory of a disk.
type DirEntry struct {
	Name           string
	AttributeFlags uint8
	Size           int64
	FirstCluster   int
	LastModified   time.Time
}

// IsDir tells whether the entry is a directory.
func (e DirEntry) IsDir() bool {
	return e.AttributeFlags&AttrDirectory != 0
}

// DateFromInt converts the FAT on-disk representation of a date. FAT dates
// carry no time zone and are returned in UTC.
func DateFromInt(value uint16) time.Time {
	day := int(value & 0x001f)
	month := time.Month((value >> 5) & 0x000f)
	year := 1980 + int(value>>9)
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TimestampFromParts converts a FAT date and time into a time.Time. Times have
// a two-second resolution.
func TimestampFromParts(datePart uint16, timePart uint16) time.Time {
	date := DateFromInt(datePart)
	hours := int(timePart >> 11)
	minutes := int((timePart >> 5) & 0x003f)
	seconds := int(timePart&0x001f) * 2
	return time.Date(date.Year(), date.Month(), date.Day(), hours, minutes, seconds, 0, time.UTC)
}

func direntName(raw *RawDirent) string {
	name := raw.Name
	if name[0] == 0x05 {
		// The first character of the name really is 0xE5.
		name[0] = 0xE5
	}
	trimmedName := strings.TrimRight(string(name[:]), " ")
	trimmedExt := strings.TrimRight(string(raw.Extension[:]), " ")
	if trimmedExt == "" {
		return trimmedName
	}
	return trimmedName + "." + trimmedExt
}

// ReadRootDirectory lists the root directory of the FAT12 file system on a
// sector dump. It returns the volume label, if any, and every file or directory
// that is not deleted.
func ReadRootDirectory(disk io.ReaderAt) (string, []DirEntry, error) {
	var bpb BIOSParameterBlock
	err := binary.Read(io.NewSectionReader(disk, 0, BytesPerSector), binary.LittleEndian, &bpb)
	if err != nil {
		return "", nil, zest.ErrInvalidHeader.Wrap(err)
	}
	if bpb.BytesPerSector != BytesPerSector || bpb.NumFATs == 0 || bpb.RootEntryCount == 0 {
		return "", nil, zest.ErrInvalidHeader.WithMessage(
			fmt.Sprintf(
				"no FAT file system: %d bytes per sector, %d FATs, %d root entries",
				bpb.BytesPerSector,
				bpb.NumFATs,
				bpb.RootEntryCount))
	}

	rootStart := (int64(bpb.ReservedSectors) + int64(bpb.NumFATs)*int64(bpb.SectorsPerFAT)) *
		int64(bpb.BytesPerSector)
	reader := io.NewSectionReader(disk, rootStart, int64(bpb.RootEntryCount)*DirentSize)

	label := ""
	var entries []DirEntry
	for i := 0; i < int(bpb.RootEntryCount); i++ {
		var raw RawDirent
		if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
			return label, entries, zest.ErrCorruptTrack.Wrap(err)
		}
		if raw.Name[0] == 0 {
			// No entries follow a free one.
			break
		}
		if raw.Name[0] == 0xE5 || raw.AttributeFlags == attrLongName {
			continue
		}
		if raw.AttributeFlags&AttrVolumeLabel != 0 {
			label = strings.TrimRight(string(raw.Name[:])+string(raw.Extension[:]), " ")
			continue
		}

		entries = append(entries, DirEntry{
			Name:           direntName(&raw),
			AttributeFlags: raw.AttributeFlags,
			Size:           int64(raw.FileSize),
			FirstCluster:   int(raw.FirstClusterHigh)<<16 | int(raw.FirstClusterLow),
			LastModified:   TimestampFromParts(raw.LastModifiedDate, raw.LastModifiedTime),
		})
	}
	return label, entries, nil
}
