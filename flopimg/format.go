package flopimg

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zerkman/zest"
)

// Format is the on-disk encoding of a floppy image file.
type Format int

const (
	// FormatMFM is a raw dump of 6250-byte MFM tracks.
	FormatMFM Format = iota
	// FormatST is a raw dump of 512-byte sectors.
	FormatST
	// FormatMSA is the Magic Shadow Archiver format: a small header followed
	// by optionally run-length encoded tracks.
	FormatMSA
)

var formatExtensions = map[string]Format{
	".mfm": FormatMFM,
	".st":  FormatST,
	".msa": FormatMSA,
}

// FormatFromPath determines the image format from the file name extension,
// ignoring case.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := formatExtensions[ext]
	if !ok {
		return 0, zest.ErrUnknownFormat.WithMessage(
			fmt.Sprintf("unrecognized extension %q for %s", ext, path))
	}
	return format, nil
}

// Extension returns the canonical lowercase file extension of the format.
func (f Format) Extension() string {
	for ext, format := range formatExtensions {
		if format == f {
			return ext
		}
	}
	return ""
}

func (f Format) String() string {
	switch f {
	case FormatMFM:
		return "MFM"
	case FormatST:
		return "ST"
	case FormatMSA:
		return "MSA"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}
