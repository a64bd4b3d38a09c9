// Package testing provides fixtures shared by the tests of other packages:
// disk images built from random sectors and a scripted register window.
package testing

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
	"github.com/zerkman/zest/disks"
	"github.com/zerkman/zest/utilities/compression"
)

// RandomBytes returns `size` random bytes. It is guaranteed to either return a
// valid slice or fail the test and abort.
func RandomBytes(t *testing.T, size int) []byte {
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoErrorf(t, err, "failed to initialize %d random bytes", size)
	return data
}

// BuildSectorDump creates the sectors of a disk with the given geometry, in
// .st order. The first sector is a boot sector describing the geometry; every
// other sector is random.
func BuildSectorDump(t *testing.T, geometry disks.Geometry) []byte {
	data := RandomBytes(t, int(geometry.SizeBytes()))
	copy(data, disks.NewBootSector(geometry))
	return data
}

// BuildMSAImage wraps a sector dump created by [BuildSectorDump] into an .msa
// file. Tracks are packed when `pack` is true and packing makes them shorter.
func BuildMSAImage(t *testing.T, geometry disks.Geometry, sectors []byte, pack bool) []byte {
	require.EqualValues(t, geometry.SizeBytes(), len(sectors), "sector dump is wrong size")

	image := make([]byte, 10, 10+len(sectors)+2*geometry.Tracks*geometry.Sides)
	binary.BigEndian.PutUint16(image[0:], 0x0E0F)
	binary.BigEndian.PutUint16(image[2:], uint16(geometry.Sectors))
	binary.BigEndian.PutUint16(image[4:], uint16(geometry.Sides-1))
	binary.BigEndian.PutUint16(image[8:], uint16(geometry.Tracks-1))

	trackBytes := geometry.TrackBytes()
	for start := 0; start < len(sectors); start += trackBytes {
		chunk := sectors[start : start+trackBytes]
		if pack {
			packed, err := compression.PackTrackBytes(chunk)
			if err == nil && len(packed) < len(chunk) {
				chunk = packed
			}
		}
		image = binary.BigEndian.AppendUint16(image, uint16(len(chunk)))
		image = append(image, chunk...)
	}
	return image
}

// WriteImageFile writes `data` to a file called `name` in a temporary directory
// removed at the end of the test, and returns its path.
func WriteImageFile(t *testing.T, name string, data []byte) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// ReadImageFile returns the content of the file at `path`.
func ReadImageFile(t *testing.T, path string) []byte {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// LoadImageStream returns a seekable stream over a copy of `data`.
//
//   - Writes to the stream do not affect `data`.
//   - While the stream can be written to, its size is fixed to `len(data)`.
//     Attempting to write past the end of this buffer will trigger an error.
func LoadImageStream(t *testing.T, data []byte) io.ReadWriteSeeker {
	require.Greater(t, len(data), 0, "image is empty")
	return bytesextra.NewReadWriteSeeker(append([]byte(nil), data...))
}
