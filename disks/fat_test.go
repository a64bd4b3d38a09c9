package disks_test

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerkman/zest"
	"github.com/zerkman/zest/disks"
)

func putDirent(t *testing.T, dst []byte, raw disks.RawDirent) {
	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, binary.LittleEndian, raw))
	require.Equal(t, disks.DirentSize, buf.Len())
	copy(dst, buf.Bytes())
}

func name83(name, ext string) ([8]byte, [3]byte) {
	var n [8]byte
	var e [3]byte
	copy(n[:], name+"        ")
	copy(e[:], ext+"   ")
	return n, e
}

func TestReadRootDirectory(t *testing.T) {
	geometry := disks.Geometry{Tracks: 80, Sides: 2, Sectors: 9}
	disk := make([]byte, geometry.SizeBytes())
	copy(disk, disks.NewBootSector(geometry))

	// One reserved sector and two 5-sector FATs precede the root directory.
	root := disk[11*disks.BytesPerSector:]

	label, labelExt := name83("GAMES", "")
	putDirent(t, root[0:], disks.RawDirent{Name: label, Extension: labelExt, AttributeFlags: disks.AttrVolumeLabel})

	readme, txt := name83("README", "TXT")
	putDirent(t, root[32:], disks.RawDirent{
		Name:             readme,
		Extension:        txt,
		AttributeFlags:   disks.AttrArchived,
		LastModifiedDate: 0x50FC,
		LastModifiedTime: 12<<11 | 34<<5 | 28,
		FirstClusterLow:  2,
		FileSize:         1234,
	})

	deleted, prg := name83("OLD", "PRG")
	deleted[0] = 0xE5
	putDirent(t, root[64:], disks.RawDirent{Name: deleted, Extension: prg})

	folder, noExt := name83("FOLDER", "")
	putDirent(t, root[96:], disks.RawDirent{
		Name: folder, Extension: noExt, AttributeFlags: disks.AttrDirectory, FirstClusterLow: 5,
	})

	// Entries past the first free one are ignored.
	stray, _ := name83("STRAY", "")
	putDirent(t, root[160:], disks.RawDirent{Name: stray})

	volume, entries, err := disks.ReadRootDirectory(bytes.NewReader(disk))
	require.NoError(t, err)
	assert.Equal(t, "GAMES", volume)
	require.Len(t, entries, 2)

	assert.Equal(t, "README.TXT", entries[0].Name)
	assert.EqualValues(t, 1234, entries[0].Size)
	assert.Equal(t, 2, entries[0].FirstCluster)
	assert.False(t, entries[0].IsDir())
	assert.Equal(t, time.Date(2020, 7, 28, 12, 34, 56, 0, time.UTC), entries[0].LastModified)

	assert.Equal(t, "FOLDER", entries[1].Name)
	assert.True(t, entries[1].IsDir())
}

func TestReadRootDirectoryRejectsNonFAT(t *testing.T) {
	_, _, err := disks.ReadRootDirectory(bytes.NewReader(make([]byte, 4096)))
	assert.ErrorIs(t, err, zest.ErrInvalidHeader)

	_, _, err = disks.ReadRootDirectory(bytes.NewReader(make([]byte, 10)))
	assert.ErrorIs(t, err, zest.ErrInvalidHeader)
}

func TestDateFromInt(t *testing.T) {
	assert.Equal(t, time.Date(2020, 7, 28, 0, 0, 0, 0, time.UTC), disks.DateFromInt(0x50FC))
	assert.Equal(t, time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC), disks.DateFromInt(0x0021))
}
